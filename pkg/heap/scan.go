// ABOUTME: Sequential scan over a heap table's data pages, skipping tombstones
// ABOUTME: Each page is pinned only while its slots are being iterated

package heap

import (
	"errors"

	"github.com/nainya/sqlengine/pkg/disk"
	"github.com/nainya/sqlengine/pkg/sqlvalue"
)

// Scan is the volcano-style source iterator over a table's heap pages.
// It starts at page 1, slot 0 and advances slot-then-page, skipping
// tombstones, until the disk manager reports no further page.
type Scan struct {
	table    *Table
	pageID   uint32
	slot     uint16
	numSlots uint16
	started  bool
	done     bool
}

// NewScan creates a scan over table, positioned before the first row.
func NewScan(table *Table) *Scan {
	return &Scan{table: table, pageID: 1, slot: 0}
}

// Next advances to and returns the next live (RowId, row) pair. ok is
// false once the scan is exhausted.
func (s *Scan) Next() (RowId, []sqlvalue.Value, bool, error) {
	if s.done {
		return RowId{}, nil, false, nil
	}

	for {
		if !s.started {
			if err := s.loadPage(); err != nil {
				if isEOF(err) {
					s.done = true
					return RowId{}, nil, false, nil
				}
				return RowId{}, nil, false, err
			}
			s.started = true
		}

		if s.slot >= s.numSlots {
			if err := s.table.pool.Unpin(s.pageID, false); err != nil {
				return RowId{}, nil, false, err
			}
			s.pageID++
			s.slot = 0
			if err := s.loadPage(); err != nil {
				if isEOF(err) {
					s.done = true
					return RowId{}, nil, false, nil
				}
				return RowId{}, nil, false, err
			}
			continue
		}

		id := RowId{PageID: s.pageID, SlotID: s.slot}
		row, err := s.table.Get(id)
		s.slot++
		if err == ErrNotFound {
			continue // tombstone
		}
		if err != nil {
			return RowId{}, nil, false, err
		}
		return id, row, true, nil
	}
}

// Close unpins any page the scan is still holding. Safe to call multiple times.
func (s *Scan) Close() {
	if s.started && !s.done {
		s.table.pool.Unpin(s.pageID, false)
	}
	s.done = true
}

func (s *Scan) loadPage() error {
	p, err := s.table.pool.Fetch(s.pageID)
	if err != nil {
		return err
	}
	s.numSlots = p.NumSlots()
	return nil
}

func isEOF(err error) bool {
	return errors.Is(err, disk.ErrPageNotFound)
}
