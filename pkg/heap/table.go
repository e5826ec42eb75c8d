// ABOUTME: Per-table file: metadata page 0 (name + schema), data pages 1+
// ABOUTME: insert/get/delete/scan drive the buffer pool, never the disk manager directly

package heap

import (
	"errors"
	"fmt"

	"github.com/nainya/sqlengine/pkg/buffer"
	"github.com/nainya/sqlengine/pkg/disk"
	"github.com/nainya/sqlengine/pkg/page"
	"github.com/nainya/sqlengine/pkg/sqlvalue"
)

// ErrNotFound is returned by Get when a RowId is out of range or tombstoned.
var ErrNotFound = errors.New("heap: row not found")

// ErrRowTooLarge is returned by Insert when a row cannot fit in any single page.
var ErrRowTooLarge = errors.New("heap: row too large to fit in one page")

const metaSlotName = 0
const metaSlotSchema = 1

const maxRowPayload = page.MaxRowPayload

// Table is a single heap-organized table file: page 0 is metadata
// (name + schema), pages 1..n are data pages filled in append order.
type Table struct {
	name       string
	schema     sqlvalue.Schema
	disk       *disk.Manager
	pool       *buffer.Pool
	lastDataID uint32
}

// Create makes a new table file at path, writes its metadata page, and
// flushes it durably before returning.
func Create(name string, schema sqlvalue.Schema, path string, bpCapacity int) (*Table, error) {
	d, err := disk.Open(path)
	if err != nil {
		return nil, err
	}
	pool := buffer.NewPool(d, bpCapacity)

	meta, err := pool.NewPage(page.TypeMeta)
	if err != nil {
		return nil, err
	}
	if meta.PageID() != 0 {
		return nil, fmt.Errorf("heap: expected metadata page id 0, got %d", meta.PageID())
	}
	if _, err := meta.AddRow([]byte("TABLE:" + name + "\n")); err != nil {
		return nil, err
	}
	if _, err := meta.AddRow(EncodeSchema(schema)); err != nil {
		return nil, err
	}
	if err := pool.Unpin(0, true); err != nil {
		return nil, err
	}

	t := &Table{name: name, schema: schema, disk: d, pool: pool, lastDataID: 0}
	if err := t.Flush(); err != nil {
		return nil, err
	}
	return t, nil
}

// Open reads page 0 and reconstructs the table's name and schema.
func Open(path string, bpCapacity int) (*Table, error) {
	d, err := disk.Open(path)
	if err != nil {
		return nil, err
	}
	pool := buffer.NewPool(d, bpCapacity)

	meta, err := pool.Fetch(0)
	if err != nil {
		return nil, fmt.Errorf("heap: open %s: %w", path, err)
	}
	nameBytes, ok := meta.GetRow(metaSlotName)
	if !ok {
		pool.Unpin(0, false)
		return nil, fmt.Errorf("%w: missing name slot", page.ErrCorruptPage)
	}
	schemaBytes, ok := meta.GetRow(metaSlotSchema)
	if !ok {
		pool.Unpin(0, false)
		return nil, fmt.Errorf("%w: missing schema slot", page.ErrCorruptPage)
	}
	pool.Unpin(0, false)

	name, err := parseNameSlot(nameBytes)
	if err != nil {
		return nil, err
	}
	schema, err := DecodeSchema(schemaBytes)
	if err != nil {
		return nil, err
	}

	numPages, err := d.NumPages()
	if err != nil {
		return nil, err
	}
	lastDataID := uint32(0)
	if numPages > 1 {
		lastDataID = numPages - 1
	}

	return &Table{name: name, schema: schema, disk: d, pool: pool, lastDataID: lastDataID}, nil
}

func parseNameSlot(b []byte) (string, error) {
	const prefix = "TABLE:"
	if len(b) < len(prefix)+1 || string(b[:len(prefix)]) != prefix || b[len(b)-1] != '\n' {
		return "", fmt.Errorf("%w: malformed name slot", page.ErrCorruptPage)
	}
	return string(b[len(prefix) : len(b)-1]), nil
}

// Name returns the table's name.
func (t *Table) Name() string { return t.name }

// Schema returns the table's schema.
func (t *Table) Schema() sqlvalue.Schema { return t.schema }

// Insert validates row against the schema, encodes it, and appends it to
// the last data page (allocating a new one on PageFull). Returns the new
// row's RowId.
func (t *Table) Insert(row []sqlvalue.Value) (RowId, error) {
	if err := t.schema.ValidateRow(row); err != nil {
		return RowId{}, err
	}
	encoded := EncodeRow(t.schema, row)
	if len(encoded) > maxRowPayload {
		return RowId{}, ErrRowTooLarge
	}

	if t.lastDataID == 0 {
		if err := t.allocateDataPage(); err != nil {
			return RowId{}, err
		}
	}

	p, err := t.pool.Fetch(t.lastDataID)
	if err != nil {
		return RowId{}, err
	}

	slot, err := p.AddRow(encoded)
	if err == page.ErrPageFull {
		if unpinErr := t.pool.Unpin(t.lastDataID, false); unpinErr != nil {
			return RowId{}, unpinErr
		}
		if err := t.allocateDataPage(); err != nil {
			return RowId{}, err
		}
		p, err = t.pool.Fetch(t.lastDataID)
		if err != nil {
			return RowId{}, err
		}
		slot, err = p.AddRow(encoded)
		if err != nil {
			t.pool.Unpin(t.lastDataID, false)
			return RowId{}, err
		}
	} else if err != nil {
		t.pool.Unpin(t.lastDataID, false)
		return RowId{}, err
	}

	if err := t.pool.Unpin(t.lastDataID, true); err != nil {
		return RowId{}, err
	}

	return RowId{PageID: t.lastDataID, SlotID: slot}, nil
}

func (t *Table) allocateDataPage() error {
	p, err := t.pool.NewPage(page.TypeHeapData)
	if err != nil {
		return err
	}
	t.lastDataID = p.PageID()
	return t.pool.Unpin(t.lastDataID, true)
}

// Get fetches and decodes the row at id. A tombstoned or out-of-range
// slot is ErrNotFound.
func (t *Table) Get(id RowId) ([]sqlvalue.Value, error) {
	p, err := t.pool.Fetch(id.PageID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	defer t.pool.Unpin(id.PageID, false)

	raw, ok := p.GetRow(id.SlotID)
	if !ok {
		return nil, ErrNotFound
	}
	return DecodeRow(t.schema, raw)
}

// Delete tombstones the slot at id.
func (t *Table) Delete(id RowId) error {
	p, err := t.pool.Fetch(id.PageID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	if err := p.DeleteRow(id.SlotID); err != nil {
		t.pool.Unpin(id.PageID, false)
		return err
	}
	return t.pool.Unpin(id.PageID, true)
}

// BufferPoolStats returns the table's cumulative buffer pool hit, miss, and
// eviction counts, for metrics export.
func (t *Table) BufferPoolStats() (hits, misses, evictions int64) {
	return t.pool.Stats()
}

// Flush flushes the buffer pool and syncs the disk manager.
func (t *Table) Flush() error {
	if err := t.pool.FlushAll(); err != nil {
		return err
	}
	return t.disk.SyncAll()
}

// Close flushes and releases the table's file handle.
func (t *Table) Close() error {
	if err := t.Flush(); err != nil {
		return err
	}
	return t.disk.Close()
}
