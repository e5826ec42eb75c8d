// ABOUTME: Fixed-frame buffer pool with pin/unpin discipline and LRU eviction
// ABOUTME: The buffer pool is the sole arbiter of page access; pages are borrowed, not owned

package buffer

import (
	"errors"
	"fmt"

	"github.com/nainya/sqlengine/pkg/disk"
	"github.com/nainya/sqlengine/pkg/page"
)

// ErrBufferPoolExhausted is returned when every frame is pinned and a new
// page must be fetched or allocated.
var ErrBufferPoolExhausted = errors.New("buffer: pool exhausted, all frames pinned")

// frame holds one cached page plus its pin/dirty/recency bookkeeping.
type frame struct {
	occupied  bool
	pageID    uint32
	data      *page.Page
	pinCount  int
	dirty     bool
	lastUsed  uint64
}

// Pool is a fixed-capacity, pinning LRU cache of pages for one table's
// DiskManager.
type Pool struct {
	disk      *disk.Manager
	frames    []frame
	pageTable map[uint32]int // page id -> frame index
	tick      uint64

	hits, misses, evictions int64
}

// NewPool creates a pool of capacity frames backed by disk.
func NewPool(d *disk.Manager, capacity int) *Pool {
	return &Pool{
		disk:      d,
		frames:    make([]frame, capacity),
		pageTable: make(map[uint32]int, capacity),
	}
}

// Stats returns cumulative hit/miss/eviction counts, for metrics export.
func (p *Pool) Stats() (hits, misses, evictions int64) {
	return p.hits, p.misses, p.evictions
}

// Fetch pins and returns the page with the given id, reading it from disk
// on a cache miss and possibly evicting an unpinned victim frame.
func (p *Pool) Fetch(id uint32) (*page.Page, error) {
	p.tick++

	if idx, ok := p.pageTable[id]; ok {
		f := &p.frames[idx]
		f.pinCount++
		f.lastUsed = p.tick
		p.hits++
		return f.data, nil
	}

	p.misses++

	idx, err := p.victim()
	if err != nil {
		return nil, err
	}

	if err := p.evict(idx); err != nil {
		return nil, err
	}

	data, err := p.disk.ReadPage(id)
	if err != nil {
		return nil, err
	}

	p.install(idx, id, data)
	f := &p.frames[idx]
	f.pinCount = 1
	f.lastUsed = p.tick
	return f.data, nil
}

// NewPage allocates a fresh page on disk of the given type and pins it.
func (p *Pool) NewPage(typ page.Type) (*page.Page, error) {
	p.tick++

	idx, err := p.victim()
	if err != nil {
		return nil, err
	}
	if err := p.evict(idx); err != nil {
		return nil, err
	}

	data, err := p.disk.AllocatePage(typ)
	if err != nil {
		return nil, err
	}

	p.install(idx, data.PageID(), data)
	f := &p.frames[idx]
	f.pinCount = 1
	f.lastUsed = p.tick
	f.dirty = true
	return f.data, nil
}

// Unpin releases one outstanding pin on page id. dirty, if true, marks the
// frame dirty; it is never cleared by an unpin with dirty=false. pinCount
// must be greater than zero on entry.
func (p *Pool) Unpin(id uint32, dirty bool) error {
	idx, ok := p.pageTable[id]
	if !ok {
		return fmt.Errorf("buffer: unpin of page %d not in pool", id)
	}
	f := &p.frames[idx]
	if f.pinCount <= 0 {
		return fmt.Errorf("buffer: unpin of page %d with zero pin count", id)
	}
	f.pinCount--
	if dirty {
		f.dirty = true
	}
	return nil
}

// FlushPage writes a single frame's page to disk if dirty, clearing dirty.
// It is a no-op if the page is not cached.
func (p *Pool) FlushPage(id uint32) error {
	idx, ok := p.pageTable[id]
	if !ok {
		return nil
	}
	return p.flushFrame(idx)
}

// FlushAll writes every dirty frame to disk, clearing dirty flags. It does
// not evict any frame.
func (p *Pool) FlushAll() error {
	for idx := range p.frames {
		if p.frames[idx].occupied {
			if err := p.flushFrame(idx); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *Pool) flushFrame(idx int) error {
	f := &p.frames[idx]
	if !f.occupied || !f.dirty {
		return nil
	}
	if err := p.disk.WritePage(f.data); err != nil {
		return err
	}
	f.dirty = false
	return nil
}

// victim selects a frame index to (re)use: an empty slot if one exists,
// else the unpinned occupied frame with the smallest lastUsed tick.
func (p *Pool) victim() (int, error) {
	for i := range p.frames {
		if !p.frames[i].occupied {
			return i, nil
		}
	}

	best := -1
	var bestTick uint64
	for i := range p.frames {
		if p.frames[i].pinCount > 0 {
			continue
		}
		if best == -1 || p.frames[i].lastUsed < bestTick {
			best = i
			bestTick = p.frames[i].lastUsed
		}
	}
	if best == -1 {
		return 0, ErrBufferPoolExhausted
	}
	return best, nil
}

// evict writes back a dirty occupied frame (if any) and clears pageTable
// bookkeeping for it, making the frame index reusable.
func (p *Pool) evict(idx int) error {
	f := &p.frames[idx]
	if !f.occupied {
		return nil
	}
	if f.dirty {
		if err := p.disk.WritePage(f.data); err != nil {
			return err
		}
	}
	delete(p.pageTable, f.pageID)
	p.evictions++
	*f = frame{}
	return nil
}

func (p *Pool) install(idx int, id uint32, data *page.Page) {
	p.frames[idx] = frame{occupied: true, pageID: id, data: data}
	p.pageTable[id] = idx
}
