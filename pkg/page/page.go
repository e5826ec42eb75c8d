// ABOUTME: Slotted page layout: fixed header, forward slot directory, backward row area
// ABOUTME: Rows are a stack from the tail; deletes tombstone the slot rather than compact

package page

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// PageSize is the fixed on-disk and in-memory page size.
const PageSize = 8192

// header layout: page_type u16, page_id u32, num_slots u16, free_space_offset u16
const (
	headerSize       = 10
	slotSize         = 4
	offPageType      = 0
	offPageID        = 2
	offNumSlots      = 6
	offFreeSpaceOff  = 8
)

// Type tags the page's owner so a foreign/corrupt page is detectable on read.
type Type uint16

const (
	TypeInvalid  Type = 0
	TypeMeta     Type = 1
	TypeHeapData Type = 2
)

// MaxRowPayload is the largest payload that could ever fit in a fresh,
// empty page: PageSize minus the header and a single slot entry.
const MaxRowPayload = PageSize - headerSize - slotSize

// ErrPageFull is returned by AddRow when the payload does not fit.
var ErrPageFull = errors.New("page: full")

// ErrCorruptPage is returned when a page's header or slot directory is inconsistent.
var ErrCorruptPage = errors.New("page: corrupt")

// Page is an 8192-byte slotted page. The zero value is not valid; use New or Wrap.
type Page struct {
	buf [PageSize]byte
}

// New allocates a zeroed page with the given type and id, header initialized,
// free_space_offset pointing past an empty slot directory.
func New(pageID uint32, typ Type) *Page {
	p := &Page{}
	p.SetType(typ)
	p.setPageID(pageID)
	p.setNumSlots(0)
	p.setFreeSpaceOffset(headerSize)
	return p
}

// Wrap interprets an existing PageSize-byte slice as a Page, copying it in.
// It does not validate contents; callers can check Type().
func Wrap(data []byte) (*Page, error) {
	if len(data) != PageSize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrCorruptPage, PageSize, len(data))
	}
	p := &Page{}
	copy(p.buf[:], data)
	return p, nil
}

// Bytes returns the page's raw bytes for writing to disk. The returned slice
// aliases the page's internal buffer and must not be retained past reuse.
func (p *Page) Bytes() []byte { return p.buf[:] }

// Type returns the page's type tag.
func (p *Page) Type() Type {
	return Type(binary.LittleEndian.Uint16(p.buf[offPageType:]))
}

// SetType sets the page's type tag.
func (p *Page) SetType(t Type) {
	binary.LittleEndian.PutUint16(p.buf[offPageType:], uint16(t))
}

// PageID returns the page's id as stored in its header.
func (p *Page) PageID() uint32 {
	return binary.LittleEndian.Uint32(p.buf[offPageID:])
}

func (p *Page) setPageID(id uint32) {
	binary.LittleEndian.PutUint32(p.buf[offPageID:], id)
}

// NumSlots returns the number of slot directory entries (including tombstones).
func (p *Page) NumSlots() uint16 {
	return binary.LittleEndian.Uint16(p.buf[offNumSlots:])
}

func (p *Page) setNumSlots(n uint16) {
	binary.LittleEndian.PutUint16(p.buf[offNumSlots:], n)
}

func (p *Page) freeSpaceOffset() uint16 {
	return binary.LittleEndian.Uint16(p.buf[offFreeSpaceOff:])
}

func (p *Page) setFreeSpaceOffset(off uint16) {
	binary.LittleEndian.PutUint16(p.buf[offFreeSpaceOff:], off)
}

func slotPos(idx uint16) int {
	return headerSize + int(idx)*slotSize
}

func (p *Page) slotOffset(idx uint16) uint16 {
	pos := slotPos(idx)
	return binary.LittleEndian.Uint16(p.buf[pos:])
}

func (p *Page) slotLength(idx uint16) uint16 {
	pos := slotPos(idx)
	return binary.LittleEndian.Uint16(p.buf[pos+2:])
}

func (p *Page) setSlot(idx uint16, offset, length uint16) {
	pos := slotPos(idx)
	binary.LittleEndian.PutUint16(p.buf[pos:], offset)
	binary.LittleEndian.PutUint16(p.buf[pos+2:], length)
}

// usedRowBytes is the number of bytes currently occupied in the row area,
// i.e. the distance from the tail of the page to the lowest row start.
func (p *Page) usedRowBytes() uint16 {
	return PageSize - p.tailOffset()
}

// tailOffset is the offset of the lowest-addressed byte currently in use
// by a row payload; PageSize if the row area is empty.
func (p *Page) tailOffset() uint16 {
	tail := uint16(PageSize)
	n := p.NumSlots()
	for i := uint16(0); i < n; i++ {
		length := p.slotLength(i)
		if length == 0 {
			continue
		}
		off := p.slotOffset(i)
		if off < tail {
			tail = off
		}
	}
	return tail
}

// freeSpace is the number of bytes available for a new slot entry + payload.
func (p *Page) freeSpace() int {
	dirEnd := int(p.freeSpaceOffset())
	tail := int(p.tailOffset())
	return tail - dirEnd
}

// AddRow appends bytes to the row area and a new slot entry pointing at it,
// returning the new slot's index. Fails with ErrPageFull if there is not
// enough contiguous free space for both the slot entry and the payload.
func (p *Page) AddRow(data []byte) (uint16, error) {
	need := slotSize + len(data)
	if need > p.freeSpace() {
		return 0, ErrPageFull
	}

	tail := p.tailOffset()
	newOffset := tail - uint16(len(data))
	copy(p.buf[newOffset:], data)

	idx := p.NumSlots()
	p.setNumSlots(idx + 1)
	p.setSlot(idx, newOffset, uint16(len(data)))
	p.setFreeSpaceOffset(p.freeSpaceOffset() + slotSize)

	return idx, nil
}

// GetRow returns the payload for slot, or false if the slot is out of
// range or tombstoned (length == 0).
func (p *Page) GetRow(slot uint16) ([]byte, bool) {
	if slot >= p.NumSlots() {
		return nil, false
	}
	length := p.slotLength(slot)
	if length == 0 {
		return nil, false
	}
	off := p.slotOffset(slot)
	out := make([]byte, length)
	copy(out, p.buf[off:off+length])
	return out, true
}

// UpdateRow overwrites an existing slot's payload in place. The new payload
// must have the same length as the current one (fixed-size update).
func (p *Page) UpdateRow(slot uint16, data []byte) error {
	if slot >= p.NumSlots() {
		return fmt.Errorf("%w: slot %d out of range", ErrCorruptPage, slot)
	}
	length := p.slotLength(slot)
	if length == 0 {
		return fmt.Errorf("page: slot %d is a tombstone", slot)
	}
	if int(length) != len(data) {
		return fmt.Errorf("page: update_row requires matching length (have %d, got %d)", length, len(data))
	}
	off := p.slotOffset(slot)
	copy(p.buf[off:off+length], data)
	return nil
}

// DeleteRow tombstones a slot by zeroing its length; the payload bytes are
// not reclaimed (compaction is out of scope).
func (p *Page) DeleteRow(slot uint16) error {
	if slot >= p.NumSlots() {
		return fmt.Errorf("%w: slot %d out of range", ErrCorruptPage, slot)
	}
	off := p.slotOffset(slot)
	p.setSlot(slot, off, 0)
	return nil
}

// IsTombstone reports whether slot is in range and deleted.
func (p *Page) IsTombstone(slot uint16) bool {
	if slot >= p.NumSlots() {
		return false
	}
	return p.slotLength(slot) == 0
}
