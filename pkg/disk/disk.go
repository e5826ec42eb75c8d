// ABOUTME: Durable block I/O for a single table file, one file per table
// ABOUTME: Append-only allocation; writes are data-synced, matching fdatasync semantics

package disk

import (
	"errors"
	"fmt"
	"os"
	"syscall"

	"github.com/nainya/sqlengine/pkg/page"
)

// ErrPageNotFound is returned when reading past the end of the file.
var ErrPageNotFound = errors.New("disk: page not found")

// Manager owns exclusive block I/O for one table's file.
type Manager struct {
	path string
	file *os.File
}

// Open opens (creating if necessary) the file at path for exclusive use by
// one Manager.
func Open(path string) (*Manager, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("disk: open %s: %w", path, err)
	}
	return &Manager{path: path, file: f}, nil
}

// Path returns the file path this Manager owns.
func (m *Manager) Path() string { return m.path }

// NumPages returns file size / PageSize.
func (m *Manager) NumPages() (uint32, error) {
	info, err := m.file.Stat()
	if err != nil {
		return 0, fmt.Errorf("disk: stat: %w", err)
	}
	return uint32(info.Size() / page.PageSize), nil
}

// ReadPage reads exactly PageSize bytes from offset id*PageSize.
// Returns ErrPageNotFound if the read runs past the end of the file.
func (m *Manager) ReadPage(id uint32) (*page.Page, error) {
	buf := make([]byte, page.PageSize)
	n, err := m.file.ReadAt(buf, int64(id)*page.PageSize)
	if err != nil && n != page.PageSize {
		return nil, fmt.Errorf("%w: page %d: %v", ErrPageNotFound, id, err)
	}
	return page.Wrap(buf)
}

// WritePage writes a page at its own PageID's offset and data-syncs.
func (m *Manager) WritePage(p *page.Page) error {
	_, err := m.file.WriteAt(p.Bytes(), int64(p.PageID())*page.PageSize)
	if err != nil {
		return fmt.Errorf("disk: write page %d: %w", p.PageID(), err)
	}
	return m.dataSync()
}

// AllocatePage appends a zeroed, headered page at the current end of file
// and returns its id, which equals the previous NumPages().
func (m *Manager) AllocatePage(typ page.Type) (*page.Page, error) {
	id, err := m.NumPages()
	if err != nil {
		return nil, err
	}
	p := page.New(id, typ)
	if err := m.WritePage(p); err != nil {
		return nil, err
	}
	return p, nil
}

// SyncAll flushes any OS-level buffering for this file. Called on shutdown.
func (m *Manager) SyncAll() error {
	if err := m.file.Sync(); err != nil {
		return fmt.Errorf("disk: sync: %w", err)
	}
	return nil
}

// Close closes the underlying file.
func (m *Manager) Close() error {
	return m.file.Close()
}

// dataSync performs a data-only sync (fdatasync) where the platform supports
// it, falling back to a full Sync otherwise.
func (m *Manager) dataSync() error {
	if err := syscall.Fdatasync(int(m.file.Fd())); err != nil {
		if errors.Is(err, syscall.ENOSYS) || errors.Is(err, syscall.EINVAL) {
			return m.file.Sync()
		}
		return fmt.Errorf("disk: fdatasync: %w", err)
	}
	return nil
}
