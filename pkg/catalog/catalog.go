// ABOUTME: Process-wide table and index directory, the single owned structure
// ABOUTME: threaded through the planner and executor; no package-level state

package catalog

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nainya/sqlengine/pkg/btree"
	"github.com/nainya/sqlengine/pkg/heap"
	"github.com/nainya/sqlengine/pkg/sqlvalue"
)

// Observer receives catalog-level events for logging and metrics. Both
// *internal/logger.Logger and *internal/metrics.Metrics are adapted to this
// by cmd/sqlengine, keeping pkg/catalog free of a dependency on either.
type Observer interface {
	LogIndexRebuild(name, table string, duration time.Duration, rows int)
	RecordIndexRebuild(index string, duration time.Duration)
}

type noopObserver struct{}

func (noopObserver) LogIndexRebuild(string, string, time.Duration, int) {}
func (noopObserver) RecordIndexRebuild(string, time.Duration)           {}

// ErrTableNotFound is returned when a statement references an unknown table.
var ErrTableNotFound = errors.New("catalog: table not found")

// ErrTableExists is returned by CreateTable on a duplicate name.
var ErrTableExists = errors.New("catalog: table already exists")

// ErrIndexNotFound is returned when a statement references an unknown index.
var ErrIndexNotFound = errors.New("catalog: index not found")

// ErrIndexExists is returned by CreateIndex on a duplicate name.
var ErrIndexExists = errors.New("catalog: index already exists")

// ErrColumnNotFound is returned when CreateIndex names a column the table
// does not have.
var ErrColumnNotFound = errors.New("catalog: column not found")

const metaFileName = "indexes.meta"

const defaultBufferFrames = 64

// Index is one live index: its metadata plus the in-memory tree backing it.
type Index struct {
	Name    string
	Table   string
	Columns []string
	Tree    *btree.Tree
}

// Catalog owns every open table and every live index for one data directory.
// It is passed explicitly through the planner and executor; there is no
// package-level global.
type Catalog struct {
	dir          string
	bufferFrames int

	tables     map[string]*heap.Table
	indexes    map[string]*Index
	indexOrder []string // discovery order, used for planner tie-breaking and indexes.meta

	observer Observer
}

// SetObserver installs the logging/metrics sink used for index rebuilds.
// A Catalog with no Observer set reports nothing, silently.
func (c *Catalog) SetObserver(o Observer) {
	if o == nil {
		o = noopObserver{}
	}
	c.observer = o
}

// Open loads (creating if necessary) the catalog rooted at dataDir: it opens
// every table file already present is NOT done eagerly (tables open lazily
// on first use via Table/CreateTable), but every index recorded in
// indexes.meta is rebuilt immediately by scanning its table.
func Open(dataDir string, bufferFrames int) (*Catalog, error) {
	if bufferFrames <= 0 {
		bufferFrames = defaultBufferFrames
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("catalog: mkdir %s: %w", dataDir, err)
	}

	c := &Catalog{
		dir:          dataDir,
		bufferFrames: bufferFrames,
		tables:       make(map[string]*heap.Table),
		indexes:      make(map[string]*Index),
		observer:     noopObserver{},
	}

	records, err := readMetaFile(c.metaPath())
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		if err := c.rebuildIndex(rec); err != nil {
			return nil, fmt.Errorf("catalog: rebuild index %s: %w", rec.name, err)
		}
	}
	return c, nil
}

func (c *Catalog) metaPath() string {
	return filepath.Join(c.dir, metaFileName)
}

func (c *Catalog) tablePath(name string) string {
	return filepath.Join(c.dir, name+".db")
}

// CreateTable creates a new table file and registers it with the catalog.
func (c *Catalog) CreateTable(name string, schema sqlvalue.Schema) error {
	if _, exists := c.tables[name]; exists {
		return fmt.Errorf("%w: %s", ErrTableExists, name)
	}
	if _, err := os.Stat(c.tablePath(name)); err == nil {
		return fmt.Errorf("%w: %s", ErrTableExists, name)
	}

	t, err := heap.Create(name, schema, c.tablePath(name), c.bufferFrames)
	if err != nil {
		return err
	}
	c.tables[name] = t
	return nil
}

// DropTable removes a table from the catalog, closes its file, deletes it
// from disk, and drops every index defined on it.
func (c *Catalog) DropTable(name string) error {
	t, err := c.Table(name)
	if err != nil {
		return err
	}
	if err := t.Close(); err != nil {
		return err
	}
	delete(c.tables, name)

	kept := c.indexOrder[:0]
	for _, idxName := range c.indexOrder {
		if c.indexes[idxName].Table == name {
			delete(c.indexes, idxName)
			continue
		}
		kept = append(kept, idxName)
	}
	c.indexOrder = kept
	if err := c.writeMetaFile(); err != nil {
		return err
	}

	if err := os.Remove(c.tablePath(name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("catalog: remove %s: %w", name, err)
	}
	return nil
}

// Table returns the named table, opening it from disk on first reference.
func (c *Catalog) Table(name string) (*heap.Table, error) {
	if t, ok := c.tables[name]; ok {
		return t, nil
	}
	if _, err := os.Stat(c.tablePath(name)); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, name)
	}
	t, err := heap.Open(c.tablePath(name), c.bufferFrames)
	if err != nil {
		return nil, err
	}
	c.tables[name] = t
	return t, nil
}

// CreateIndex builds a fresh in-memory tree over table's columns by scanning
// every live row, registers it, and persists the updated metadata file.
func (c *Catalog) CreateIndex(name, table string, columns []string) error {
	if _, exists := c.indexes[name]; exists {
		return fmt.Errorf("%w: %s", ErrIndexExists, name)
	}
	t, err := c.Table(table)
	if err != nil {
		return err
	}
	positions, err := columnPositions(t.Schema(), columns)
	if err != nil {
		return err
	}

	start := time.Now()
	tree := btree.New(len(columns))
	scan := heap.NewScan(t)
	defer scan.Close()
	rows := 0
	for {
		id, row, ok, err := scan.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		key, err := compositeKey(row, positions)
		if err != nil {
			return err
		}
		if err := tree.Insert(key, id); err != nil {
			return err
		}
		rows++
	}
	duration := time.Since(start)
	c.observer.LogIndexRebuild(name, table, duration, rows)
	c.observer.RecordIndexRebuild(name, duration)

	c.indexes[name] = &Index{Name: name, Table: table, Columns: append([]string(nil), columns...), Tree: tree}
	c.indexOrder = append(c.indexOrder, name)
	return c.writeMetaFile()
}

// DropIndex removes name from the catalog and rewrites the metadata file.
// There is no physical index file to reclaim: indexes are in-memory only,
// rebuilt from the table at the next Open.
func (c *Catalog) DropIndex(name string) error {
	if _, ok := c.indexes[name]; !ok {
		return fmt.Errorf("%w: %s", ErrIndexNotFound, name)
	}
	delete(c.indexes, name)
	for i, n := range c.indexOrder {
		if n == name {
			c.indexOrder = append(c.indexOrder[:i], c.indexOrder[i+1:]...)
			break
		}
	}
	return c.writeMetaFile()
}

// Index returns the named index.
func (c *Catalog) Index(name string) (*Index, error) {
	idx, ok := c.indexes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, name)
	}
	return idx, nil
}

// IndexesOn returns every index defined on table, in discovery order (the
// order CreateIndex was called, or the order indexes.meta listed them at
// Open). The planner relies on this order to break ties between equally
// good indexes.
func (c *Catalog) IndexesOn(table string) []*Index {
	var out []*Index
	for _, name := range c.indexOrder {
		idx := c.indexes[name]
		if idx.Table == table {
			out = append(out, idx)
		}
	}
	return out
}

// BufferPoolStats returns the named table's cumulative buffer pool hit,
// miss, and eviction counts, for periodic export to metrics.
func (c *Catalog) BufferPoolStats(table string) (hits, misses, evictions int64, err error) {
	t, err := c.Table(table)
	if err != nil {
		return 0, 0, 0, err
	}
	hits, misses, evictions = t.BufferPoolStats()
	return hits, misses, evictions, nil
}

// FlushAll flushes every open table's buffer pool and syncs its file. This
// is the only persistence boundary; data written without a flush is lost
// across a restart.
func (c *Catalog) FlushAll() error {
	for _, t := range c.tables {
		if err := t.Flush(); err != nil {
			return err
		}
	}
	return nil
}

// Close flushes and closes every open table.
func (c *Catalog) Close() error {
	for name, t := range c.tables {
		if err := t.Close(); err != nil {
			return err
		}
		delete(c.tables, name)
	}
	return nil
}

func columnPositions(schema sqlvalue.Schema, columns []string) ([]int, error) {
	positions := make([]int, len(columns))
	for i, col := range columns {
		pos := schema.IndexOf(col)
		if pos == -1 {
			return nil, fmt.Errorf("%w: %s", ErrColumnNotFound, col)
		}
		positions[i] = pos
	}
	return positions, nil
}

// compositeKey builds a btree.Key from row's indexed columns, which must
// all be INTEGER (the B+Tree only orders i64 tuples).
func compositeKey(row []sqlvalue.Value, positions []int) (btree.Key, error) {
	key := make(btree.Key, len(positions))
	for i, pos := range positions {
		v := row[pos]
		if v.Kind != sqlvalue.Integer {
			return nil, fmt.Errorf("catalog: indexed column must be INTEGER, got %s", v.Kind)
		}
		key[i] = v.I
	}
	return key, nil
}

type indexRecord struct {
	name    string
	table   string
	columns []string
}

func readMetaFile(path string) ([]indexRecord, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: open %s: %w", path, err)
	}
	defer f.Close()

	var records []indexRecord
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		rec, err := parseMetaLine(line)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	return records, nil
}

func parseMetaLine(line string) (indexRecord, error) {
	parts := strings.Split(line, "|")
	if len(parts) != 3 {
		return indexRecord{}, fmt.Errorf("catalog: malformed indexes.meta line %q", line)
	}
	cols := strings.Split(parts[2], ",")
	return indexRecord{name: parts[0], table: parts[1], columns: cols}, nil
}

func (c *Catalog) rebuildIndex(rec indexRecord) error {
	return c.CreateIndex(rec.name, rec.table, rec.columns)
}

// writeMetaFile rewrites indexes.meta in full from the in-memory index set,
// preserving discovery order.
func (c *Catalog) writeMetaFile() error {
	var b strings.Builder
	for _, name := range c.indexOrder {
		idx := c.indexes[name]
		fmt.Fprintf(&b, "%s|%s|%s\n", idx.Name, idx.Table, strings.Join(idx.Columns, ","))
	}
	return os.WriteFile(c.metaPath(), []byte(b.String()), 0o644)
}
