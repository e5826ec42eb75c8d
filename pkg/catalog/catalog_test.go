// ABOUTME: Catalog tests: table/index lifecycle, persistence round-trip, rebuild on Open

package catalog

import (
	"path/filepath"
	"testing"

	"github.com/nainya/sqlengine/pkg/sqlvalue"
)

func usersSchema(t *testing.T) sqlvalue.Schema {
	t.Helper()
	schema, err := sqlvalue.NewSchema([]sqlvalue.Column{
		{Name: "id", Type: sqlvalue.Integer},
		{Name: "name", Type: sqlvalue.Varchar},
	})
	if err != nil {
		t.Fatalf("NewSchema: %v", err)
	}
	return schema
}

func TestCreateTableAndInsertGet(t *testing.T) {
	dir := t.TempDir()
	c, err := Open(dir, 4)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if err := c.CreateTable("users", usersSchema(t)); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	if err := c.CreateTable("users", usersSchema(t)); err == nil {
		t.Fatal("expected duplicate CreateTable to fail")
	}

	tbl, err := c.Table("users")
	if err != nil {
		t.Fatalf("Table: %v", err)
	}
	id, err := tbl.Insert([]sqlvalue.Value{sqlvalue.NewInteger(1), sqlvalue.NewVarchar("Alice")})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	row, err := tbl.Get(id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if row[1].S != "Alice" {
		t.Fatalf("expected Alice, got %v", row)
	}
}

func TestTableNotFound(t *testing.T) {
	dir := t.TempDir()
	c, err := Open(dir, 4)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := c.Table("missing"); err == nil {
		t.Fatal("expected ErrTableNotFound")
	}
}

func TestCreateIndexBuildsFromExistingRows(t *testing.T) {
	dir := t.TempDir()
	c, err := Open(dir, 4)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := c.CreateTable("users", usersSchema(t)); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	tbl, _ := c.Table("users")
	ids := make(map[int64]struct{})
	for i := int64(0); i < 5; i++ {
		id, err := tbl.Insert([]sqlvalue.Value{sqlvalue.NewInteger(i), sqlvalue.NewVarchar("n")})
		if err != nil {
			t.Fatalf("Insert: %v", err)
		}
		_ = id
		ids[i] = struct{}{}
	}

	if err := c.CreateIndex("idx_id", "users", []string{"id"}); err != nil {
		t.Fatalf("CreateIndex: %v", err)
	}

	idx, err := c.Index("idx_id")
	if err != nil {
		t.Fatalf("Index: %v", err)
	}
	for i := int64(0); i < 5; i++ {
		if _, ok := idx.Tree.Search([]int64{i}); !ok {
			t.Fatalf("expected key %d indexed", i)
		}
	}

	if err := c.CreateIndex("idx_id", "users", []string{"id"}); err == nil {
		t.Fatal("expected duplicate CreateIndex to fail")
	}
}

func TestCreateIndexUnknownColumnFails(t *testing.T) {
	dir := t.TempDir()
	c, _ := Open(dir, 4)
	c.CreateTable("users", usersSchema(t))

	if err := c.CreateIndex("idx_bad", "users", []string{"nope"}); err == nil {
		t.Fatal("expected ErrColumnNotFound")
	}
}

func TestDropIndexRemovesFromMetaFile(t *testing.T) {
	dir := t.TempDir()
	c, _ := Open(dir, 4)
	c.CreateTable("users", usersSchema(t))
	if err := c.CreateIndex("idx_id", "users", []string{"id"}); err != nil {
		t.Fatalf("CreateIndex: %v", err)
	}

	if err := c.DropIndex("idx_id"); err != nil {
		t.Fatalf("DropIndex: %v", err)
	}
	if _, err := c.Index("idx_id"); err == nil {
		t.Fatal("expected index to be gone")
	}

	data, err := readMetaFile(filepath.Join(dir, metaFileName))
	if err != nil {
		t.Fatalf("readMetaFile: %v", err)
	}
	if len(data) != 0 {
		t.Fatalf("expected empty meta file after drop, got %v", data)
	}
}

func TestIndexesRebuildOnReopen(t *testing.T) {
	dir := t.TempDir()
	c, err := Open(dir, 4)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	c.CreateTable("users", usersSchema(t))
	tbl, _ := c.Table("users")
	for i := int64(0); i < 3; i++ {
		tbl.Insert([]sqlvalue.Value{sqlvalue.NewInteger(i), sqlvalue.NewVarchar("n")})
	}
	if err := c.CreateIndex("idx_id", "users", []string{"id"}); err != nil {
		t.Fatalf("CreateIndex: %v", err)
	}
	if err := c.FlushAll(); err != nil {
		t.Fatalf("FlushAll: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	c2, err := Open(dir, 4)
	if err != nil {
		t.Fatalf("reopen Open: %v", err)
	}
	idx, err := c2.Index("idx_id")
	if err != nil {
		t.Fatalf("expected idx_id to be rebuilt on reopen: %v", err)
	}
	for i := int64(0); i < 3; i++ {
		if _, ok := idx.Tree.Search([]int64{i}); !ok {
			t.Fatalf("expected key %d present after reopen", i)
		}
	}
}

func TestDropTableRemovesItsIndexes(t *testing.T) {
	dir := t.TempDir()
	c, _ := Open(dir, 4)
	c.CreateTable("users", usersSchema(t))
	c.CreateIndex("idx_id", "users", []string{"id"})

	if err := c.DropTable("users"); err != nil {
		t.Fatalf("DropTable: %v", err)
	}
	if _, err := c.Index("idx_id"); err == nil {
		t.Fatal("expected idx_id to be dropped along with its table")
	}
	if _, err := c.Table("users"); err == nil {
		t.Fatal("expected users table to be gone")
	}
}

func TestIndexesOnPreservesDiscoveryOrder(t *testing.T) {
	dir := t.TempDir()
	c, _ := Open(dir, 4)
	schema, _ := sqlvalue.NewSchema([]sqlvalue.Column{
		{Name: "a", Type: sqlvalue.Integer},
		{Name: "b", Type: sqlvalue.Integer},
	})
	c.CreateTable("t", schema)
	c.CreateIndex("idx_b", "t", []string{"b"})
	c.CreateIndex("idx_a", "t", []string{"a"})

	names := []string{}
	for _, idx := range c.IndexesOn("t") {
		names = append(names, idx.Name)
	}
	if len(names) != 2 || names[0] != "idx_b" || names[1] != "idx_a" {
		t.Fatalf("expected discovery order [idx_b idx_a], got %v", names)
	}
}
