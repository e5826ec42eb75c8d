// ABOUTME: Executor-local sentinels plus the classifier that groups any error
// ABOUTME: surfaced from below into the engine's Catalog/Schema/Storage/IO/Resource classes

package executor

import (
	"errors"
	"fmt"

	"github.com/nainya/sqlengine/pkg/buffer"
	"github.com/nainya/sqlengine/pkg/catalog"
	"github.com/nainya/sqlengine/pkg/disk"
	"github.com/nainya/sqlengine/pkg/heap"
	"github.com/nainya/sqlengine/pkg/page"
	"github.com/nainya/sqlengine/pkg/sqlvalue"
)

// ErrColumnNotFound is returned when a residual predicate or join equality
// check names a column absent from the row's schema at execution time.
var ErrColumnNotFound = errors.New("executor: column not found")

// ErrNonIntegerJoinKey is returned when an indexed nested-loop join tries to
// re-range its inner scan on an outer value that isn't INTEGER.
var ErrNonIntegerJoinKey = errors.New("executor: indexed join column must be INTEGER")

func errColumnNotFound(name string) error {
	return fmt.Errorf("%w: %s", ErrColumnNotFound, name)
}

// Class is the error taxonomy of the engine's error handling design: callers
// use it to decide whether a failed statement is merely recoverable
// (Schema, Catalog, Storage), demands aborting just the current statement
// (Resource), or is fatal after a best-effort flush (I/O). There is no
// separate Parse or Plan class: errors with no sentinel listed in Classify,
// planner errors included, are ClassUnknown.
type Class int

const (
	ClassUnknown Class = iota
	ClassCatalog
	ClassSchema
	ClassStorage
	ClassIO
	ClassResource
)

func (c Class) String() string {
	switch c {
	case ClassCatalog:
		return "catalog"
	case ClassSchema:
		return "schema"
	case ClassStorage:
		return "storage"
	case ClassIO:
		return "io"
	case ClassResource:
		return "resource"
	default:
		return "unknown"
	}
}

// Classify maps an error surfaced from any lower package to its taxonomy
// class via errors.Is, the way a caller decides fatal-vs-recoverable.
func Classify(err error) Class {
	switch {
	case err == nil:
		return ClassUnknown
	case errors.Is(err, sqlvalue.ErrTypeMismatch):
		return ClassSchema
	case errors.Is(err, catalog.ErrTableNotFound),
		errors.Is(err, catalog.ErrTableExists),
		errors.Is(err, catalog.ErrIndexNotFound),
		errors.Is(err, catalog.ErrIndexExists),
		errors.Is(err, catalog.ErrColumnNotFound),
		errors.Is(err, ErrColumnNotFound):
		return ClassCatalog
	case errors.Is(err, heap.ErrNotFound),
		errors.Is(err, heap.ErrRowTooLarge),
		errors.Is(err, heap.ErrCorruptRow),
		errors.Is(err, page.ErrPageFull),
		errors.Is(err, page.ErrCorruptPage):
		return ClassStorage
	case errors.Is(err, buffer.ErrBufferPoolExhausted):
		return ClassResource
	case errors.Is(err, disk.ErrPageNotFound):
		return ClassIO
	default:
		return ClassUnknown
	}
}
