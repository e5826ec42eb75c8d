// SQL Engine process entrypoint
// Boots the catalog, starts the metrics endpoint, and runs a fixed set of
// statements. The SQL tokenizer/parser and any REPL loop are out of scope:
// the statements below are pre-built ast.Statement values exercising the
// engine directly, the way the teacher's examples/*.go exercise KV.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nainya/sqlengine/internal/logger"
	"github.com/nainya/sqlengine/internal/metrics"
	"github.com/nainya/sqlengine/pkg/ast"
	"github.com/nainya/sqlengine/pkg/catalog"
	"github.com/nainya/sqlengine/pkg/executor"
	"github.com/nainya/sqlengine/pkg/sqlvalue"
)

var (
	dataDir      = flag.String("data", "sqlengine-data", "Data directory")
	bufferFrames = flag.Int("buffer-frames", 64, "Buffer pool frame count per table")
	logLevel     = flag.String("log-level", "info", "Log level: debug, info, warn, error")
	metricsPort  = flag.Int("metrics-port", 9090, "Metrics HTTP server port")
)

// observer bridges the catalog's index-rebuild event to both the logger and
// the metrics registry, since pkg/catalog depends on neither directly.
type observer struct {
	log *logger.Logger
	met *metrics.Metrics
}

func (o observer) LogIndexRebuild(name, table string, duration time.Duration, rows int) {
	o.log.LogIndexRebuild(name, table, duration, rows)
}

func (o observer) RecordIndexRebuild(index string, duration time.Duration) {
	o.met.RecordIndexRebuild(index, duration)
}

func main() {
	flag.Parse()

	log := logger.New(logger.Config{Level: *logLevel, Pretty: true})
	met := metrics.New()

	log.Info("starting sql engine").Str("data_dir", *dataDir).Int("buffer_frames", *bufferFrames).Send()

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		addr := fmt.Sprintf(":%d", *metricsPort)
		log.Info("metrics server listening").Str("addr", addr).Send()
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Error("metrics server stopped").Err(err).Send()
		}
	}()

	cat, err := catalog.Open(*dataDir, *bufferFrames)
	if err != nil {
		log.Fatal("catalog open failed").Err(err).Send()
	}
	cat.SetObserver(observer{log: log, met: met})

	runDemo(cat, log, met)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info("shutting down, flushing all tables").Send()
	start := time.Now()
	err = cat.FlushAll()
	log.LogFlush(time.Since(start), err)
	if err != nil {
		os.Exit(1)
	}
	os.Exit(0)
}

// runDemo exercises the engine end to end: schema creation, an index, rows,
// and a single-table SELECT served by that index, via statements it builds
// itself rather than a parser.
func runDemo(cat *catalog.Catalog, log *logger.Logger, met *metrics.Metrics) {
	statements := []ast.Statement{
		ast.CreateTable{Name: "users", Columns: []sqlvalue.Column{
			{Name: "id", Type: sqlvalue.Integer},
			{Name: "name", Type: sqlvalue.Varchar},
			{Name: "age", Type: sqlvalue.Integer},
		}},
		ast.CreateIndex{Name: "idx_users_age", Table: "users", Columns: []string{"age"}},
		ast.Insert{Table: "users", Rows: [][]sqlvalue.Value{
			{sqlvalue.NewInteger(1), sqlvalue.NewVarchar("alice"), sqlvalue.NewInteger(30)},
			{sqlvalue.NewInteger(2), sqlvalue.NewVarchar("bob"), sqlvalue.NewInteger(25)},
		}},
		ast.Select{
			From: "users",
			Where: ast.BinaryOp{
				Op:  ast.Gte,
				LHS: ast.ColRef{Name: "age"},
				RHS: ast.Literal{Value: sqlvalue.NewInteger(30)},
			},
		},
	}

	for _, stmt := range statements {
		kind := fmt.Sprintf("%T", stmt)
		start := time.Now()
		res, err := executor.Execute(cat, stmt)
		duration := time.Since(start)

		status := "ok"
		rows := 0
		if err != nil {
			status = "error"
		} else if res.Select != nil {
			rows = len(res.Select.Rows)
		} else {
			rows = res.RowsAffected
		}
		met.RecordStatement(kind, status, duration)
		log.LogStatement(kind, duration, rows, err)

		if err != nil {
			log.Error("statement failed").Str("kind", kind).Err(err).Send()
			continue
		}
		if res.Select != nil {
			log.Info("select completed").Str("plan", res.Select.Plan).Int("rows", len(res.Select.Rows)).Send()
		}
	}
}
