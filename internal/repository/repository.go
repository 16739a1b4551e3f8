// Package repository writes export tables to PostgreSQL.
//
// # Overview
//
// PgExportRepository implements the pipeline sink contract on top of the
// database package. A whole export is written inside one transaction that
// first takes an advisory lock, so concurrent runs against the same database
// serialize instead of interleaving their rows.
//
// # Semantics
//
// Papers, authors and venues are upserted by their natural keys. The keyword
// set of every exported paper is replaced, never merged, so the database
// mirrors the CSV export of the latest run.
//
// # Usage Pattern
//
//	db, _ := database.New(ctx, &cfg.Database, logger)
//	sink := repository.NewPgExportRepository(db.Pool(), logger)
package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/helixir/citegraph/internal/database"
)

// Pool is the subset of *pgxpool.Pool used by the repository. pgxmock pools
// satisfy it as well.
type Pool interface {
	database.DBTX
	database.TxBeginner
}

// batchSender is implemented by pgx.Tx.
type batchSender interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}
