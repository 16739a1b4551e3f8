package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/citegraph/internal/domain"
	"github.com/helixir/citegraph/internal/export"
	"github.com/helixir/citegraph/internal/observability"
)

func intPtr(v int) *int { return &v }

func newTestTables() *export.Tables {
	return &export.Tables{
		Papers: []export.PaperRow{
			{
				PaperID:       "p1",
				Title:         "Graph Mining",
				CitationCount: intPtr(3),
				Venue:         "Data Mining Conference",
				VenueType:     domain.VenueTypeConference,
				Year:          intPtr(2020),
				Keywords:      []string{"data mining", "graphs"},
				References:    []string{"p2"},
				AuthorIDs:     []string{"a1"},
			},
			{
				PaperID:   "p2",
				Title:     "Warehouses",
				VenueType: domain.VenueTypeUnknown,
			},
		},
		Authors: []export.AuthorRow{
			{AuthorID: "a1", Name: "Ada", Affiliations: []string{"Uni"}},
		},
		Venues: []export.VenueRow{
			{VenueType: domain.VenueTypeConference, Name: "Data Mining Conference"},
		},
		PaperKeywords: []export.KeywordRow{
			{PaperID: "p1", Keyword: "data mining"},
			{PaperID: "p1", Keyword: "graphs"},
		},
	}
}

func newTestRepository(mock pgxmock.PgxPoolIface) *PgExportRepository {
	repo := NewPgExportRepository(mock, zerolog.Nop())
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	repo.now = func() time.Time { return fixed }
	return repo
}

func TestPgExportRepository_Name(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	assert.Equal(t, "postgres", NewPgExportRepository(mock, zerolog.Nop()).Name())
}

func TestPgExportRepository_Write(t *testing.T) {
	ctx := observability.WithRunID(context.Background(), "run-1")

	t.Run("writes all tables in one transaction", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := newTestRepository(mock)
		tables := newTestTables()

		mock.ExpectBegin()
		mock.ExpectExec("SELECT pg_advisory_xact_lock").
			WithArgs(ExportLockKey).
			WillReturnResult(pgxmock.NewResult("SELECT", 1))

		papers := mock.ExpectBatch()
		for _, p := range tables.Papers {
			papers.ExpectExec("INSERT INTO papers").
				WithArgs(
					p.PaperID, p.Title, p.Abstract, p.DOI, p.URL, pgxmock.AnyArg(),
					p.Venue, string(p.VenueType), pgxmock.AnyArg(), nonNil(p.Keywords),
					p.Pages, nonNil(p.References), nonNil(p.AuthorIDs), "run-1", pgxmock.AnyArg(),
				).
				WillReturnResult(pgxmock.NewResult("INSERT", 1))
		}

		authors := mock.ExpectBatch()
		authors.ExpectExec("INSERT INTO authors").
			WithArgs("a1", "Ada", []string{"Uni"}, "run-1", pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		venues := mock.ExpectBatch()
		venues.ExpectExec("INSERT INTO venues").
			WithArgs("Conference", "Data Mining Conference", "", "", "run-1", pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		mock.ExpectExec("DELETE FROM paper_keywords").
			WithArgs([]string{"p1", "p2"}).
			WillReturnResult(pgxmock.NewResult("DELETE", 0))

		keywords := mock.ExpectBatch()
		keywords.ExpectExec("INSERT INTO paper_keywords").
			WithArgs("p1", "data mining").
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		keywords.ExpectExec("INSERT INTO paper_keywords").
			WithArgs("p1", "graphs").
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		mock.ExpectCommit()

		require.NoError(t, repo.Write(ctx, tables))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("splits rows into batches", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := newTestRepository(mock).WithBatchSize(1)
		tables := &export.Tables{
			Authors: []export.AuthorRow{
				{AuthorID: "a1", Name: "Ada"},
				{AuthorID: "a2", Name: "Grace"},
			},
		}

		mock.ExpectBegin()
		mock.ExpectExec("SELECT pg_advisory_xact_lock").
			WithArgs(ExportLockKey).
			WillReturnResult(pgxmock.NewResult("SELECT", 1))
		for _, a := range tables.Authors {
			b := mock.ExpectBatch()
			b.ExpectExec("INSERT INTO authors").
				WithArgs(a.AuthorID, a.Name, []string{}, "run-1", pgxmock.AnyArg()).
				WillReturnResult(pgxmock.NewResult("INSERT", 1))
		}
		mock.ExpectCommit()

		require.NoError(t, repo.Write(ctx, tables))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back when the lock cannot be taken", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := newTestRepository(mock)
		lockErr := errors.New("lock timeout")

		mock.ExpectBegin()
		mock.ExpectExec("SELECT pg_advisory_xact_lock").
			WithArgs(ExportLockKey).
			WillReturnError(lockErr)
		mock.ExpectRollback()

		err = repo.Write(ctx, newTestTables())
		require.Error(t, err)
		assert.ErrorIs(t, err, lockErr)
		assert.Contains(t, err.Error(), "acquire export lock")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on failed begin", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin().WillReturnError(errors.New("connection refused"))

		err = newTestRepository(mock).Write(ctx, newTestTables())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to begin transaction")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects nil tables", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		err = newTestRepository(mock).Write(ctx, nil)
		var validationErr *domain.ValidationError
		require.True(t, errors.As(err, &validationErr))
		assert.Equal(t, "tables", validationErr.Field)
	})
}

func TestNonNil(t *testing.T) {
	assert.Equal(t, []string{}, nonNil(nil))
	assert.Equal(t, []string{"a"}, nonNil([]string{"a"}))
}
