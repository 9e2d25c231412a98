package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"

	"RealEstateCrawler/internal/dedup"
	"RealEstateCrawler/internal/domain"
	"RealEstateCrawler/internal/ports"
)

// SQLiteStore persists listings into a single SQLite table. Writes are
// serialised and every batch runs in one transaction.
type SQLiteStore struct {
	db     *sql.DB
	schema Schema
	logger *slog.Logger

	mu sync.Mutex
}

var _ ports.ListingSink = (*SQLiteStore)(nil)

// Open connects to the database file at path and creates the table.
func Open(ctx context.Context, path string, schema Schema, logger *slog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	store := NewSQLiteStore(db, schema, logger)
	if err := store.Init(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// NewSQLiteStore wraps an existing handle. Call Init before use.
func NewSQLiteStore(db *sql.DB, schema Schema, logger *slog.Logger) *SQLiteStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SQLiteStore{db: db, schema: schema, logger: logger}
}

// Init creates the schema's table and indexes when they are missing.
func (s *SQLiteStore) Init(ctx context.Context) error {
	for _, stmt := range s.schema.DDL() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init %s schema: %w", s.schema.Name, err)
		}
	}
	return nil
}

// Analytics returns the read-side queries over the same handle.
func (s *SQLiteStore) Analytics() *Analytics {
	return NewAnalytics(s.db, s.schema)
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Accept stores one record unless it duplicates a stored row.
func (s *SQLiteStore) Accept(ctx context.Context, rec domain.ListingRecord) (domain.SinkOutcome, error) {
	outcomes, err := s.AcceptBatch(ctx, []domain.ListingRecord{rec})
	if err != nil {
		return "", err
	}
	return outcomes[0], nil
}

// AcceptBatch deduplicates recs against the table and against each other,
// then inserts the survivors. The first record under a key wins; stored rows
// are never overwritten. Outcomes are returned in input order.
func (s *SQLiteStore) AcceptBatch(ctx context.Context, recs []domain.ListingRecord) (outcomes []domain.SinkOutcome, err error) {
	if len(recs) == 0 {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin batch: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	seen, err := s.loadKeys(ctx, tx)
	if err != nil {
		return nil, err
	}

	columns := s.schema.Columns()
	outcomes = make([]domain.SinkOutcome, 0, len(recs))
	inserted := 0
	for _, rec := range recs {
		outcome := seen.Observe(rec)
		outcomes = append(outcomes, outcome)
		if outcome != domain.OutcomeInserted {
			s.logger.Debug("duplicate skipped", "title", rec.Title, "property_code", rec.PropertyCode)
			continue
		}

		query, args, buildErr := sq.Insert(s.schema.Table).
			Columns(columns...).
			Values(s.schema.Values(rec)...).
			ToSql()
		if buildErr != nil {
			return nil, fmt.Errorf("build insert: %w", buildErr)
		}
		if _, err = tx.ExecContext(ctx, query, args...); err != nil {
			return nil, fmt.Errorf("insert %q: %w", rec.Title, err)
		}
		inserted++
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit batch: %w", err)
	}

	s.logger.Info("batch stored", "table", s.schema.Table, "received", len(recs), "inserted", inserted)
	return outcomes, nil
}

// Count returns the number of stored rows.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	query, args, err := sq.Select("COUNT(*)").From(s.schema.Table).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count: %w", err)
	}
	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count rows: %w", err)
	}
	return n, nil
}

// loadKeys seeds a dedup set with every stored row's identity.
func (s *SQLiteStore) loadKeys(ctx context.Context, tx *sql.Tx) (*dedup.Set, error) {
	columns := []string{"title", "posted_time"}
	if s.schema.Detailed {
		columns = append(columns, "street", "COALESCE(property_code, '')")
	}

	query, args, err := sq.Select(columns...).From(s.schema.Table).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build key query: %w", err)
	}

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("load stored keys: %w", err)
	}
	defer rows.Close()

	set := dedup.New()
	for rows.Next() {
		var rec domain.ListingRecord
		var posted string
		dest := []any{&rec.Title, &posted}
		if s.schema.Detailed {
			dest = append(dest, &rec.Street, &rec.PropertyCode)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan stored key: %w", err)
		}
		if t, perr := time.Parse(isoDate, posted); perr == nil {
			rec.PostedTime = t
		}
		set.Seed(rec.PropertyCode, dedup.KeyOf(rec))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stored keys: %w", err)
	}
	return set, nil
}
