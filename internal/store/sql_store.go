package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"designforge/internal/types"
)

const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite"
)

// SQLStore keeps records in a design_records table. Postgres and SQLite
// share the same statements; placeholders are rewritten per driver.
type SQLStore struct {
	db     *sql.DB
	driver string

	schemaOnce sync.Once
	schemaErr  error

	cache *lru.Cache[string, Record]
}

func NewSQLStore(driver, dsn string) (*SQLStore, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("%s dsn is required", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	}
	return newSQLStore(db, driver)
}

func newSQLStore(db *sql.DB, driver string) (*SQLStore, error) {
	cache, err := lru.New[string, Record](256)
	if err != nil {
		return nil, err
	}
	s := &SQLStore{db: db, driver: driver, cache: cache}
	if err := s.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) ensureSchema(ctx context.Context) error {
	s.schemaOnce.Do(func() {
		_, s.schemaErr = s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS design_records (
  id TEXT PRIMARY KEY,
  created_ms BIGINT NOT NULL,
  date TEXT NOT NULL DEFAULT '',
  product_name TEXT NOT NULL DEFAULT '',
  product_type TEXT NOT NULL DEFAULT '',
  packet TEXT NOT NULL
)`)
		if s.schemaErr != nil {
			return
		}
		_, s.schemaErr = s.db.ExecContext(ctx,
			`CREATE INDEX IF NOT EXISTS idx_design_records_created ON design_records (created_ms)`)
	})
	if s.schemaErr != nil {
		return fmt.Errorf("ensure schema: %w", s.schemaErr)
	}
	return nil
}

// bind rewrites ? placeholders to $n for Postgres.
func (s *SQLStore) bind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQLStore) Put(ctx context.Context, rec Record) error {
	rec.ID = strings.TrimSpace(rec.ID)
	if err := validateRecord(rec); err != nil {
		return err
	}
	created, _ := parseID(rec.ID)
	packet, err := json.Marshal(rec.Packet)
	if err != nil {
		return fmt.Errorf("encode packet: %w", err)
	}
	_, err = s.db.ExecContext(ctx, s.bind(`
INSERT INTO design_records (id, created_ms, date, product_name, product_type, packet)
VALUES (?,?,?,?,?,?)
ON CONFLICT (id)
DO UPDATE SET created_ms=EXCLUDED.created_ms,
  date=EXCLUDED.date,
  product_name=EXCLUDED.product_name,
  product_type=EXCLUDED.product_type,
  packet=EXCLUDED.packet`),
		rec.ID, created, rec.Date, rec.ProductName, string(rec.ProductType), string(packet))
	if err != nil {
		return fmt.Errorf("upsert record %s: %w", rec.ID, err)
	}
	s.cache.Remove(rec.ID)
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var (
		rec    Record
		ptype  string
		packet string
	)
	if err := row.Scan(&rec.ID, &rec.Date, &rec.ProductName, &ptype, &packet); err != nil {
		return Record{}, err
	}
	rec.ProductType = types.ProductType(ptype)
	if err := json.Unmarshal([]byte(packet), &rec.Packet); err != nil {
		return Record{}, fmt.Errorf("decode packet %s: %w", rec.ID, err)
	}
	return rec, nil
}

func (s *SQLStore) Get(ctx context.Context, id string) (Record, error) {
	id = strings.TrimSpace(id)
	if rec, ok := s.cache.Get(id); ok {
		return cloneRecord(rec)
	}
	row := s.db.QueryRowContext(ctx, s.bind(`SELECT id, date, product_name, product_type, packet
FROM design_records WHERE id = ?`), id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}
	s.cache.Add(id, rec)
	return cloneRecord(rec)
}

func (s *SQLStore) ListRecent(ctx context.Context, limit int) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, s.bind(`SELECT id, date, product_name, product_type, packet
FROM design_records ORDER BY created_ms DESC LIMIT ?`), normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()
	out := make([]Record, 0, normalizeLimit(limit))
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

// cloneRecord keeps cached packets private to the cache.
func cloneRecord(rec Record) (Record, error) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return Record{}, err
	}
	return decodeRecord(raw)
}
