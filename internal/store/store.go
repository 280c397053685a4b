// Package store keeps completed design packets as recent-design records.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"designforge/internal/types"
)

var ErrNotFound = errors.New("design record not found")

const DefaultRecentLimit = 10

// Record is one completed run. ID is the creation time in Unix
// milliseconds, string encoded; records are never mutated after creation.
type Record struct {
	ID          string              `json:"id"`
	Date        string              `json:"date"`
	ProductName string              `json:"productName"`
	ProductType types.ProductType   `json:"productType"`
	Packet      *types.DesignPacket `json:"packet"`
}

// Store is the persistence contract used after a run completes.
type Store interface {
	// Put inserts or overwrites the record with the same ID.
	Put(ctx context.Context, rec Record) error
	Get(ctx context.Context, id string) (Record, error)
	// ListRecent returns at most limit records, newest ID first.
	ListRecent(ctx context.Context, limit int) ([]Record, error)
	Close() error
}

// NewRecord builds the record for a packet finished at now.
func NewRecord(id string, now time.Time, packet *types.DesignPacket) Record {
	rec := Record{
		ID:     id,
		Date:   now.Local().Format("2006-01-02 15:04"),
		Packet: packet,
	}
	if packet != nil && packet.Specification != nil {
		rec.ProductName = packet.Specification.ProductName
		rec.ProductType = packet.Specification.ProductType
	}
	return rec
}

// IDGenerator issues strictly increasing millisecond ids, even when called
// several times within the same millisecond.
type IDGenerator struct {
	mu   sync.Mutex
	last int64
}

func (g *IDGenerator) Next(now time.Time) string {
	ms := now.UnixMilli()
	g.mu.Lock()
	defer g.mu.Unlock()
	if ms <= g.last {
		ms = g.last + 1
	}
	g.last = ms
	return strconv.FormatInt(ms, 10)
}

// Observe moves the generator past an existing id so new ids sort after it.
func (g *IDGenerator) Observe(id string) {
	n, err := parseID(id)
	if err != nil {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if n > g.last {
		g.last = n
	}
}

func parseID(id string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("record id %q is not a timestamp: %w", id, err)
	}
	return n, nil
}

func validateRecord(rec Record) error {
	if _, err := parseID(rec.ID); err != nil {
		return err
	}
	if rec.Packet == nil {
		return errors.New("record packet is required")
	}
	return nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultRecentLimit
	}
	return limit
}

// sortRecent orders records by numeric id, newest first, and truncates.
func sortRecent(recs []Record, limit int) []Record {
	sort.Slice(recs, func(i, j int) bool {
		a, _ := parseID(recs[i].ID)
		b, _ := parseID(recs[j].ID)
		return a > b
	})
	if len(recs) > limit {
		recs = recs[:limit]
	}
	return recs
}

// Open picks a backend from dsn:
//
//	memory:                         in-process map
//	postgres://... | postgresql://  Postgres through pgx
//	sqlite:<path> | *.db | *.sqlite SQLite
//	anything else                   JSON file at that path
func Open(dsn string) (Store, error) {
	dsn = strings.TrimSpace(dsn)
	lower := strings.ToLower(dsn)
	switch {
	case dsn == "":
		return nil, errors.New("store dsn is required")
	case lower == "memory:":
		return NewMemoryStore(), nil
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return NewSQLStore(DriverPostgres, dsn)
	case strings.HasPrefix(lower, "sqlite:"):
		return NewSQLStore(DriverSQLite, dsn[len("sqlite:"):])
	case strings.HasSuffix(lower, ".db"), strings.HasSuffix(lower, ".sqlite"):
		return NewSQLStore(DriverSQLite, dsn)
	default:
		return NewFileStore(dsn)
	}
}
