// Package storage persists the last known snapshot of every plan in SQLite so
// the client can show stale data while the backend is unreachable.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"familysavings/internal/cache"
)

// ErrNoSnapshot is returned by Load when nothing was saved for a plan.
var ErrNoSnapshot = errors.New("no snapshot stored")

type SnapshotStore struct {
	db *sql.DB
}

func NewSnapshotStore(dbPath string) (*SnapshotStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows a single writer
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SnapshotStore{db: db}, nil
}

func (s *SnapshotStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Save upserts the snapshot of snap.Plan.ID. Stale and partial flags are not
// persisted; a restored snapshot is always marked stale by Load.
func (s *SnapshotStore) Save(ctx context.Context, snap cache.PlanSnapshot) error {
	if snap.Plan.ID == "" {
		return fmt.Errorf("save snapshot: missing plan id")
	}
	snap.Stale, snap.Partial = false, false
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", snap.Plan.ID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO plan_snapshots (plan_id, plan_name, payload, fetched_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(plan_id) DO UPDATE SET
			plan_name = excluded.plan_name,
			payload = excluded.payload,
			fetched_at = excluded.fetched_at,
			updated_at = excluded.updated_at`,
		snap.Plan.ID, snap.Plan.Name, string(payload), snap.FetchedAt.UTC(), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save snapshot %s: %w", snap.Plan.ID, err)
	}
	return nil
}

func (s *SnapshotStore) Load(ctx context.Context, planID string) (cache.PlanSnapshot, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM plan_snapshots WHERE plan_id = ?`, planID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return cache.PlanSnapshot{}, fmt.Errorf("plan %s: %w", planID, ErrNoSnapshot)
	}
	if err != nil {
		return cache.PlanSnapshot{}, fmt.Errorf("load snapshot %s: %w", planID, err)
	}
	return decode(payload)
}

// LoadAll returns every stored snapshot ordered by plan name.
func (s *SnapshotStore) LoadAll(ctx context.Context) ([]cache.PlanSnapshot, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT payload FROM plan_snapshots ORDER BY plan_name, plan_id`)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var out []cache.PlanSnapshot
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		snap, err := decode(payload)
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return out, nil
}

func (s *SnapshotStore) Delete(ctx context.Context, planID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM plan_snapshots WHERE plan_id = ?`, planID); err != nil {
		return fmt.Errorf("delete snapshot %s: %w", planID, err)
	}
	return nil
}

func decode(payload string) (cache.PlanSnapshot, error) {
	var snap cache.PlanSnapshot
	if err := json.Unmarshal([]byte(payload), &snap); err != nil {
		return cache.PlanSnapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	snap.Stale = true
	return snap, nil
}
