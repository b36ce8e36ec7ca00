// Custos - Face Recognition Attendance Kiosk
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custos

// Package journal persists the attendance record to an embedded DuckDB
// database. The table mirrors the wall-sheet model: one row per person per
// day, with separate check-in and check-out column groups. A check-in fills
// or creates the row's check-in columns; a check-out fills the check-out
// columns of the existing row, or creates a checkout-only row when someone
// leaves without ever checking in.
//
// The journal is the system of record behind the door: the attendance
// engine refuses to unlock until the row has landed here.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// DuckDB driver, registered as "duckdb".
	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/tomtom215/custos/internal/config"
	"github.com/tomtom215/custos/internal/logging"
	"github.com/tomtom215/custos/internal/metrics"
)

const (
	// dayLayout matches the day-state store and the original sheet's
	// date column.
	dayLayout = "2006-01-02"

	// The journal shares the kiosk CPU with the vision loop, so it runs
	// with a small thread and memory budget. An attendance table grows by
	// at most a few dozen rows a day; nothing here needs more.
	journalThreads   = 2
	journalMaxMemory = "256MB"

	openTimeout   = 10 * time.Second
	schemaTimeout = 60 * time.Second
)

// Journal wraps the DuckDB connection holding the attendance table.
type Journal struct {
	conn *sql.DB
	path string
}

// Open opens (creating if necessary) the attendance journal at cfg.Path
// and ensures the schema exists. Use ":memory:" for an ephemeral journal
// in tests.
func Open(cfg config.JournalConfig) (*Journal, error) {
	if cfg.Path != ":memory:" {
		dir := filepath.Dir(cfg.Path)
		if dir != "" && dir != "." {
			// 0750 per gosec G301.
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("create journal directory %s: %w", dir, err)
			}
		}
	}

	// Auto-install/auto-load stay off so a kiosk in a restricted network
	// never hangs resolving extensions it does not use.
	connStr := fmt.Sprintf("%s?access_mode=read_write&threads=%d&max_memory=%s&preserve_insertion_order=false&autoinstall_known_extensions=false&autoload_known_extensions=false",
		cfg.Path, journalThreads, journalMaxMemory)

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	j := &Journal{conn: conn, path: cfg.Path}
	j.configurePool()

	start := time.Now()
	err = j.initialize()
	metrics.RecordJournalQuery("init", time.Since(start), err)
	if err != nil {
		closeQuietly(conn)
		return nil, err
	}

	logging.Info().
		Str("path", cfg.Path).
		Msg("Attendance journal ready")

	return j, nil
}

// configurePool bounds the database/sql pool. Writes arrive one at a time
// from the attendance engine; reads come from the API. Two connections
// cover both without letting CGO handles pile up.
func (j *Journal) configurePool() {
	j.conn.SetMaxOpenConns(journalThreads)
	j.conn.SetMaxIdleConns(1)
	j.conn.SetConnMaxLifetime(time.Hour)
	j.conn.SetConnMaxIdleTime(5 * time.Minute)
}

// initialize verifies the connection and creates the attendance table.
func (j *Journal) initialize() error {
	pingCtx, cancel := context.WithTimeout(context.Background(), openTimeout)
	defer cancel()
	if err := j.conn.PingContext(pingCtx); err != nil {
		return fmt.Errorf("ping journal: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), schemaTimeout)
	defer cancel()

	queries := []string{
		`CREATE TABLE IF NOT EXISTS attendance (
			day TEXT NOT NULL,
			name TEXT NOT NULL,
			check_in_at TIMESTAMP,
			check_in_status TEXT,
			check_in_image TEXT,
			check_out_at TIMESTAMP,
			check_out_status TEXT,
			check_out_image TEXT
		)`,
		// One row per person per day; check-out updates it in place.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_attendance_day_name
			ON attendance (day, name)`,
	}
	for _, query := range queries {
		if _, err := j.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("create journal schema: %w", err)
		}
	}
	return nil
}

// Ping verifies the journal connection is alive. Used by the health
// endpoints.
func (j *Journal) Ping(ctx context.Context) error {
	return j.conn.PingContext(ctx)
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	if err := j.conn.Close(); err != nil {
		return fmt.Errorf("close journal: %w", err)
	}
	return nil
}

func closeQuietly(conn *sql.DB) {
	if err := conn.Close(); err != nil {
		logging.Warn().Err(err).Msg("Journal close after failed open")
	}
}
