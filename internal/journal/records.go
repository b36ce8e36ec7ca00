// Custos - Face Recognition Attendance Kiosk
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custos

package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tomtom215/custos/internal/logging"
	"github.com/tomtom215/custos/internal/metrics"
)

// Row is one person's attendance for one day. Pointer timestamps are nil
// for the half of the row that has not happened yet.
type Row struct {
	Day            string     `json:"day"`
	Name           string     `json:"name"`
	CheckInAt      *time.Time `json:"check_in_at,omitempty"`
	CheckInStatus  string     `json:"check_in_status,omitempty"`
	CheckInImage   string     `json:"check_in_image,omitempty"`
	CheckOutAt     *time.Time `json:"check_out_at,omitempty"`
	CheckOutStatus string     `json:"check_out_status,omitempty"`
	CheckOutImage  string     `json:"check_out_image,omitempty"`
}

// RecordCheckIn writes a check-in to the journal: it fills the check-in
// columns of today's row for name, creating the row if this is the first
// event for (day, name). Re-running overwrites the same columns, so a
// retried persistence attempt cannot duplicate a row.
func (j *Journal) RecordCheckIn(ctx context.Context, name, status, imageURL string, at time.Time) error {
	start := time.Now()
	err := j.upsert(ctx, at.Format(dayLayout), name,
		`UPDATE attendance
			SET check_in_at = ?, check_in_status = ?, check_in_image = ?
			WHERE day = ? AND name = ?`,
		`INSERT INTO attendance (day, name, check_in_at, check_in_status, check_in_image)
			VALUES (?, ?, ?, ?, ?)`,
		at, status, imageURL)
	metrics.RecordJournalQuery("check_in", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("record check-in for %s: %w", name, err)
	}
	return nil
}

// RecordCheckOut writes a check-out: it fills the check-out columns of
// today's row for name, or creates a checkout-only row when the person
// never checked in today.
func (j *Journal) RecordCheckOut(ctx context.Context, name, status, imageURL string, at time.Time) error {
	start := time.Now()
	err := j.upsert(ctx, at.Format(dayLayout), name,
		`UPDATE attendance
			SET check_out_at = ?, check_out_status = ?, check_out_image = ?
			WHERE day = ? AND name = ?`,
		`INSERT INTO attendance (day, name, check_out_at, check_out_status, check_out_image)
			VALUES (?, ?, ?, ?, ?)`,
		at, status, imageURL)
	metrics.RecordJournalQuery("check_out", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("record check-out for %s: %w", name, err)
	}
	return nil
}

// upsert runs update then, if no row matched, insert, inside one
// transaction. Both statements bind (at, status, image) with day and name
// in the positions their SQL expects.
func (j *Journal) upsert(ctx context.Context, day, name, update, insert string, at time.Time, status, imageURL string) (err error) {
	tx, err := j.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logging.Error().
					Err(rbErr).
					AnErr("original_error", err).
					Msg("Journal rollback failed")
			}
		}
	}()

	res, err := tx.ExecContext(ctx, update, at, status, imageURL, day, name)
	if err != nil {
		return fmt.Errorf("update row: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		if _, err = tx.ExecContext(ctx, insert, day, name, at, status, imageURL); err != nil {
			return fmt.Errorf("insert row: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Today returns the journal rows for now's date in arrival order.
func (j *Journal) Today(ctx context.Context, now time.Time) ([]Row, error) {
	start := time.Now()
	rows, err := j.rowsForDay(ctx, now.Format(dayLayout))
	metrics.RecordJournalQuery("today", time.Since(start), err)
	return rows, err
}

// RowsForDay returns the journal rows for one day (formatted 2006-01-02)
// in arrival order. Used by the per-day export endpoint.
func (j *Journal) RowsForDay(ctx context.Context, day string) ([]Row, error) {
	start := time.Now()
	rows, err := j.rowsForDay(ctx, day)
	metrics.RecordJournalQuery("day", time.Since(start), err)
	return rows, err
}

func (j *Journal) rowsForDay(ctx context.Context, day string) ([]Row, error) {
	query := `SELECT day, name,
			check_in_at, check_in_status, check_in_image,
			check_out_at, check_out_status, check_out_image
		FROM attendance
		WHERE day = ?
		ORDER BY COALESCE(check_in_at, check_out_at), name`

	rows, err := j.conn.QueryContext(ctx, query, day)
	if err != nil {
		return nil, fmt.Errorf("query day %s: %w", day, err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		var inAt, outAt sql.NullTime
		var inStatus, inImage, outStatus, outImg sql.NullString
		if err := rows.Scan(&r.Day, &r.Name, &inAt, &inStatus, &inImage, &outAt, &outStatus, &outImg); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		if inAt.Valid {
			t := inAt.Time
			r.CheckInAt = &t
		}
		if outAt.Valid {
			t := outAt.Time
			r.CheckOutAt = &t
		}
		r.CheckInStatus = inStatus.String
		r.CheckInImage = inImage.String
		r.CheckOutStatus = outStatus.String
		r.CheckOutImage = outImg.String
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}
