// Custos - Face Recognition Attendance Kiosk
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custos

package attendance

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/tomtom215/custos/internal/logging"
	"github.com/tomtom215/custos/internal/store"
)

// dayStatePrefix is the Badger key space for per-day state. One entry
// per calendar day keeps history without any rollover bookkeeping: a
// new day simply reads an absent key.
const dayStatePrefix = "daystate:"

const dateLayout = "2006-01-02"

// DayState is the persisted record of who completed which attendance
// phase on one calendar day. Names keep their insertion order for the
// attendance board.
type DayState struct {
	Date       string   `json:"date"`
	CheckedIn  []string `json:"checked_in"`
	CheckedOut []string `json:"checked_out"`
}

// DayStateStore keeps the current day's state in memory and mirrors
// every mutation to Badger, surviving kiosk restarts mid-day. All
// methods are safe for concurrent use.
type DayStateStore struct {
	mu  sync.Mutex
	st  *store.Store
	cur DayState
}

// NewDayStateStore loads the state for now's date, or starts fresh if
// none is stored.
func NewDayStateStore(st *store.Store, now time.Time) (*DayStateStore, error) {
	d := &DayStateStore{st: st}
	if err := d.loadLocked(now); err != nil {
		return nil, err
	}
	logging.Info().
		Str("date", d.cur.Date).
		Int("checked_in", len(d.cur.CheckedIn)).
		Int("checked_out", len(d.cur.CheckedOut)).
		Msg("Day state loaded")
	return d, nil
}

func dayStateKey(date string) string {
	return dayStatePrefix + date
}

// loadLocked reads now's date from the store into memory. Callers
// outside New must hold d.mu.
func (d *DayStateStore) loadLocked(now time.Time) error {
	date := now.Format(dateLayout)
	var s DayState
	err := d.st.GetJSON(dayStateKey(date), &s)
	switch {
	case errors.Is(err, store.ErrNotFound):
		d.cur = DayState{Date: date}
		return nil
	case err != nil:
		return fmt.Errorf("load day state: %w", err)
	}
	s.Date = date
	d.cur = s
	return nil
}

// rollLocked switches to a new day when the date has changed since the
// last call. The old day's record stays in the store.
func (d *DayStateStore) rollLocked(now time.Time) {
	date := now.Format(dateLayout)
	if d.cur.Date == date {
		return
	}
	logging.Info().
		Str("from", d.cur.Date).
		Str("to", date).
		Msg("Day rollover, attendance sets reset")
	if err := d.loadLocked(now); err != nil {
		logging.Error().Err(err).Msg("Day state load failed on rollover, starting empty")
		d.cur = DayState{Date: date}
	}
}

// persistLocked writes the current state. The in-memory state is kept
// on failure: losing one disk write is recoverable, journaling the
// same person twice is not.
func (d *DayStateStore) persistLocked() error {
	if err := d.st.SetJSON(dayStateKey(d.cur.Date), d.cur); err != nil {
		return fmt.Errorf("persist day state: %w", err)
	}
	return nil
}

// IsCheckedIn reports whether name has checked in today.
func (d *DayStateStore) IsCheckedIn(name string, now time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rollLocked(now)
	return slices.Contains(d.cur.CheckedIn, name)
}

// IsCheckedOut reports whether name has checked out today.
func (d *DayStateStore) IsCheckedOut(name string, now time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rollLocked(now)
	return slices.Contains(d.cur.CheckedOut, name)
}

// MarkCheckedIn adds name to today's checked-in set and persists.
func (d *DayStateStore) MarkCheckedIn(name string, now time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rollLocked(now)
	if !slices.Contains(d.cur.CheckedIn, name) {
		d.cur.CheckedIn = append(d.cur.CheckedIn, name)
	}
	return d.persistLocked()
}

// MarkCheckedOut adds name to today's checked-out set and persists.
func (d *DayStateStore) MarkCheckedOut(name string, now time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rollLocked(now)
	if !slices.Contains(d.cur.CheckedOut, name) {
		d.cur.CheckedOut = append(d.cur.CheckedOut, name)
	}
	return d.persistLocked()
}

// Snapshot returns a copy of today's state for the API.
func (d *DayStateStore) Snapshot(now time.Time) DayState {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rollLocked(now)
	return DayState{
		Date:       d.cur.Date,
		CheckedIn:  slices.Clone(d.cur.CheckedIn),
		CheckedOut: slices.Clone(d.cur.CheckedOut),
	}
}

// Reset wipes today's sets in memory and in the store. Used when the
// detection zone is redrawn and prior confirmations no longer mean
// anything.
func (d *DayStateStore) Reset(now time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cur = DayState{Date: now.Format(dateLayout)}
	return d.persistLocked()
}
