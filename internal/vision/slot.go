// Custos - Face Recognition Attendance Kiosk
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custos

package vision

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/tomtom215/custos/internal/metrics"
)

// ErrSlotClosed is returned by Next once the slot has been closed.
var ErrSlotClosed = errors.New("vision: slot closed")

// Slot is a single-frame mailbox between the camera source and the pipeline.
//
// Publish never blocks: a frame that arrives while the previous one is still
// unconsumed overwrites it and the overwritten frame counts as dropped. Next
// blocks until a frame is available, so the consumer paces itself without
// polling.
type Slot struct {
	mu     sync.Mutex
	cond   *sync.Cond
	frame  *Frame
	closed bool

	seq   uint64
	drops atomic.Uint64
}

// NewSlot creates an empty slot.
func NewSlot() *Slot {
	s := &Slot{}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Publish places a frame in the slot, overwriting any unconsumed frame.
// It assigns the frame's sequence number and wakes a blocked consumer.
// Publishing to a closed slot is a no-op.
func (s *Slot) Publish(f *Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	if s.frame != nil {
		s.drops.Add(1)
		metrics.FramesDropped.Inc()
	}

	s.seq++
	f.Seq = s.seq
	s.frame = f
	s.cond.Signal()
}

// Next blocks until a frame is available, then takes it out of the slot.
// It returns ErrSlotClosed after Close, or the context error if ctx is
// cancelled while waiting.
func (s *Slot) Next(ctx context.Context) (*Frame, error) {
	// Wake the cond wait when the context is cancelled.
	stop := context.AfterFunc(ctx, func() {
		s.mu.Lock()
		s.cond.Broadcast()
		s.mu.Unlock()
	})
	defer stop()

	s.mu.Lock()
	defer s.mu.Unlock()

	for s.frame == nil && !s.closed && ctx.Err() == nil {
		s.cond.Wait()
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.closed && s.frame == nil {
		return nil, ErrSlotClosed
	}

	f := s.frame
	s.frame = nil
	return f, nil
}

// TryNext takes the current frame without blocking. The second return value
// reports whether a frame was present.
func (s *Slot) TryNext() (*Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.frame == nil {
		return nil, false
	}
	f := s.frame
	s.frame = nil
	return f, true
}

// Close marks the slot closed and wakes any blocked consumer. A frame
// already in the slot can still be consumed; after that, Next returns
// ErrSlotClosed. Close is idempotent.
func (s *Slot) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.cond.Broadcast()
}

// Drops returns the number of frames overwritten before consumption.
func (s *Slot) Drops() uint64 {
	return s.drops.Load()
}

// Frames returns the number of frames published so far.
func (s *Slot) Frames() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}
