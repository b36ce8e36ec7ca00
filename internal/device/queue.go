// Custos - Face Recognition Attendance Kiosk
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custos

package device

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tomtom215/custos/internal/logging"
	"github.com/tomtom215/custos/internal/metrics"
)

// ErrNoCommand is returned by Dequeue when the arrival wait elapses
// without a command. The dispatcher treats it as a poll tick, not a
// failure.
var ErrNoCommand = errors.New("no command within poll interval")

// defaultQueueCapacity bounds the sequenced buffer. Kiosk traffic is a
// handful of commands per sighting; a full buffer means the device has
// been unreachable for a long stretch.
const defaultQueueCapacity = 64

// Queue is the single-consumer buffer of sequenced audio commands.
//
// Producers enqueue from any goroutine; exactly one dispatcher dequeues.
// A priority enqueue supersedes everything enqueued before it by closing
// the current preempt token and minting a fresh one. Every command holds
// the token current at its enqueue, so "was I superseded?" is a
// non-blocking channel check at any wait point. The consumer never
// rewrites the buffer.
type Queue struct {
	mu      sync.Mutex
	cmds    chan Command
	preempt chan struct{}
}

// NewQueue returns a queue with the given buffer capacity. A capacity
// of zero or less selects the default.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = defaultQueueCapacity
	}
	return &Queue{
		cmds:    make(chan Command, capacity),
		preempt: make(chan struct{}),
	}
}

// Enqueue appends a sequenced command. It never blocks: when the buffer
// is full the command is dropped with a warning, since stalling the
// recognition loop on a dead actuator is worse than losing a clip.
// Returns false if the command was dropped.
func (q *Queue) Enqueue(cmd Command) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	cmd.preempt = q.preempt
	select {
	case q.cmds <- cmd:
		metrics.DeviceCommandsEnqueued.WithLabelValues("audio").Inc()
		metrics.DeviceQueueDepth.Set(float64(len(q.cmds)))
		return true
	default:
		logging.Warn().
			Str("endpoint", cmd.Endpoint).
			Str("class", cmd.Class.String()).
			Msg("Device queue full, dropping command")
		return false
	}
}

// EnqueuePriority supersedes every audio command enqueued so far and
// appends cmd as the next to run. Queued commands are discarded when the
// dispatcher reaches them; a dispatcher mid-pacing-wait wakes and moves
// on. In-flight device playback is not interrupted.
func (q *Queue) EnqueuePriority(cmd Command) {
	q.mu.Lock()
	defer q.mu.Unlock()

	close(q.preempt)
	q.preempt = make(chan struct{})

	cmd.preempt = q.preempt
	cmd.Priority = true
	for {
		select {
		case q.cmds <- cmd:
			metrics.DeviceCommandsEnqueued.WithLabelValues("audio").Inc()
			metrics.DeviceQueueDepth.Set(float64(len(q.cmds)))
			return
		default:
		}
		// Buffer full. Everything buffered predates the clear above
		// (producers serialize on q.mu), so evicting one is safe.
		select {
		case <-q.cmds:
			metrics.DeviceCommandsCleared.Inc()
		default:
		}
	}
}

// Dequeue blocks until a live command arrives, the wait elapses, or ctx
// is done. Commands superseded while queued are counted and skipped
// without consuming the wait.
func (q *Queue) Dequeue(ctx context.Context, wait time.Duration) (Command, error) {
	timer := time.NewTimer(wait)
	defer timer.Stop()

	for {
		select {
		case cmd := <-q.cmds:
			metrics.DeviceQueueDepth.Set(float64(len(q.cmds)))
			select {
			case <-cmd.preempt:
				metrics.DeviceCommandsCleared.Inc()
				continue
			default:
			}
			return cmd, nil
		case <-timer.C:
			return Command{}, ErrNoCommand
		case <-ctx.Done():
			return Command{}, ctx.Err()
		}
	}
}

// Depth returns the number of buffered commands, superseded ones
// included.
func (q *Queue) Depth() int {
	return len(q.cmds)
}
