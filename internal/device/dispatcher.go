// Custos - Face Recognition Attendance Kiosk
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custos

package device

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tomtom215/custos/internal/config"
	"github.com/tomtom215/custos/internal/logging"
	"github.com/tomtom215/custos/internal/metrics"
)

// Dispatcher owns the sequenced queue and the HTTP client for the
// actuator. Construct with NewDispatcher, start Run in its own
// goroutine, and send commands from any goroutine.
type Dispatcher struct {
	cfg    config.DeviceConfig
	queue  *Queue
	client *http.Client
	base   string

	// OnDispatch, when set before Run starts, is called after every
	// actuator attempt with the command and the send error (nil on
	// success). Relay attempts invoke it from their own goroutines.
	OnDispatch func(cmd Command, err error)
}

// NewDispatcher returns a dispatcher for the configured actuator.
func NewDispatcher(cfg config.DeviceConfig) *Dispatcher {
	return &Dispatcher{
		cfg:    cfg,
		queue:  NewQueue(0),
		client: &http.Client{Timeout: cfg.Timeout},
		base:   cfg.BaseURL(),
	}
}

// Send routes one command to the actuator. Relay-class commands bypass
// the queue and fire immediately; audio classes are sequenced, with
// priority clearing the queue first.
func (d *Dispatcher) Send(endpoint string, class AudioClass, priority bool) {
	if class == ClassRelay {
		d.TriggerRelay(endpoint)
		return
	}

	cmd := Command{
		Endpoint: endpoint,
		Class:    class,
		Duration: class.EstimatedDuration(d.cfg),
	}
	if priority {
		d.queue.EnqueuePriority(cmd)
	} else {
		d.queue.Enqueue(cmd)
	}
}

// TriggerRelay fires a relay command on a detached goroutine. The relay
// pulse is physical; nothing waits on it and nothing can take it back.
func (d *Dispatcher) TriggerRelay(endpoint string) {
	metrics.DeviceCommandsEnqueued.WithLabelValues("relay").Inc()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), d.cfg.Timeout)
		defer cancel()

		err := d.send(ctx, endpoint)
		if err != nil {
			logging.Error().Err(err).
				Str("endpoint", endpoint).
				Msg("Relay request failed")
		} else {
			logging.Info().
				Str("endpoint", endpoint).
				Msg("Relay triggered")
		}
		metrics.DeviceCommandsDispatched.WithLabelValues("relay").Inc()

		if d.OnDispatch != nil {
			d.OnDispatch(Command{Endpoint: endpoint, Class: ClassRelay}, err)
		}
	}()
}

// QueueDepth reports the number of buffered audio commands.
func (d *Dispatcher) QueueDepth() int {
	return d.queue.Depth()
}

// Run is the single consumer loop: dequeue, send, pace. It returns when
// ctx is done. Worst-case latency from a priority enqueue to its
// dispatch is one poll interval.
func (d *Dispatcher) Run(ctx context.Context) error {
	logging.Info().
		Str("device", d.base).
		Dur("poll", d.cfg.Poll).
		Msg("Device dispatcher started")

	for {
		cmd, err := d.queue.Dequeue(ctx, d.cfg.Poll)
		if errors.Is(err, ErrNoCommand) {
			continue
		}
		if err != nil {
			logging.Info().Msg("Device dispatcher stopped")
			return err
		}
		d.dispatch(ctx, cmd)
	}
}

// dispatch sends one audio command and waits out its estimated playback
// length. A send failure still consumes the pacing wait: a stuck device
// must not stall the queue, and retrying stale audio helps nobody.
func (d *Dispatcher) dispatch(ctx context.Context, cmd Command) {
	err := d.send(ctx, cmd.Endpoint)
	if err != nil {
		logging.Error().Err(err).
			Str("endpoint", cmd.Endpoint).
			Str("class", cmd.Class.String()).
			Msg("Audio request failed")
	} else {
		logging.Debug().
			Str("endpoint", cmd.Endpoint).
			Str("class", cmd.Class.String()).
			Bool("priority", cmd.Priority).
			Msg("Audio command sent")
	}
	metrics.DeviceCommandsDispatched.WithLabelValues("audio").Inc()

	if d.OnDispatch != nil {
		d.OnDispatch(cmd, err)
	}

	// Pacing: hold the queue for the estimated playback length so clips
	// never overlap. Preemption shortens only this software wait; the
	// clip already sent keeps playing on the device.
	timer := time.NewTimer(cmd.Duration)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-cmd.preempt:
		metrics.DevicePreemptions.Inc()
		logging.Debug().
			Str("endpoint", cmd.Endpoint).
			Msg("Pacing wait preempted by priority command")
	case <-ctx.Done():
	}
}

// send issues one GET to the actuator. Non-200 responses count as
// errors; the body is drained for connection reuse.
func (d *Dispatcher) send(ctx context.Context, endpoint string) error {
	url := d.base + "/" + endpoint
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		metrics.RecordDeviceRequest(time.Since(start), err)
		return fmt.Errorf("build device request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		metrics.RecordDeviceRequest(time.Since(start), err)
		return fmt.Errorf("send to device: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		err = fmt.Errorf("device returned status %d", resp.StatusCode)
		metrics.RecordDeviceRequest(time.Since(start), err)
		return err
	}

	metrics.RecordDeviceRequest(time.Since(start), nil)
	return nil
}
