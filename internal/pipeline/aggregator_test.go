// Custos - Face Recognition Attendance Kiosk
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custos

package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/custos/internal/attendance"
	"github.com/tomtom215/custos/internal/config"
	"github.com/tomtom215/custos/internal/device"
	"github.com/tomtom215/custos/internal/events"
	"github.com/tomtom215/custos/internal/geometry"
	"github.com/tomtom215/custos/internal/recognizer"
	"github.com/tomtom215/custos/internal/store"
	"github.com/tomtom215/custos/internal/vision"
)

type sentCmd struct {
	endpoint string
	class    device.AudioClass
	priority bool
	relay    bool
}

type fakeActuator struct {
	mu   sync.Mutex
	cmds []sentCmd
}

func (f *fakeActuator) Send(endpoint string, class device.AudioClass, priority bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cmds = append(f.cmds, sentCmd{endpoint: endpoint, class: class, priority: priority})
}

func (f *fakeActuator) TriggerRelay(endpoint string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cmds = append(f.cmds, sentCmd{endpoint: endpoint, class: device.ClassRelay, relay: true})
}

func (f *fakeActuator) list() []sentCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sentCmd, len(f.cmds))
	copy(out, f.cmds)
	return out
}

func (f *fakeActuator) countEndpoint(endpoint string) int {
	n := 0
	for _, c := range f.list() {
		if c.endpoint == endpoint {
			n++
		}
	}
	return n
}

type fakeRecorder struct {
	mu        sync.Mutex
	checkIns  []string
	statuses  []string
	checkOuts []string
}

func (f *fakeRecorder) RecordCheckIn(_ context.Context, name, status string, _ []byte, _ geometry.BBox) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checkIns = append(f.checkIns, name)
	f.statuses = append(f.statuses, status)
	return nil
}

func (f *fakeRecorder) RecordCheckOut(_ context.Context, name string, _ []byte, _ geometry.BBox) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checkOuts = append(f.checkOuts, name)
	return nil
}

func (f *fakeRecorder) checkInCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.checkIns)
}

func (f *fakeRecorder) checkInNames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.checkIns))
	copy(out, f.checkIns)
	return out
}

func testAttendanceConfig() config.AttendanceConfig {
	return config.AttendanceConfig{
		CheckInStart:          "07:00",
		LateCheckInEnd:        "10:00",
		LateThreshold:         "08:05",
		CheckOutStart:         "17:00",
		SaturdayCheckOutStart: "13:00",
		CheckOutEnd:           "20:00",
		AdminCooldown:         time.Minute,
		CaptureCooldown:       0,
		MissedFrameGrace:      5,
		CustomAudio:           []string{"Alice"},
	}
}

// 2026-08-24 is a Monday.
func mondayAt(h, m, s int) time.Time {
	return time.Date(2026, time.August, 24, h, m, s, 0, time.UTC)
}

type aggFixture struct {
	agg      *Aggregator
	actuator *fakeActuator
	recorder *fakeRecorder
	days     *attendance.DayStateStore
	st       *store.Store
	seq      uint64
}

func newAggFixture(t *testing.T, bus *events.Bus) *aggFixture {
	t.Helper()

	st, err := store.OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	t.Cleanup(func() { st.Close() })

	cfg := testAttendanceConfig()
	days, err := attendance.NewDayStateStore(st, mondayAt(0, 0, 0))
	if err != nil {
		t.Fatalf("NewDayStateStore() error = %v", err)
	}
	sched, err := attendance.NewSchedule(cfg)
	if err != nil {
		t.Fatalf("NewSchedule() error = %v", err)
	}

	act := &fakeActuator{}
	rec := &fakeRecorder{}
	engine := attendance.NewEngine(cfg, sched, days, act, rec)

	agg, err := NewAggregator(
		config.CustomerConfig{Dwell: 5 * time.Second},
		config.ROIConfig{X: 0, Y: 0, W: 640, H: 480},
		st, engine, act, bus,
	)
	if err != nil {
		t.Fatalf("NewAggregator() error = %v", err)
	}

	return &aggFixture{agg: agg, actuator: act, recorder: rec, days: days, st: st}
}

// observe feeds one frame to the aggregator.
func (fx *aggFixture) observe(at time.Time, faces []RecognizedFace, bodies []recognizer.Body) {
	fx.seq++
	frame := &vision.Frame{Data: []byte("jpeg"), Timestamp: at, Seq: fx.seq}
	fx.agg.Process(context.Background(), frame, faces, bodies, true)
}

// inZoneFace anchors at (150, 50), inside the 640x480 default region.
func inZoneFace(name string) RecognizedFace {
	return RecognizedFace{Name: name, BBox: geometry.BBox{X1: 100, Y1: 50, X2: 200, Y2: 150}}
}

// outZoneFace anchors at (750, 50), right of the default region.
func outZoneFace(name string) RecognizedFace {
	return RecognizedFace{Name: name, BBox: geometry.BBox{X1: 700, Y1: 50, X2: 800, Y2: 150}}
}

func inZoneBody() recognizer.Body {
	return recognizer.Body{BBox: geometry.BBox{X1: 200, Y1: 100, X2: 300, Y2: 400}, Confidence: 0.9}
}

func TestAggregatorChecksInStaffInsideZone(t *testing.T) {
	fx := newAggFixture(t, nil)
	at := mondayAt(7, 30, 0)

	for i := 0; i < 3; i++ {
		fx.observe(at.Add(time.Duration(i)*100*time.Millisecond), []RecognizedFace{inZoneFace("Alice")}, nil)
	}

	if got := fx.recorder.checkIns; len(got) != 1 || got[0] != "Alice" {
		t.Fatalf("checkIns = %v, want [Alice]", got)
	}
	if got := fx.recorder.statuses[0]; got != attendance.StatusOnTime {
		t.Errorf("status = %q, want %q", got, attendance.StatusOnTime)
	}
	if !fx.days.IsCheckedIn("Alice", at) {
		t.Error("day state missing Alice after check-in")
	}
}

func TestAggregatorIgnoresFacesOutsideZone(t *testing.T) {
	fx := newAggFixture(t, nil)
	at := mondayAt(7, 30, 0)

	for i := 0; i < 5; i++ {
		fx.observe(at.Add(time.Duration(i)*time.Second), []RecognizedFace{outZoneFace("Alice")}, nil)
	}

	if got := fx.recorder.checkInCount(); got != 0 {
		t.Errorf("checkIns = %d for out-of-zone faces, want 0", got)
	}
	if got := len(fx.actuator.list()); got != 0 {
		t.Errorf("commands = %d for out-of-zone faces, want 0", got)
	}
}

func TestAggregatorIgnoresSentinelIdentities(t *testing.T) {
	fx := newAggFixture(t, nil)
	at := mondayAt(7, 30, 0)

	for i := 0; i < 5; i++ {
		fx.observe(at.Add(time.Duration(i)*time.Second), []RecognizedFace{
			inZoneFace(recognizer.Unknown),
			inZoneFace(recognizer.Customer),
		}, nil)
	}

	if got := fx.recorder.checkInCount(); got != 0 {
		t.Errorf("checkIns = %d for sentinel identities, want 0", got)
	}
}

func TestAggregatorDeduplicatesFacesPerFrame(t *testing.T) {
	fx := newAggFixture(t, nil)
	at := mondayAt(7, 30, 0)

	// Two faces matching the same person in one frame count as one
	// observation, so two such frames leave the debounce one short.
	double := []RecognizedFace{inZoneFace("Alice"), inZoneFace("Alice")}
	fx.observe(at, double, nil)
	fx.observe(at.Add(time.Second), double, nil)

	if got := fx.recorder.checkInCount(); got != 0 {
		t.Fatalf("checkIns = %d after two doubled frames, want 0", got)
	}

	fx.observe(at.Add(2*time.Second), []RecognizedFace{inZoneFace("Alice")}, nil)
	if got := fx.recorder.checkInCount(); got != 1 {
		t.Errorf("checkIns = %d after third frame, want 1", got)
	}
}

func TestAggregatorCustomerDwellGreetsOnce(t *testing.T) {
	fx := newAggFixture(t, nil)
	at := mondayAt(11, 0, 0)
	body := []recognizer.Body{inZoneBody()}

	fx.observe(at, nil, body)
	fx.observe(at.Add(3*time.Second), nil, body)
	if got := fx.actuator.countEndpoint(device.EndpointCustomer); got != 0 {
		t.Fatalf("customer greetings = %d before dwell elapsed, want 0", got)
	}

	fx.observe(at.Add(6*time.Second), nil, body)
	fx.observe(at.Add(9*time.Second), nil, body)
	fx.observe(at.Add(30*time.Second), nil, body)

	if got := fx.actuator.countEndpoint(device.EndpointCustomer); got != 1 {
		t.Fatalf("customer greetings = %d, want exactly 1 per session", got)
	}
	cmds := fx.actuator.list()
	if cmds[0].class != device.ClassCustomer || cmds[0].priority {
		t.Errorf("greeting command = %+v, want sequenced customer class", cmds[0])
	}
}

func TestAggregatorStaffPresenceSuppressesDwell(t *testing.T) {
	fx := newAggFixture(t, nil)
	at := mondayAt(7, 30, 0)
	body := []recognizer.Body{inZoneBody()}

	fx.observe(at, nil, body)
	// One staff frame is not enough to stabilize, but it vouches for the
	// body and restarts the dwell clock.
	fx.observe(at.Add(3*time.Second), []RecognizedFace{inZoneFace("Alice")}, body)
	fx.observe(at.Add(6*time.Second), nil, body)
	fx.observe(at.Add(10*time.Second), nil, body)

	if got := fx.actuator.countEndpoint(device.EndpointCustomer); got != 0 {
		t.Fatalf("customer greetings = %d with a recent staff sighting, want 0", got)
	}

	fx.observe(at.Add(12*time.Second), nil, body)
	if got := fx.actuator.countEndpoint(device.EndpointCustomer); got != 1 {
		t.Errorf("customer greetings = %d after dwell from restart, want 1", got)
	}
}

func TestAggregatorDwellRestartsWhenZoneEmpties(t *testing.T) {
	fx := newAggFixture(t, nil)
	at := mondayAt(11, 0, 0)
	body := []recognizer.Body{inZoneBody()}

	fx.observe(at, nil, body)
	fx.observe(at.Add(3*time.Second), nil, nil)
	fx.observe(at.Add(4*time.Second), nil, body)
	fx.observe(at.Add(8*time.Second), nil, body)

	if got := fx.actuator.countEndpoint(device.EndpointCustomer); got != 0 {
		t.Fatalf("customer greetings = %d before the restarted dwell elapsed, want 0", got)
	}

	fx.observe(at.Add(10*time.Second), nil, body)
	if got := fx.actuator.countEndpoint(device.EndpointCustomer); got != 1 {
		t.Errorf("customer greetings = %d after restarted dwell, want 1", got)
	}
}

func TestAggregatorDecaySkipsUnrecognizedFrames(t *testing.T) {
	fx := newAggFixture(t, nil)
	at := mondayAt(7, 30, 0)

	fx.observe(at, []RecognizedFace{inZoneFace("Alice")}, nil)
	fx.observe(at.Add(time.Second), []RecognizedFace{inZoneFace("Alice")}, nil)

	// Detection-only frames cannot re-observe anyone, so absence on them
	// must not count against the tracked record.
	for i := 0; i < 6; i++ {
		frame := &vision.Frame{Data: []byte("jpeg"), Timestamp: at.Add(time.Duration(2+i) * time.Second)}
		fx.agg.Process(context.Background(), frame, nil, nil, false)
	}

	fx.observe(at.Add(10*time.Second), []RecognizedFace{inZoneFace("Alice")}, nil)
	if got := fx.recorder.checkInCount(); got != 1 {
		t.Errorf("checkIns = %d, want 1; the track decayed on unrecognized frames", got)
	}
}

func TestAggregatorDecayDropsAbsentTracks(t *testing.T) {
	fx := newAggFixture(t, nil)
	at := mondayAt(7, 30, 0)

	fx.observe(at, []RecognizedFace{inZoneFace("Alice")}, nil)
	fx.observe(at.Add(time.Second), []RecognizedFace{inZoneFace("Alice")}, nil)

	// Six recognized frames without Alice exceed the grace of five.
	for i := 0; i < 6; i++ {
		fx.observe(at.Add(time.Duration(2+i)*time.Second), nil, nil)
	}

	fx.observe(at.Add(10*time.Second), []RecognizedFace{inZoneFace("Alice")}, nil)
	if got := fx.recorder.checkInCount(); got != 0 {
		t.Errorf("checkIns = %d after the track decayed, want 0", got)
	}
}

func TestAggregatorSetROIResetsAccumulatedState(t *testing.T) {
	fx := newAggFixture(t, nil)
	at := mondayAt(7, 30, 0)

	for i := 0; i < 3; i++ {
		fx.observe(at.Add(time.Duration(i)*time.Second), []RecognizedFace{inZoneFace("Alice")}, nil)
	}
	if !fx.days.IsCheckedIn("Alice", at) {
		t.Fatal("setup: Alice should be checked in")
	}

	if err := fx.agg.SetROI(geometry.ROI{X: 0, Y: 0, W: 320, H: 240}, at.Add(5*time.Second)); err != nil {
		t.Fatalf("SetROI() error = %v", err)
	}

	if fx.days.IsCheckedIn("Alice", at) {
		t.Error("day state survived the region swap")
	}
	if got := fx.agg.ROI(); got != (geometry.ROI{X: 0, Y: 0, W: 320, H: 240}) {
		t.Errorf("ROI() = %+v after swap", got)
	}

	// Stability records are gone too: two fresh frames stay short of ready.
	fx.observe(at.Add(6*time.Second), []RecognizedFace{inZoneFace("Alice")}, nil)
	fx.observe(at.Add(7*time.Second), []RecognizedFace{inZoneFace("Alice")}, nil)
	if got := fx.recorder.checkInCount(); got != 1 {
		t.Errorf("checkIns = %d after swap and two frames, want still 1", got)
	}
	fx.observe(at.Add(8*time.Second), []RecognizedFace{inZoneFace("Alice")}, nil)
	if got := fx.recorder.checkInCount(); got != 2 {
		t.Errorf("checkIns = %d after full restabilization, want 2", got)
	}
}

func TestAggregatorSetROIRejectsEmptyRect(t *testing.T) {
	fx := newAggFixture(t, nil)
	if err := fx.agg.SetROI(geometry.ROI{X: 10, Y: 10, W: 0, H: 100}, mondayAt(12, 0, 0)); err == nil {
		t.Error("SetROI() accepted a zero-width rect")
	}
}

func TestAggregatorROIPersistsAcrossRestart(t *testing.T) {
	fx := newAggFixture(t, nil)
	want := geometry.ROI{X: 40, Y: 30, W: 200, H: 100}

	if err := fx.agg.SetROI(want, mondayAt(12, 0, 0)); err != nil {
		t.Fatalf("SetROI() error = %v", err)
	}

	// A second aggregator over the same store sees the persisted rect,
	// not the configured default.
	cfg := testAttendanceConfig()
	days, err := attendance.NewDayStateStore(fx.st, mondayAt(0, 0, 0))
	if err != nil {
		t.Fatalf("NewDayStateStore() error = %v", err)
	}
	sched, err := attendance.NewSchedule(cfg)
	if err != nil {
		t.Fatalf("NewSchedule() error = %v", err)
	}
	engine := attendance.NewEngine(cfg, sched, days, &fakeActuator{}, &fakeRecorder{})

	reborn, err := NewAggregator(
		config.CustomerConfig{Dwell: 5 * time.Second},
		config.ROIConfig{X: 0, Y: 0, W: 640, H: 480},
		fx.st, engine, &fakeActuator{}, nil,
	)
	if err != nil {
		t.Fatalf("NewAggregator() error = %v", err)
	}
	if got := reborn.ROI(); got != want {
		t.Errorf("ROI() = %+v after restart, want %+v", got, want)
	}
}

func TestAggregatorDefaultROIOnFirstBoot(t *testing.T) {
	fx := newAggFixture(t, nil)
	if got := fx.agg.ROI(); got != (geometry.ROI{X: 0, Y: 0, W: 640, H: 480}) {
		t.Errorf("ROI() = %+v, want the configured default", got)
	}
}

func TestAggregatorPublishesFrameSummaries(t *testing.T) {
	bus, err := events.NewBus(config.EventsConfig{BufferSize: 16})
	if err != nil {
		t.Fatalf("NewBus() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := bus.Run(ctx); err != nil {
			t.Errorf("bus.Run() error = %v", err)
		}
	}()
	select {
	case <-bus.Running():
	case <-time.After(2 * time.Second):
		t.Fatal("bus never started")
	}
	t.Cleanup(func() {
		cancel()
		<-done
	})

	sub, err := bus.Subscribe(ctx, events.TopicDetections)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	fx := newAggFixture(t, bus)
	fx.observe(mondayAt(11, 0, 0), []RecognizedFace{inZoneFace("Alice")}, []recognizer.Body{inZoneBody()})

	select {
	case msg := <-sub:
		msg.Ack()
		env, err := events.ParseEnvelope(msg.Payload)
		if err != nil {
			t.Fatalf("ParseEnvelope() error = %v", err)
		}
		if env.Type != events.TypeFrameSummary {
			t.Fatalf("envelope type = %q, want %q", env.Type, events.TypeFrameSummary)
		}
		var sum events.FrameSummary
		if err := json.Unmarshal(env.Payload, &sum); err != nil {
			t.Fatalf("unmarshal summary: %v", err)
		}
		if len(sum.Staff) != 1 || sum.Staff[0] != "Alice" || sum.Bodies != 1 {
			t.Errorf("summary = %+v, want Alice and one body", sum)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no frame summary published")
	}
}
