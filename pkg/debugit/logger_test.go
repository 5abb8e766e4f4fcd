package debugit_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/debugit-log/debugit-go/internal/diag"
	"github.com/debugit-log/debugit-go/pkg/debugit"
	"github.com/debugit-log/debugit-go/pkg/log"
	"github.com/debugit-log/debugit-go/pkg/relay"
)

// mockSink is a testify mock for log.Sink.
type mockSink struct {
	mock.Mock
}

func (m *mockSink) Deliver(event log.Event) error {
	args := m.Called(event)
	return args.Error(0)
}

// mockClosingSink also implements io.Closer.
type mockClosingSink struct {
	mockSink
}

func (m *mockClosingSink) Close() error {
	args := m.Called()
	return args.Error(0)
}

// recordingSink collects delivered events.
type recordingSink struct {
	mu     sync.Mutex
	events []log.Event
}

func (r *recordingSink) Deliver(event log.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingSink) all() []log.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]log.Event(nil), r.events...)
}

var fixedTime = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedTime }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func newLogger(t *testing.T, sinks []log.Sink, settings debugit.Settings, opts ...debugit.Option) *debugit.Logger {
	t.Helper()
	opts = append([]debugit.Option{debugit.WithClock(fixedClock), debugit.WithLogger(quietLogger())}, opts...)
	l, err := debugit.New(sinks, settings, nil, opts...)
	require.NoError(t, err)
	return l
}

func closeLogger(t *testing.T, l *debugit.Logger) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, l.Close(ctx))
}

func TestInfoThresholdScenario(t *testing.T) {
	sink := &mockSink{}
	sink.On("Deliver", mock.Anything).Return(nil)

	l := newLogger(t, []log.Sink{sink}, debugit.Settings{MinLevel: log.LevelInfo})
	l.Debug("x", nil)
	l.Info("y", debugit.Meta{"a": 1})
	closeLogger(t, l)

	sink.AssertNumberOfCalls(t, "Deliver", 1)
	event := sink.Calls[0].Arguments.Get(0).(log.Event)
	assert.Equal(t, log.LevelInfo, event.Level)
	assert.Equal(t, "y", event.Message)
	assert.Equal(t, map[string]any{"a": 1}, event.Metadata)
	assert.Equal(t, fixedTime, event.Timestamp)
}

func TestLevelFiltering(t *testing.T) {
	for _, minLevel := range log.AllLevels() {
		t.Run(minLevel.String(), func(t *testing.T) {
			sink := &recordingSink{}
			l := newLogger(t, []log.Sink{sink}, debugit.Settings{MinLevel: minLevel})

			for _, level := range log.AllLevels() {
				l.Log(level, level.String(), nil)
			}
			closeLogger(t, l)

			var got []string
			for _, e := range sink.all() {
				got = append(got, e.Message)
			}
			var want []string
			for _, level := range log.AllLevels() {
				if level.Rank() >= minLevel.Rank() {
					want = append(want, level.String())
				}
			}
			assert.Equal(t, want, got)
		})
	}
}

func TestLeveledMethods(t *testing.T) {
	sink := &recordingSink{}
	l := newLogger(t, []log.Sink{sink}, debugit.Settings{MinLevel: log.LevelDebug})

	l.Debug("d", nil)
	l.Info("i", nil)
	l.Warn("w", nil)
	l.Error("e", nil)
	closeLogger(t, l)

	events := sink.all()
	require.Len(t, events, 4)
	for i, level := range log.AllLevels() {
		assert.Equal(t, level, events[i].Level)
	}
}

func TestSameEventForEverySink(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	l := newLogger(t, []log.Sink{a, b}, debugit.Settings{MinLevel: log.LevelDebug, DebugMode: true})

	l.Warn("disk low", debugit.Meta{"free": "1G"})
	closeLogger(t, l)

	require.Len(t, a.all(), 1)
	require.Len(t, b.all(), 1)
	assert.Equal(t, a.all()[0], b.all()[0])
	assert.True(t, a.all()[0].DebugMode)
}

func TestMetadataIsCopied(t *testing.T) {
	sink := &recordingSink{}
	l := newLogger(t, []log.Sink{sink}, debugit.Settings{})

	meta := debugit.Meta{"k": "before"}
	l.Info("m", meta)
	meta["k"] = "after"
	l.Info("empty", debugit.Meta{})
	l.Info("absent", nil)
	closeLogger(t, l)

	events := sink.all()
	require.Len(t, events, 3)
	assert.Equal(t, "before", events[0].Metadata["k"])
	assert.True(t, events[1].HasMetadata())
	assert.Empty(t, events[1].Metadata)
	assert.False(t, events[2].HasMetadata())
}

func TestFailingSinksAreIsolated(t *testing.T) {
	failing := &mockSink{}
	failing.On("Deliver", mock.Anything).Return(errors.New("disk full"))

	panicking := &mockSink{}
	panicking.On("Deliver", mock.Anything).Panic("boom")

	good := &recordingSink{}

	var diagOut bytes.Buffer
	reporter := diag.NewReporter(slog.New(slog.NewTextHandler(&diagOut, nil)))
	l := newLogger(t, []log.Sink{failing, panicking, good}, debugit.Settings{},
		debugit.WithReporter(reporter))

	assert.NotPanics(t, func() {
		l.Info("one", nil)
		l.Error("two", nil)
	})
	closeLogger(t, l)

	assert.Len(t, good.all(), 2)
	failing.AssertNumberOfCalls(t, "Deliver", 2)
	panicking.AssertNumberOfCalls(t, "Deliver", 2)
	assert.Contains(t, diagOut.String(), "disk full")
	assert.Contains(t, diagOut.String(), "sink panicked: boom")
}

func TestBlockedSinkDoesNotBlockCaller(t *testing.T) {
	release := make(chan struct{})
	blocked := log.SinkFunc(func(log.Event) error {
		<-release
		return nil
	})
	good := &recordingSink{}

	l := newLogger(t, []log.Sink{blocked, good}, debugit.Settings{},
		debugit.WithQueueSize(16))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := range 40 {
			l.Info(fmt.Sprintf("m%d", i), nil)
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Log blocked on a stalled sink")
	}

	// The stalled sink holds one event and queues 16; the rest are dropped.
	assert.GreaterOrEqual(t, l.Dropped(), uint64(40-17))

	close(release)
	closeLogger(t, l)
	assert.NotEmpty(t, good.all())
}

func TestPerSinkOrder(t *testing.T) {
	sink := &recordingSink{}
	l := newLogger(t, []log.Sink{sink}, debugit.Settings{}, debugit.WithQueueSize(100))

	for i := range 50 {
		l.Info(fmt.Sprintf("%02d", i), nil)
	}
	closeLogger(t, l)

	events := sink.all()
	require.Len(t, events, 50)
	for i, e := range events {
		assert.Equal(t, fmt.Sprintf("%02d", i), e.Message)
	}
}

func TestAddSinkAffectsOnlyLaterEvents(t *testing.T) {
	first := &recordingSink{}
	l := newLogger(t, []log.Sink{first}, debugit.Settings{})

	l.Info("before", nil)
	late := &recordingSink{}
	require.NoError(t, l.AddSink(late))
	l.Info("after", nil)
	closeLogger(t, l)

	assert.Len(t, first.all(), 2)
	require.Len(t, late.all(), 1)
	assert.Equal(t, "after", late.all()[0].Message)

	assert.ErrorIs(t, l.AddSink(&recordingSink{}), debugit.ErrClosed)
	assert.ErrorIs(t, l.AddSink(nil), debugit.ErrNilSink)
}

func TestSourceLocation(t *testing.T) {
	sink := &recordingSink{}
	l := newLogger(t, []log.Sink{sink}, debugit.Settings{MinLevel: log.LevelInfo}, debugit.WithSource(true))

	l.Info("here", nil)
	l.Log(log.LevelWarn, "there", nil)
	l.LogAt("[main.go:7]", log.LevelError, "explicit", nil)
	l.LogAt("[main.go:8]", log.LevelDebug, "filtered", nil)
	closeLogger(t, l)

	events := sink.all()
	require.Len(t, events, 3)
	assert.Regexp(t, `^\[logger_test\.go:\d+\]$`, events[0].Source)
	assert.Regexp(t, `^\[logger_test\.go:\d+\]$`, events[1].Source)
	assert.Equal(t, "[main.go:7]", events[2].Source)
}

func TestSourceLocationOffByDefault(t *testing.T) {
	sink := &recordingSink{}
	l := newLogger(t, []log.Sink{sink}, debugit.Settings{})
	l.Info("here", nil)
	closeLogger(t, l)

	require.Len(t, sink.all(), 1)
	assert.Empty(t, sink.all()[0].Source)
}

func TestCloseClosesSinks(t *testing.T) {
	sink := &mockClosingSink{}
	sink.On("Deliver", mock.Anything).Return(nil)
	sink.On("Close").Return(nil).Once()

	l := newLogger(t, []log.Sink{sink}, debugit.Settings{})
	l.Info("x", nil)
	closeLogger(t, l)
	closeLogger(t, l)

	// Events after Close go nowhere.
	l.Info("late", nil)

	sink.AssertExpectations(t)
	sink.AssertNumberOfCalls(t, "Deliver", 1)
}

func TestCloseReportsSinkCloseError(t *testing.T) {
	sink := &mockClosingSink{}
	sink.On("Close").Return(errors.New("flush failed"))

	l := newLogger(t, []log.Sink{sink}, debugit.Settings{})
	err := l.Close(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "flush failed")
}

func TestCloseRespectsContext(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	blocked := log.SinkFunc(func(log.Event) error {
		<-release
		return nil
	})

	l := newLogger(t, []log.Sink{blocked}, debugit.Settings{})
	l.Info("stuck", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := l.Close(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewValidation(t *testing.T) {
	_, err := debugit.New([]log.Sink{nil}, debugit.Settings{}, nil)
	assert.ErrorIs(t, err, debugit.ErrNilSink)

	_, err = debugit.New(nil, debugit.Settings{MinLevel: log.Level(9)}, nil)
	assert.ErrorIs(t, err, log.ErrUnknownLevel)
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return port
}

func TestRelayOnlyInDebugMode(t *testing.T) {
	cfg := &relay.Config{Mode: relay.ModeServer, Host: "127.0.0.1", Port: freePort(t)}

	l, err := debugit.New(nil, debugit.Settings{}, cfg, debugit.WithLogger(quietLogger()))
	require.NoError(t, err)
	assert.Nil(t, l.Relay())
	closeLogger(t, l)
}

func TestRelayConstructionErrors(t *testing.T) {
	settings := debugit.Settings{DebugMode: true}

	_, err := debugit.New(nil, settings, &relay.Config{Mode: relay.ModeClient}, debugit.WithLogger(quietLogger()))
	assert.ErrorIs(t, err, relay.ErrMissingTarget)

	_, err = debugit.New(nil, settings, &relay.Config{Mode: "mesh"}, debugit.WithLogger(quietLogger()))
	assert.ErrorIs(t, err, relay.ErrInvalidMode)
}

func TestRelayServerPortInUse(t *testing.T) {
	registry := relay.NewPortRegistry()
	cfg := &relay.Config{Mode: relay.ModeServer, Host: "127.0.0.1", Port: freePort(t)}
	settings := debugit.Settings{DebugMode: true}

	first, err := debugit.New(nil, settings, cfg, debugit.WithPortRegistry(registry), debugit.WithLogger(quietLogger()))
	require.NoError(t, err)
	defer closeLogger(t, first)

	_, err = debugit.New(nil, settings, cfg, debugit.WithPortRegistry(registry), debugit.WithLogger(quietLogger()))
	assert.ErrorIs(t, err, relay.ErrPortInUse)
	assert.Equal(t, relay.ModeServer, first.Relay().Mode())
}

func TestRelayServerBroadcastsEvents(t *testing.T) {
	port := freePort(t)
	cfg := &relay.Config{Mode: relay.ModeServer, Host: "127.0.0.1", Port: port, Password: "pw"}
	joined := make(chan string, 1)

	local := &recordingSink{}
	l, err := debugit.New([]log.Sink{local}, debugit.Settings{MinLevel: log.LevelInfo, DebugMode: true}, cfg,
		debugit.WithClock(fixedClock),
		debugit.WithLogger(quietLogger()),
		debugit.WithRelayOptions(relay.WithViewerHook(func(id string, ok bool) {
			if ok {
				joined <- id
			}
		})),
	)
	require.NoError(t, err)
	defer closeLogger(t, l)

	url := fmt.Sprintf("ws://127.0.0.1:%d/?password=pw", port)
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	resp.Body.Close()
	defer conn.Close()

	select {
	case <-joined:
	case <-time.After(2 * time.Second):
		t.Fatal("viewer was not added")
	}

	l.Debug("hidden", nil)
	l.Info("y", debugit.Meta{"a": 1})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	want := log.Render(log.NewEvent(log.LevelInfo, "y", map[string]any{"a": 1}, fixedTime, true, ""))
	assert.Equal(t, want, string(data))
	assert.True(t, strings.HasPrefix(string(data), `{"[DEBUG]":"(2024-05-01T10:00:00.000Z) ---> "`))
}

func TestNestedMetadataSnapshotAtLogTime(t *testing.T) {
	var (
		mu    sync.Mutex
		lines []string
	)
	render := log.SinkFunc(func(e log.Event) error {
		line := log.Render(e)
		mu.Lock()
		lines = append(lines, line)
		mu.Unlock()
		return nil
	})
	l := newLogger(t, []log.Sink{render, render}, debugit.Settings{})

	req := map[string]any{"n": 0}
	l.Info("request", debugit.Meta{"req": req})
	for i := 1; i <= 1000; i++ {
		req["n"] = i
	}
	closeLogger(t, l)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, lines, 2)
	for _, line := range lines {
		assert.Contains(t, line, `"meta":{"req":{"n":0}}`)
	}
}
