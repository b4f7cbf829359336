package nvr

import (
	"strings"
	"testing"
	"time"

	"github.com/smazurov/hikbridge/internal/events"
)

func newTestMonitor() (*Monitor, *events.Bus) {
	bus := events.New()
	return NewMonitor(nil, bus, false), bus
}

func collectMotion(m *Monitor, channelID int) (<-chan events.MotionEvent, func()) {
	ch := make(chan events.MotionEvent, 16)
	unsub := m.Subscribe(channelID, func(e events.MotionEvent) {
		ch <- e
	})
	return ch, unsub
}

func waitEvent(t *testing.T, ch <-chan events.MotionEvent) events.MotionEvent {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for motion event")
		return events.MotionEvent{}
	}
}

func assertNoEvent(t *testing.T, ch <-chan events.MotionEvent) {
	t.Helper()
	select {
	case e := <-ch:
		t.Fatalf("unexpected event: %+v", e)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestEventSplitAcrossChunks(t *testing.T) {
	m, _ := newTestMonitor()
	ch, unsub := collectMotion(m, 5)
	defer unsub()

	full := "<EventNotificationAlert><channelID>5</channelID><eventType>VMD</eventType><eventState>active</eventState></EventNotificationAlert>"
	m.handleChunk(full[:40])
	assertNoEvent(t, ch)

	m.handleChunk(full[40:])
	e := waitEvent(t, ch)
	if e.ChannelID != 5 || e.EventType != "VMD" || !e.Active {
		t.Errorf("unexpected event: %+v", e)
	}
	assertNoEvent(t, ch)
}

func TestMultipleEventsInOneChunk(t *testing.T) {
	m, _ := newTestMonitor()
	ch, unsub := collectMotion(m, 1)
	defer unsub()

	m.handleChunk(
		"<EventNotificationAlert><channelID>1</channelID><eventType>VMD</eventType><eventState>active</eventState></EventNotificationAlert>" +
			"<EventNotificationAlert><channelID>1</channelID><eventType>linedetection</eventType><eventState>inactive</eventState></EventNotificationAlert>")

	first := waitEvent(t, ch)
	second := waitEvent(t, ch)
	if first.EventType != "VMD" || !first.Active {
		t.Errorf("first event: %+v", first)
	}
	if second.EventType != "linedetection" || second.Active {
		t.Errorf("second event: %+v", second)
	}
}

func TestUnrecognizedEventTypeNotDispatched(t *testing.T) {
	m, _ := newTestMonitor()
	ch, unsub := collectMotion(m, 2)
	defer unsub()

	m.handleChunk("<EventNotificationAlert><channelID>2</channelID><eventType>videoloss</eventType></EventNotificationAlert>")
	assertNoEvent(t, ch)
}

func TestMissingEventStateIsActive(t *testing.T) {
	m, _ := newTestMonitor()
	ch, unsub := collectMotion(m, 7)
	defer unsub()

	m.handleChunk("<EventNotificationAlert><channelID>7</channelID><eventType>fielddetection</eventType></EventNotificationAlert>")
	if e := waitEvent(t, ch); !e.Active {
		t.Errorf("expected active event, got %+v", e)
	}
}

func TestChannelTagSpellings(t *testing.T) {
	tests := []struct {
		name     string
		fragment string
		channel  int
	}{
		{"channelID", "<channelID>3</channelID>", 3},
		{"channelId", "<channelId>4</channelId>", 4},
		{"dynChannelID", "<dynChannelID>5</dynChannelID>", 5},
		{"inputIOPortID", "<inputIOPortID>6</inputIOPortID>", 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := newTestMonitor()
			ch, unsub := collectMotion(m, tt.channel)
			defer unsub()

			m.handleChunk("<EventNotificationAlert>" + tt.fragment + "<eventType>VMD</eventType></EventNotificationAlert>")
			if e := waitEvent(t, ch); e.ChannelID != tt.channel {
				t.Errorf("channel = %d, want %d", e.ChannelID, tt.channel)
			}
		})
	}
}

func TestFirstChannelSpellingWins(t *testing.T) {
	m, _ := newTestMonitor()
	ch, unsub := collectMotion(m, 1)
	defer unsub()

	m.handleChunk("<EventNotificationAlert><channelID>1</channelID><dynChannelID>9</dynChannelID><eventType>VMD</eventType></EventNotificationAlert>")
	if e := waitEvent(t, ch); e.ChannelID != 1 {
		t.Errorf("channel = %d, want 1", e.ChannelID)
	}
}

func TestMalformedFragmentSkippedOthersDispatched(t *testing.T) {
	m, _ := newTestMonitor()
	ch, unsub := collectMotion(m, 8)
	defer unsub()

	m.handleChunk(
		"<EventNotificationAlert><eventType>VMD</eventType></EventNotificationAlert>" + // no channel
			"<EventNotificationAlert><channelID>8</channelID><eventType>VMD</eventType></EventNotificationAlert>")

	if e := waitEvent(t, ch); e.ChannelID != 8 {
		t.Errorf("channel = %d, want 8", e.ChannelID)
	}
	assertNoEvent(t, ch)
}

func TestBufferTruncatedAfterDispatch(t *testing.T) {
	m, _ := newTestMonitor()
	ch, unsub := collectMotion(m, 1)
	defer unsub()

	m.handleChunk("<EventNotificationAlert><channelID>1</channelID><eventType>VMD</eventType></EventNotificationAlert><EventNotif")
	waitEvent(t, ch)

	m.mu.Lock()
	buf := m.buffer
	m.mu.Unlock()
	if buf != "<EventNotif" {
		t.Errorf("buffer = %q, want trailing partial only", buf)
	}
}

func TestBufferOverflowCleared(t *testing.T) {
	m, _ := newTestMonitor()
	ch, unsub := collectMotion(m, 1)
	defer unsub()

	// No closing tag ever arrives
	m.handleChunk("<EventNotificationAlert>" + strings.Repeat("x", maxBufferLen))

	m.mu.Lock()
	buf := m.buffer
	m.mu.Unlock()
	if buf != "" {
		t.Errorf("buffer not cleared, len = %d", len(buf))
	}
	assertNoEvent(t, ch)
}

func TestSubscribeFiltersByChannel(t *testing.T) {
	m, _ := newTestMonitor()
	ch1, unsub1 := collectMotion(m, 1)
	defer unsub1()
	ch2, unsub2 := collectMotion(m, 2)
	defer unsub2()

	m.handleChunk("<EventNotificationAlert><channelID>2</channelID><eventType>VMD</eventType></EventNotificationAlert>")

	if e := waitEvent(t, ch2); e.ChannelID != 2 {
		t.Errorf("channel = %d", e.ChannelID)
	}
	assertNoEvent(t, ch1)
}
