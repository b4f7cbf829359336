package nvr

import (
	"context"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/smazurov/hikbridge/internal/events"
	"github.com/smazurov/hikbridge/internal/isapi"
	"github.com/smazurov/hikbridge/internal/logging"
	"github.com/smazurov/hikbridge/internal/metrics"

	"log/slog"
)

const (
	alertStreamPath = "/ISAPI/Event/notification/alertStream"
	alertCloseTag   = "</EventNotificationAlert>"

	// maxBufferLen bounds memory when the feed never produces a complete
	// event (malformed or never-closing input). Exceeding it clears the
	// buffer entirely: a lossy safety valve, not a correctness guarantee.
	maxBufferLen = 100000
)

// motionEventTypes is the recognized motion vocabulary; anything else is
// parsed but never dispatched.
var motionEventTypes = []string{
	"VMD",            // Video Motion Detection
	"linedetection",  // Line Crossing Detection
	"fielddetection", // Intrusion Detection
	"regionEntrance",
	"regionExiting",
	"shelteralarm", // Video Tampering
}

var (
	alertRe     = regexp.MustCompile(`(?s)<EventNotificationAlert[^>]*>.*?</EventNotificationAlert>`)
	eventTypeRe = regexp.MustCompile(`<eventType>([^<]+)</eventType>`)
	stateRe     = regexp.MustCompile(`<eventState>([^<]+)</eventState>`)

	// Firmware variants spell the channel tag differently; tried in order,
	// first hit wins.
	channelRes = []*regexp.Regexp{
		regexp.MustCompile(`<channelID>(\d+)</channelID>`),
		regexp.MustCompile(`<channelId>(\d+)</channelId>`),
		regexp.MustCompile(`<dynChannelID>(\d+)</dynChannelID>`),
		regexp.MustCompile(`<inputIOPortID>(\d+)</inputIOPortID>`),
	}
)

// Monitor consumes the NVR's persistent alert stream and republishes
// recognized motion events on the bus.
type Monitor struct {
	client *isapi.Client
	bus    *events.Bus
	logger *slog.Logger
	debug  bool

	mu     sync.Mutex
	stream *isapi.Stream
	buffer string
}

// NewMonitor creates a motion event monitor.
func NewMonitor(client *isapi.Client, bus *events.Bus, debug bool) *Monitor {
	return &Monitor{
		client: client,
		bus:    bus,
		logger: logging.GetLogger("monitor"),
		debug:  debug,
	}
}

// Start opens the alert stream and begins dispatching. Calling Start while
// already connected is a no-op.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stream != nil {
		m.logger.Debug("Event stream already running")
		return
	}

	m.logger.Info("Starting motion event stream")

	stream := m.client.OpenStream(ctx, alertStreamPath, isapi.StreamHandlers{
		OnConnect: func() {
			m.logger.Info("Alert stream connected")
			m.bus.Publish(events.MonitorStateEvent{
				Connected: true,
				Timestamp: time.Now().Format(time.RFC3339),
			})
		},
		OnDisconnect: func(err error) {
			reason := ""
			if err != nil {
				reason = err.Error()
				m.logger.Error("Alert stream error", "error", err)
			}
			metrics.CountStreamReconnect()
			m.bus.Publish(events.MonitorStateEvent{
				Connected: false,
				Reason:    reason,
				Timestamp: time.Now().Format(time.RFC3339),
			})
		},
	})
	m.stream = stream

	go func() {
		for chunk := range stream.Chunks() {
			m.handleChunk(string(chunk))
		}
	}()
}

// Stop closes the stream and suppresses further reconnection.
func (m *Monitor) Stop() {
	m.mu.Lock()
	stream := m.stream
	m.stream = nil
	m.buffer = ""
	m.mu.Unlock()

	if stream != nil {
		m.logger.Info("Stopping motion event stream")
		stream.Close()
	}
}

// Subscribe registers a handler for motion events on one channel.
// Returns an unsubscribe function.
func (m *Monitor) Subscribe(channelID int, handler func(events.MotionEvent)) func() {
	return m.bus.Subscribe(func(e events.MotionEvent) {
		if e.ChannelID == channelID {
			handler(e)
		}
	})
}

// handleChunk appends the chunk to the buffer, dispatches every complete
// alert fragment found, and truncates consumed data.
func (m *Monitor) handleChunk(chunk string) {
	m.mu.Lock()
	m.buffer += chunk

	for _, fragment := range alertRe.FindAllString(m.buffer, -1) {
		m.parseAlert(fragment)
	}

	// Keep only data after the last complete event
	if idx := strings.LastIndex(m.buffer, alertCloseTag); idx > -1 {
		m.buffer = m.buffer[idx+len(alertCloseTag):]
	}

	if len(m.buffer) > maxBufferLen {
		m.logger.Warn("Event buffer overflow, clearing", "size", len(m.buffer))
		metrics.CountEventDropped("overflow")
		m.buffer = ""
	}
	m.mu.Unlock()
}

// parseAlert extracts one event from a complete fragment and dispatches it
// when its type is in the motion vocabulary. Failures are logged and
// skipped; they never abort the stream or affect sibling events.
func (m *Monitor) parseAlert(fragment string) {
	channelID, ok := extractChannelID(fragment)
	if !ok {
		m.logger.Debug("Alert without channel identifier, skipping")
		metrics.CountEventDropped("parse_error")
		return
	}

	typeMatch := eventTypeRe.FindStringSubmatch(fragment)
	if typeMatch == nil {
		m.logger.Debug("Alert without eventType, skipping", "channel", channelID)
		metrics.CountEventDropped("parse_error")
		return
	}
	eventType := typeMatch[1]

	if !slices.Contains(motionEventTypes, eventType) {
		if m.debug {
			m.logger.Debug("Ignoring non-motion event type", "event_type", eventType)
		}
		metrics.CountEventDropped("unrecognized")
		return
	}

	// Absent eventState means the alert is active; some firmwares omit the
	// tag on genuine motion.
	active := true
	if stateMatch := stateRe.FindStringSubmatch(fragment); stateMatch != nil {
		active = strings.EqualFold(stateMatch[1], "active")
	}

	if m.debug {
		m.logger.Debug("Motion event", "channel", channelID, "event_type", eventType, "active", active)
	}

	metrics.CountMotionEvent(channelID, eventType)
	m.bus.Publish(events.MotionEvent{
		ChannelID: channelID,
		EventType: eventType,
		Active:    active,
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// extractChannelID tries the known channel tag spellings in order.
func extractChannelID(fragment string) (int, bool) {
	for _, re := range channelRes {
		if match := re.FindStringSubmatch(fragment); match != nil {
			id, err := strconv.Atoi(match[1])
			if err != nil {
				continue
			}
			return id, true
		}
	}
	return 0, false
}
