// Package metrics provides Prometheus metrics for the NVR bridge.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	motionEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hikbridge",
		Subsystem: "events",
		Name:      "motion_total",
		Help:      "Motion events dispatched per channel and type",
	}, []string{"channel", "event_type"})

	eventsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hikbridge",
		Subsystem: "events",
		Name:      "dropped_total",
		Help:      "Event fragments dropped by reason (unrecognized, parse_error, overflow)",
	}, []string{"reason"})

	streamReconnects = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "hikbridge",
		Subsystem: "events",
		Name:      "stream_reconnects_total",
		Help:      "Alert stream disconnects that triggered a reconnect",
	})

	sessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "hikbridge",
		Subsystem: "streaming",
		Name:      "sessions_active",
		Help:      "Streaming sessions with a live transcoder process",
	})

	sessionsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "hikbridge",
		Subsystem: "streaming",
		Name:      "sessions_started_total",
		Help:      "Streaming sessions successfully started",
	})

	sessionsStopped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hikbridge",
		Subsystem: "streaming",
		Name:      "sessions_stopped_total",
		Help:      "Streaming sessions stopped by reason",
	}, []string{"reason"})

	transcoderExits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hikbridge",
		Subsystem: "streaming",
		Name:      "transcoder_exits_total",
		Help:      "Transcoder process exits by exit code",
	}, []string{"exit_code"})

	snapshotCaptures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hikbridge",
		Subsystem: "snapshot",
		Name:      "captures_total",
		Help:      "Snapshot requests by outcome (captured, cached, error)",
	}, []string{"outcome"})
)

// CountMotionEvent records a dispatched motion event.
func CountMotionEvent(channelID int, eventType string) {
	motionEvents.WithLabelValues(strconv.Itoa(channelID), eventType).Inc()
}

// CountEventDropped records a dropped event fragment.
func CountEventDropped(reason string) {
	eventsDropped.WithLabelValues(reason).Inc()
}

// CountStreamReconnect records an alert stream disconnect.
func CountStreamReconnect() {
	streamReconnects.Inc()
}

// SetActiveSessions sets the live session gauge.
func SetActiveSessions(n int) {
	sessionsActive.Set(float64(n))
}

// CountSessionStarted records a successful session start.
func CountSessionStarted() {
	sessionsStarted.Inc()
}

// CountSessionStopped records a session teardown.
func CountSessionStopped(reason string) {
	sessionsStopped.WithLabelValues(reason).Inc()
}

// CountTranscoderExit records a transcoder process exit.
func CountTranscoderExit(exitCode int) {
	transcoderExits.WithLabelValues(strconv.Itoa(exitCode)).Inc()
}

// CountSnapshot records a snapshot request outcome.
func CountSnapshot(outcome string) {
	snapshotCaptures.WithLabelValues(outcome).Inc()
}
