package events

// Event type constants for kelindar/event.
const (
	TypeMotion uint32 = iota + 1
	TypeMonitorState
	TypeSessionStarted
	TypeSessionStopped
	TypeSnapshotCaptured
	TypeChannelsReloaded
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// MotionEvent represents a recognized motion alert from the NVR event stream.
type MotionEvent struct {
	ChannelID int    `json:"channel_id" example:"3" doc:"NVR input channel the alert refers to"`
	EventType string `json:"event_type" example:"VMD" doc:"ISAPI event type (VMD, linedetection, ...)"`
	Active    bool   `json:"active" example:"true" doc:"Whether the event is starting or clearing"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Dispatch timestamp"`
}

// Type returns the event type identifier for MotionEvent.
func (e MotionEvent) Type() uint32 { return TypeMotion }

// MonitorStateEvent signals the alert stream going up or down.
type MonitorStateEvent struct {
	Connected bool   `json:"connected" example:"true" doc:"Whether the alert stream is connected"`
	Reason    string `json:"reason,omitempty" doc:"Last error when disconnected"`
	Timestamp string `json:"timestamp" doc:"Event timestamp"`
}

// Type returns the event type identifier for MonitorStateEvent.
func (e MonitorStateEvent) Type() uint32 { return TypeMonitorState }

// SessionStartedEvent is published when a viewer streaming session goes active.
type SessionStartedEvent struct {
	SessionID string `json:"session_id" doc:"Opaque viewer session identifier"`
	ChannelID int    `json:"channel_id" doc:"NVR channel being streamed"`
	Width     int    `json:"width" doc:"Negotiated video width"`
	Height    int    `json:"height" doc:"Negotiated video height"`
	Bitrate   int    `json:"bitrate" doc:"Negotiated video bitrate in kbit/s"`
	Timestamp string `json:"timestamp" doc:"Event timestamp"`
}

// Type returns the event type identifier for SessionStartedEvent.
func (e SessionStartedEvent) Type() uint32 { return TypeSessionStarted }

// SessionStoppedEvent is published when a streaming session is torn down.
type SessionStoppedEvent struct {
	SessionID string `json:"session_id" doc:"Opaque viewer session identifier"`
	ChannelID int    `json:"channel_id" doc:"NVR channel that was streamed"`
	Reason    string `json:"reason" example:"viewer_stop" doc:"Why the session ended (viewer_stop, process_exit, shutdown)"`
	Timestamp string `json:"timestamp" doc:"Event timestamp"`
}

// Type returns the event type identifier for SessionStoppedEvent.
func (e SessionStoppedEvent) Type() uint32 { return TypeSessionStopped }

// SnapshotCapturedEvent is published after a successful snapshot capture.
type SnapshotCapturedEvent struct {
	ChannelID int    `json:"channel_id" doc:"NVR channel the snapshot came from"`
	Bytes     int    `json:"bytes" doc:"Size of the captured image"`
	Cached    bool   `json:"cached" doc:"Whether the image was served from cache"`
	Timestamp string `json:"timestamp" doc:"Event timestamp"`
}

// Type returns the event type identifier for SnapshotCapturedEvent.
func (e SnapshotCapturedEvent) Type() uint32 { return TypeSnapshotCaptured }

// ChannelsReloadedEvent is published when the camera configuration file changes.
type ChannelsReloadedEvent struct {
	Count     int    `json:"count" doc:"Number of cameras in the new configuration"`
	Timestamp string `json:"timestamp" doc:"Event timestamp"`
}

// Type returns the event type identifier for ChannelsReloadedEvent.
func (e ChannelsReloadedEvent) Type() uint32 { return TypeChannelsReloaded }
