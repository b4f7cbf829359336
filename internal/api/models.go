package api

import (
	"github.com/smazurov/hikbridge/internal/nvr"
	"github.com/smazurov/hikbridge/internal/streaming"
)

// HealthData is the health check payload.
type HealthData struct {
	Status string `json:"status" example:"ok" doc:"Service status"`
}

// HealthResponse wraps the health payload.
type HealthResponse struct {
	Body HealthData
}

// DeviceResponse wraps the NVR identity payload.
type DeviceResponse struct {
	Body nvr.DeviceInfo
}

// ChannelListData lists discovered input channels.
type ChannelListData struct {
	Channels []nvr.Channel `json:"channels" doc:"Discovered input channels"`
	Count    int           `json:"count" doc:"Number of channels"`
}

// ChannelListResponse wraps the channel list payload.
type ChannelListResponse struct {
	Body ChannelListData
}

// SnapshotInput addresses one channel's snapshot.
type SnapshotInput struct {
	ChannelID int `path:"id" doc:"NVR channel identifier"`
	Width     int `query:"width" doc:"Requested width hint"`
	Height    int `query:"height" doc:"Requested height hint"`
}

// SnapshotResponse carries raw JPEG bytes.
type SnapshotResponse struct {
	ContentType string `header:"Content-Type"`
	Body        []byte
}

// SessionListData lists tracked streaming sessions.
type SessionListData struct {
	Sessions []streaming.SessionInfo `json:"sessions" doc:"Tracked viewer sessions"`
	Count    int                     `json:"count" doc:"Number of sessions"`
}

// SessionListResponse wraps the session list payload.
type SessionListResponse struct {
	Body SessionListData
}
