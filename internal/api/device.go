package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/hikbridge/internal/isapi"
	"github.com/smazurov/hikbridge/internal/snapshot"
)

// registerDeviceRoutes registers NVR discovery and snapshot endpoints.
func (s *Server) registerDeviceRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-device",
		Method:      http.MethodGet,
		Path:        "/api/device",
		Summary:     "Device Info",
		Description: "Identity reported by the NVR",
		Tags:        []string{"device"},
		Errors:      []int{401, 502},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct{}) (*DeviceResponse, error) {
		info, err := s.options.Discovery.DeviceInfo(ctx)
		if err != nil {
			return nil, s.mapNVRError(err)
		}
		return &DeviceResponse{Body: info}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "list-channels",
		Method:      http.MethodGet,
		Path:        "/api/channels",
		Summary:     "List Channels",
		Description: "Input channels discovered on the NVR",
		Tags:        []string{"device"},
		Errors:      []int{401, 502},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct{}) (*ChannelListResponse, error) {
		channels, err := s.options.Discovery.Channels(ctx)
		if err != nil {
			return nil, s.mapNVRError(err)
		}
		return &ChannelListResponse{
			Body: ChannelListData{Channels: channels, Count: len(channels)},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-snapshot",
		Method:      http.MethodGet,
		Path:        "/api/channels/{id}/snapshot",
		Summary:     "Channel Snapshot",
		Description: "Current still image for a channel (cached for a few seconds)",
		Tags:        []string{"device"},
		Errors:      []int{401, 502, 504},
		Security:    withAuth(),
	}, func(ctx context.Context, input *SnapshotInput) (*SnapshotResponse, error) {
		data, err := s.options.Snapshots.Snapshot(ctx, input.ChannelID, input.Width, input.Height)
		if err != nil {
			var perr *snapshot.ProcessError
			switch {
			case errors.Is(err, context.DeadlineExceeded):
				return nil, huma.Error504GatewayTimeout("snapshot capture timed out", err)
			case errors.As(err, &perr), errors.Is(err, snapshot.ErrEmptyCapture):
				return nil, huma.Error502BadGateway("snapshot capture failed", err)
			}
			return nil, err
		}
		return &SnapshotResponse{ContentType: "image/jpeg", Body: data}, nil
	})
}

// mapNVRError turns upstream ISAPI failures into 502s so callers can tell
// bridge faults from NVR faults.
func (s *Server) mapNVRError(err error) error {
	var statusErr *isapi.StatusError
	if errors.As(err, &statusErr) {
		return huma.Error502BadGateway("NVR rejected the request", err)
	}
	return huma.Error502BadGateway("NVR unreachable", err)
}
