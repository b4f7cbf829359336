package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

// registerSessionRoutes registers the streaming session view.
func (s *Server) registerSessionRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-sessions",
		Method:      http.MethodGet,
		Path:        "/api/sessions",
		Summary:     "List Sessions",
		Description: "Point-in-time view of tracked viewer streaming sessions",
		Tags:        []string{"sessions"},
		Errors:      []int{401},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct{}) (*SessionListResponse, error) {
		sessions := s.options.Sessions.Sessions()
		return &SessionListResponse{
			Body: SessionListData{Sessions: sessions, Count: len(sessions)},
		}, nil
	})
}
