package mcp

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// StatusResourceURI is the URI of the status resource.
const StatusResourceURI = "treasurebot://status"

// registerResources registers the read-only resources.
func (s *Server) registerResources() {
	s.mcp.AddResource(
		&mcp.Resource{
			Name:        "status",
			URI:         StatusResourceURI,
			Description: "Item database state as JSON",
			MIMEType:    "application/json",
		},
		s.handleStatusResource,
	)
}

// handleStatusResource returns the index_status output as JSON.
func (s *Server) handleStatusResource(ctx context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	out, err := s.indexStatus(ctx)
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, MapError(err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{
				URI:      StatusResourceURI,
				MIMEType: "application/json",
				Text:     string(data),
			},
		},
	}, nil
}
