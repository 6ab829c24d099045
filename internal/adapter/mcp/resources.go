package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"roteiro/internal/domain"
)

const uriScheme = "roteiro://"

func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "stats",
		Name:        "stats",
		Description: "Document and chunk counts of the indexed corpus",
		MIMEType:    "application/json",
	}, s.handleStatsResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "documents/{documentId}",
		Name:        "document-content",
		Description: "Normalized text of an indexed document",
		MIMEType:    "text/plain",
	}, s.handleDocumentResource)
}

type statsOutput struct {
	Documents   int     `json:"documents"`
	Chunks      int     `json:"chunks"`
	AvgChunkLen float64 `json:"avg_chunk_len"`
	Dimension   int     `json:"dimension"`
	Model       string  `json:"model,omitempty"`
}

func (s *Server) handleStatsResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	var stats domain.Stats
	if s.ports.Store != nil {
		var err error
		stats, err = s.ports.Store.GetStats()
		if err != nil {
			return nil, fmt.Errorf("reading stats: %w", err)
		}
	}

	data, err := json.Marshal(statsOutput{
		Documents:   stats.TotalDocs,
		Chunks:      stats.TotalChunks,
		AvgChunkLen: stats.AvgChunkLen,
		Dimension:   stats.Dimension,
		Model:       stats.Model,
	})
	if err != nil {
		return nil, err
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

func (s *Server) handleDocumentResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	id := strings.TrimPrefix(req.Params.URI, uriScheme+"documents/")
	if id == "" || id == req.Params.URI {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if s.ports.Store == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	doc, err := s.ports.Store.GetDoc(id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if err != nil {
		return nil, fmt.Errorf("reading document %s: %w", id, err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "text/plain",
			Text:     doc.Text,
		}},
	}, nil
}
