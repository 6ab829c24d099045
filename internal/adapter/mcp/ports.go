package mcp

import "roteiro/internal/port"

// Ports aggregates what the MCP server needs from the application.
type Ports struct {
	// Retriever answers retrieve tool calls.
	Retriever port.Retriever

	// Store backs the stats and document resources. Optional.
	Store port.CorpusStore
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Retriever == nil {
		return ErrMissingRetriever
	}
	return nil
}
