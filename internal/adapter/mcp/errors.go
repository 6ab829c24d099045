// Package mcp exposes retrieval over the Model Context Protocol so that an
// assistant can fetch thesis context for its answers.
package mcp

import "errors"

// ErrMissingRetriever is returned when the retrieval service is not provided.
var ErrMissingRetriever = errors.New("mcp: retriever is required")
