package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServer(t *testing.T) {
	t.Run("nil retriever returns error", func(t *testing.T) {
		server, err := NewServer(&Ports{})
		require.Error(t, err)
		assert.Nil(t, server)
		assert.ErrorIs(t, err, ErrMissingRetriever)
	})

	t.Run("valid ports creates server", func(t *testing.T) {
		server, err := NewServer(&Ports{Retriever: &mockRetriever{}})
		require.NoError(t, err)
		assert.NotNil(t, server)
	})
}

func TestPorts_Validate(t *testing.T) {
	t.Run("retriever only is valid", func(t *testing.T) {
		ports := &Ports{Retriever: &mockRetriever{}}
		assert.NoError(t, ports.Validate())
	})

	t.Run("retriever and store is valid", func(t *testing.T) {
		store, err := seededStore()
		require.NoError(t, err)
		ports := &Ports{Retriever: &mockRetriever{}, Store: store}
		assert.NoError(t, ports.Validate())
	})
}
