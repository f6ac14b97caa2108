package mcp

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tally/internal/taxonomy"
)

func TestNewServer(t *testing.T) {
	t.Run("missing processor returns error", func(t *testing.T) {
		server, err := NewServer(&Ports{Taxonomy: taxonomy.New()})
		require.Error(t, err)
		assert.Nil(t, server)
		assert.ErrorIs(t, err, ErrMissingProcessor)
	})

	t.Run("missing taxonomy loader returns error", func(t *testing.T) {
		_, err := NewServer(&Ports{Processor: &mockProcessor{}})
		assert.ErrorIs(t, err, ErrMissingTaxonomyLoader)
	})

	t.Run("valid ports creates server", func(t *testing.T) {
		server, err := NewServer(&Ports{Processor: &mockProcessor{}, Taxonomy: taxonomy.New()})
		require.NoError(t, err)
		assert.NotNil(t, server)
	})
}

func TestPorts_Validate_DefaultsFS(t *testing.T) {
	ports := &Ports{Processor: &mockProcessor{}, Taxonomy: taxonomy.New()}
	require.NoError(t, ports.Validate())
	assert.IsType(t, &afero.OsFs{}, ports.FS)
}

func TestServer_Handler(t *testing.T) {
	server, err := NewServer(&Ports{Processor: &mockProcessor{}, Taxonomy: taxonomy.New()})
	require.NoError(t, err)
	assert.NotNil(t, server.Handler())
}
