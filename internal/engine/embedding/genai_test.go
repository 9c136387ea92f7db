package embedding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGenAIEngineRequiresAPIKey(t *testing.T) {
	_, err := NewGenAIEngine("", "gemini-embedding-001")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key")
}

func TestNewGenAIEngineDefaultsModel(t *testing.T) {
	e, err := NewGenAIEngine("test-key", "")
	require.NoError(t, err)
	assert.Equal(t, "genai:gemini-embedding-001", e.Name())
	assert.Equal(t, 768, e.Dimensions())
}
