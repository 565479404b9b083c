package embedding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOpenAIProviderRequiresAPIKey(t *testing.T) {
	_, err := NewOpenAIProvider("", "", 0, 0)
	assert.Error(t, err)
}

func TestNewOpenAIProviderDefaults(t *testing.T) {
	p, err := NewOpenAIProvider("sk-test", "", 0, 0)
	require.NoError(t, err)

	assert.Equal(t, DefaultModel, p.model)
	assert.Equal(t, DefaultDimension, p.Dimension())
	assert.Equal(t, DefaultBatchSize, p.batchSize)
}

func TestNewOpenAIProviderOverrides(t *testing.T) {
	p, err := NewOpenAIProvider("sk-test", "text-embedding-3-large", 3072, 100)
	require.NoError(t, err)

	assert.Equal(t, "text-embedding-3-large", p.model)
	assert.Equal(t, 3072, p.Dimension())
	assert.Equal(t, 100, p.batchSize)
}

func TestToFloat32(t *testing.T) {
	got := toFloat32([]float64{0.5, -1.25})
	assert.Equal(t, []float32{0.5, -1.25}, got)
}
