package profile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	p, err := New("")
	require.NoError(t, err)

	assert.Equal(t, "dev", p.Mode)
	assert.Equal(t, "sqlite", p.Driver)
	assert.Equal(t, 1000, p.ChunkSize)
	assert.Equal(t, 200, p.ChunkOverlap)
	assert.Equal(t, 3, p.TopK)
	assert.Equal(t, 0.7, p.SimilarityWeight)
	assert.Equal(t, 0.3, p.CertaintyWeight)
	assert.Equal(t, 30*time.Second, p.AITimeout)
	assert.Equal(t, "./deskpilot.db", p.DSN)
	assert.True(t, p.IsDev())
	assert.False(t, p.IsAIEnabled())
	assert.False(t, p.IsSearchEnabled())
}

func TestValidate(t *testing.T) {
	valid := func() *Profile {
		return &Profile{
			Mode:             "prod",
			Driver:           "postgres",
			ChunkSize:        500,
			ChunkOverlap:     50,
			TopK:             3,
			SimilarityWeight: 0.7,
			CertaintyWeight:  0.3,
			HighThreshold:    0.7,
			LowThreshold:     0.4,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Profile)
		wantErr string
	}{
		{"valid", func(p *Profile) {}, ""},
		{"bad mode", func(p *Profile) { p.Mode = "staging" }, "invalid mode"},
		{"bad driver", func(p *Profile) { p.Driver = "mysql" }, "invalid driver"},
		{"zero chunk size", func(p *Profile) { p.ChunkSize = 0 }, "chunk size"},
		{"overlap too large", func(p *Profile) { p.ChunkOverlap = 500 }, "chunk overlap"},
		{"negative overlap", func(p *Profile) { p.ChunkOverlap = -1 }, "chunk overlap"},
		{"zero top-k", func(p *Profile) { p.TopK = 0 }, "top-k"},
		{"weights not summing", func(p *Profile) { p.CertaintyWeight = 0.5 }, "weights"},
		{"inverted thresholds", func(p *Profile) { p.LowThreshold = 0.8 }, "thresholds"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid()
			tt.mutate(p)
			err := p.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestNewFromEnv(t *testing.T) {
	t.Setenv("DESKPILOT_AI_API_KEY", "sk-test")
	t.Setenv("DESKPILOT_SEARCH_API_KEY", "g-key")
	t.Setenv("DESKPILOT_SEARCH_ENGINE_ID", "cse-id")
	t.Setenv("DESKPILOT_RETRIEVAL_TOP_K", "5")

	p, err := New("")
	require.NoError(t, err)

	assert.True(t, p.IsAIEnabled())
	assert.True(t, p.IsSearchEnabled())
	assert.Equal(t, 5, p.TopK)
}
