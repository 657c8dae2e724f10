package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, int64(-1), cfg.InitialBlock)
	assert.Equal(t, "TRST", cfg.Currency)
	assert.Equal(t, 8, cfg.Concurrency)
	assert.Equal(t, 5, cfg.MaxRetries)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestResolveInitialBlock(t *testing.T) {
	cfg := Config{InitialBlock: -1}

	block := cfg.ResolveInitialBlock(1)
	assert.Equal(t, uint64(6531147), block)

	block = cfg.ResolveInitialBlock(4)
	assert.Equal(t, uint64(3175028), block)

	// Unknown networks scan full history.
	assert.Equal(t, uint64(0), cfg.ResolveInitialBlock(999))

	// An explicit setting wins over the table.
	cfg.InitialBlock = 4800000
	assert.Equal(t, uint64(4800000), cfg.ResolveInitialBlock(1))
}
