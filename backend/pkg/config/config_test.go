package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "bolt://localhost:7687", cfg.Neo4jURI)
	assert.Equal(t, ProviderOpenAI, cfg.LLMProvider)
	assert.False(t, cfg.EnableLLMNER)
	assert.True(t, cfg.EnableProseNER)
	assert.Equal(t, 2, cfg.MaxReflectionPasses)
	assert.Equal(t, 20*time.Second, cfg.LLMTimeout)
	assert.True(t, cfg.EnableCache)
}

func TestLoad_ProviderOverride(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "openrouter")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, ProviderOpenRouter, cfg.LLMProvider)
}

func TestValidate_RejectsUnknownProvider(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "litellm")

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "LLM_PROVIDER")
}

func TestValidate_RequiresModelWithLLMNER(t *testing.T) {
	cfg := &Config{
		Neo4jURI:     "bolt://localhost:7687",
		Neo4jUser:    "neo4j",
		LLMProvider:  ProviderOpenAI,
		EnableLLMNER: true,
	}

	err := cfg.Validate()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "LLM_MODEL")
}

func TestValidate_NegativeReflectionPassesClamped(t *testing.T) {
	cfg := &Config{
		Neo4jURI:            "bolt://localhost:7687",
		Neo4jUser:           "neo4j",
		LLMProvider:         ProviderLocal,
		MaxReflectionPasses: -3,
	}

	require.NoError(t, cfg.Validate())
	assert.Equal(t, 0, cfg.MaxReflectionPasses)
}

func TestEnvironmentHelpers(t *testing.T) {
	dev := &Config{Env: "development"}
	assert.True(t, dev.IsDevelopment())
	assert.False(t, dev.IsProduction())

	prod := &Config{Env: "production"}
	assert.True(t, prod.IsProduction())
	assert.False(t, prod.IsDevelopment())
}
