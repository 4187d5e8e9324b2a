package registry_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragline/ragline/pkg/llm"
	"github.com/ragline/ragline/pkg/models"
	"github.com/ragline/ragline/pkg/persistence/file"
	"github.com/ragline/ragline/pkg/protocol"
	"github.com/ragline/ragline/pkg/registry"
)

func newRegistry(t *testing.T) *registry.Registry {
	t.Helper()

	logger := slog.Default()
	reg := registry.NewRegistry(logger)
	reg.RegisterDefaultNodes(file.NewPersistence(t.TempDir()), llm.NewGateway(logger, 0))

	return reg
}

func TestCreate_UnknownType(t *testing.T) {
	t.Parallel()

	_, err := newRegistry(t).Create(context.Background(), "teleport", "node-1", nil)
	require.ErrorIs(t, err, registry.ErrUnknownNodeType)
	assert.Contains(t, err.Error(), "teleport")
}

func TestCreate_BuildsEveryDefaultNode(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t)
	ctx := context.Background()

	cases := []struct {
		nodeType string
		config   map[string]any
	}{
		{nodeType: string(models.NodeTypeInput)},
		{nodeType: string(models.NodeTypeStore), config: map[string]any{"knowledgeBaseName": "docs"}},
		{nodeType: string(models.NodeTypeRAG), config: map[string]any{"knowledgeBaseName": "docs"}},
		{nodeType: string(models.NodeTypeMemory)},
		{nodeType: string(models.NodeTypeOutput)},
	}

	for _, tc := range cases {
		node, err := reg.Create(ctx, tc.nodeType, "node-1", tc.config)
		require.NoError(t, err, tc.nodeType)
		assert.Equal(t, tc.nodeType, node.Type())
		assert.Equal(t, "node-1", node.ID())
	}
}

func TestCreate_SchemaRejectsMissingRequiredField(t *testing.T) {
	t.Parallel()

	_, err := newRegistry(t).Create(context.Background(), string(models.NodeTypeStore), "store-1", map[string]any{})
	require.Error(t, err)

	var configErr *protocol.ConfigError
	require.ErrorAs(t, err, &configErr)
	assert.Contains(t, configErr.Error(), "knowledgeBaseName")
}

func TestCreate_SchemaRejectsWrongType(t *testing.T) {
	t.Parallel()

	_, err := newRegistry(t).Create(context.Background(), string(models.NodeTypeOutput), "out-1", map[string]any{
		"includeMetadata": "yes",
	})
	require.Error(t, err)

	var configErr *protocol.ConfigError
	require.ErrorAs(t, err, &configErr)
}

func TestFactories_ListsAllTypes(t *testing.T) {
	t.Parallel()

	factories := newRegistry(t).Factories()
	require.Len(t, factories, 5)

	for _, nodeType := range []string{"input", "store", "rag", "memory", "output"} {
		factory, ok := factories[nodeType]
		require.True(t, ok, nodeType)
		assert.NotEmpty(t, factory.Name())
		assert.NotEmpty(t, factory.Description())
	}
}
