package workflow_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragline/ragline/pkg/models"
	"github.com/ragline/ragline/pkg/workflow"
)

func nodes(ids ...string) []*models.WorkflowNode {
	out := make([]*models.WorkflowNode, 0, len(ids))
	for _, id := range ids {
		out = append(out, &models.WorkflowNode{ID: id, Type: models.NodeTypeInput})
	}

	return out
}

func sequenceIDs(sequence []*models.WorkflowNode) []string {
	out := make([]string, 0, len(sequence))
	for _, n := range sequence {
		out = append(out, n.ID)
	}

	return out
}

func TestNormalizedSequence_EmptyWorkflow(t *testing.T) {
	t.Parallel()

	_, err := workflow.NormalizedSequence(&models.Workflow{})
	require.ErrorIs(t, err, workflow.ErrEmptyWorkflow)
}

func TestNormalizedSequence_WithoutConnections(t *testing.T) {
	t.Parallel()

	w := &models.Workflow{NodeSequence: nodes("a", "b", "c")}

	sequence, err := workflow.NormalizedSequence(w)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, sequenceIDs(sequence))
}

func TestNormalizedSequence_OrdersByConnections(t *testing.T) {
	t.Parallel()

	// Stored order disagrees with the edges; the edges win.
	w := &models.Workflow{
		NodeSequence: nodes("c", "a", "b"),
		Connections: []*models.Connection{
			{From: "b", To: "c"},
			{From: "a", To: "b"},
		},
	}

	sequence, err := workflow.NormalizedSequence(w)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, sequenceIDs(sequence))
}

func TestNormalizedSequence_UnknownNodeReference(t *testing.T) {
	t.Parallel()

	w := &models.Workflow{
		NodeSequence: nodes("a", "b"),
		Connections:  []*models.Connection{{From: "a", To: "ghost"}},
	}

	_, err := workflow.NormalizedSequence(w)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost")
}

func TestNormalizedSequence_BranchingOutgoing(t *testing.T) {
	t.Parallel()

	w := &models.Workflow{
		NodeSequence: nodes("a", "b", "c"),
		Connections: []*models.Connection{
			{From: "a", To: "b"},
			{From: "a", To: "c"},
		},
	}

	_, err := workflow.NormalizedSequence(w)
	require.ErrorIs(t, err, workflow.ErrBranchingGraph)
}

func TestNormalizedSequence_BranchingIncoming(t *testing.T) {
	t.Parallel()

	w := &models.Workflow{
		NodeSequence: nodes("a", "b", "c"),
		Connections: []*models.Connection{
			{From: "a", To: "c"},
			{From: "b", To: "c"},
		},
	}

	_, err := workflow.NormalizedSequence(w)
	require.ErrorIs(t, err, workflow.ErrBranchingGraph)
}

func TestNormalizedSequence_Cycle(t *testing.T) {
	t.Parallel()

	w := &models.Workflow{
		NodeSequence: nodes("a", "b", "c"),
		Connections: []*models.Connection{
			{From: "a", To: "b"},
			{From: "b", To: "c"},
			{From: "c", To: "a"},
		},
	}

	_, err := workflow.NormalizedSequence(w)
	require.ErrorIs(t, err, workflow.ErrNoHeadNode)
}

func TestNormalizedSequence_MultipleHeads(t *testing.T) {
	t.Parallel()

	w := &models.Workflow{
		NodeSequence: nodes("a", "b", "c", "d"),
		Connections: []*models.Connection{
			{From: "a", To: "b"},
			{From: "c", To: "d"},
		},
	}

	_, err := workflow.NormalizedSequence(w)
	require.ErrorIs(t, err, workflow.ErrMultipleHeads)
}
