package workflow

import (
	"errors"
	"fmt"

	"github.com/ragline/ragline/pkg/models"
)

// Edge-list workflows come from older editor versions that persisted
// connections instead of an ordered sequence. They are normalized once at
// load time; execution only ever sees a linear node order.

var (
	ErrEmptyWorkflow  = errors.New("workflow has no nodes")
	ErrNoHeadNode     = errors.New("workflow connections have no head node")
	ErrMultipleHeads  = errors.New("workflow connections have more than one head node")
	ErrBranchingGraph = errors.New("workflow connections branch; the pipeline must be linear")
	ErrGraphCycle     = errors.New("workflow connections contain a cycle")
)

// NormalizedSequence returns the workflow's nodes in execution order. When
// the workflow carries a connection list, the order is derived by walking the
// edges from the single head node; any shape other than one simple path
// covering every connected node is rejected. Without connections the stored
// sequence is already authoritative.
func NormalizedSequence(w *models.Workflow) ([]*models.WorkflowNode, error) {
	if len(w.NodeSequence) == 0 {
		return nil, ErrEmptyWorkflow
	}

	if len(w.Connections) == 0 {
		return w.NodeSequence, nil
	}

	next := make(map[string]string, len(w.Connections))
	hasIncoming := make(map[string]bool, len(w.Connections))

	for _, conn := range w.Connections {
		if w.FindNode(conn.From) == nil {
			return nil, fmt.Errorf("connection references unknown node %q", conn.From)
		}

		if w.FindNode(conn.To) == nil {
			return nil, fmt.Errorf("connection references unknown node %q", conn.To)
		}

		if _, dup := next[conn.From]; dup {
			return nil, fmt.Errorf("%w: node %q has multiple outgoing connections", ErrBranchingGraph, conn.From)
		}

		if hasIncoming[conn.To] {
			return nil, fmt.Errorf("%w: node %q has multiple incoming connections", ErrBranchingGraph, conn.To)
		}

		next[conn.From] = conn.To
		hasIncoming[conn.To] = true
	}

	head := ""

	for from := range next {
		if !hasIncoming[from] {
			if head != "" {
				return nil, ErrMultipleHeads
			}

			head = from
		}
	}

	if head == "" {
		return nil, ErrNoHeadNode
	}

	sequence := make([]*models.WorkflowNode, 0, len(w.NodeSequence))
	visited := make(map[string]bool, len(w.NodeSequence))

	for id := head; id != ""; id = next[id] {
		if visited[id] {
			return nil, ErrGraphCycle
		}

		visited[id] = true
		sequence = append(sequence, w.FindNode(id))
	}

	if len(sequence) != len(next)+1 {
		return nil, fmt.Errorf("%w: %d connections do not form one path", ErrBranchingGraph, len(w.Connections))
	}

	return sequence, nil
}
