package workflow

import "fmt"

// NodeError wraps a handler failure with the node it came from. The
// execution fails as a whole; no partial result is returned.
type NodeError struct {
	NodeID   string
	NodeType string
	Err      error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("node %s (%s): %v", e.NodeID, e.NodeType, e.Err)
}

func (e *NodeError) Unwrap() error { return e.Err }
