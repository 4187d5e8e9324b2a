package protocol

import "fmt"

// ConfigError indicates a node's configuration is missing or invalid. The
// workflow definition must be fixed by the caller; retrying cannot help.
type ConfigError struct {
	NodeID string
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("node %s: invalid config field %q: %s", e.NodeID, e.Field, e.Reason)
	}

	return fmt.Sprintf("node %s: invalid config: %s", e.NodeID, e.Reason)
}

// NewConfigError creates a configuration error for a node field.
func NewConfigError(nodeID, field, reason string) *ConfigError {
	return &ConfigError{NodeID: nodeID, Field: field, Reason: reason}
}
