// Package cmd provides common initialization for the command-line binaries.
package cmd

import (
	"log/slog"

	"github.com/ragline/ragline/pkg/llm"
	"github.com/ragline/ragline/pkg/persistence"
	"github.com/ragline/ragline/pkg/registry"
)

// NewRegistry builds a node registry with the built-in node factories wired
// to the given storage backend and model gateway.
func NewRegistry(logger *slog.Logger, p persistence.Persistence, gateway *llm.Gateway) *registry.Registry {
	reg := registry.NewRegistry(logger)
	reg.RegisterDefaultNodes(p, gateway)

	return reg
}
