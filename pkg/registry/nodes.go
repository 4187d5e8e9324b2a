package registry

import (
	"github.com/ragline/ragline/pkg/llm"
	"github.com/ragline/ragline/pkg/nodes/input"
	"github.com/ragline/ragline/pkg/nodes/memory"
	"github.com/ragline/ragline/pkg/nodes/output"
	"github.com/ragline/ragline/pkg/nodes/rag"
	"github.com/ragline/ragline/pkg/nodes/store"
	"github.com/ragline/ragline/pkg/persistence"
)

// RegisterDefaultNodes registers the five built-in node factories against the
// given storage backend and model gateway.
func (r *Registry) RegisterDefaultNodes(p persistence.Persistence, gateway *llm.Gateway) {
	r.Register(input.NewFactory())
	r.Register(store.NewFactory(p.KnowledgeBases()))
	r.Register(rag.NewFactory(p.KnowledgeBases(), gateway))
	r.Register(memory.NewFactory(p.Conversations()))
	r.Register(output.NewFactory())
}
