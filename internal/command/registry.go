// Package command implements the command registry: named operations that take
// resolved contexts and parameters and produce a new data model.
package command

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/himena-app/himena/internal/log"
	"github.com/himena-app/himena/internal/workflow"
)

// ErrCommandNotFound is returned when executing an unregistered command id.
var ErrCommandNotFound = errors.New("command not found")

// Handler executes one command against a resolved request.
type Handler func(ctx context.Context, req workflow.CommandRequest) (*workflow.DataModel, error)

// Registry dispatches command executions by id. It implements
// workflow.CommandRunner.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry creates an empty command registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register binds a handler to a command id, replacing any previous binding.
func (r *Registry) Register(id string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[id] = h
	log.Debug(log.CatCommand, "registered command", "id", id)
}

// IDs returns the registered command ids, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.handlers))
	for id := range r.handlers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Exec runs the command with the given id.
func (r *Registry) Exec(ctx context.Context, commandID string, req workflow.CommandRequest) (*workflow.DataModel, error) {
	r.mu.RLock()
	h, ok := r.handlers[commandID]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("command %q: %w", commandID, ErrCommandNotFound)
	}

	log.Debug(log.CatCommand, "executing", "id", commandID, "params", len(req.Params))
	m, err := h(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("command %q: %w", commandID, err)
	}
	return m, nil
}
