package tool

import (
	"fmt"
	"strings"
	"sync"

	contractx "github.com/tanpawarit/salesops-assistant/agent/contract"
)

type entry struct {
	spec   contractx.ToolSpec
	action contractx.Action
}

// Registry maps tool names to actions. Enumeration follows registration order.
type Registry struct {
	mu      sync.RWMutex
	order   []string
	entries map[string]entry
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

func (r *Registry) Register(spec contractx.ToolSpec, action contractx.Action) error {
	name := strings.TrimSpace(spec.Name)
	if name == "" {
		return fmt.Errorf("%w: tool name is empty", contractx.ErrValidation)
	}
	if action == nil {
		return fmt.Errorf("%w: tool %q has no action", contractx.ErrValidation, name)
	}
	spec.Name = name

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[name]; exists {
		return fmt.Errorf("%w: %q", contractx.ErrDuplicateTool, name)
	}
	r.entries[name] = entry{spec: cloneSpec(spec), action: action}
	r.order = append(r.order, name)
	return nil
}

func (r *Registry) MustRegister(spec contractx.ToolSpec, action contractx.Action) {
	if err := r.Register(spec, action); err != nil {
		panic(err)
	}
}

func (r *Registry) Resolve(name string) (contractx.Action, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", contractx.ErrUnknownTool, name)
	}
	return e.action, nil
}

func (r *Registry) Spec(name string) (contractx.ToolSpec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	if !ok {
		return contractx.ToolSpec{}, false
	}
	return cloneSpec(e.spec), true
}

func (r *Registry) ListSpecs() []contractx.ToolSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]contractx.ToolSpec, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, cloneSpec(r.entries[name].spec))
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

func cloneSpec(s contractx.ToolSpec) contractx.ToolSpec {
	s.Params = cloneParams(s.Params)
	return s
}

func cloneParams(in []contractx.ParamSpec) []contractx.ParamSpec {
	if in == nil {
		return nil
	}
	out := make([]contractx.ParamSpec, len(in))
	for i, p := range in {
		p.Enum = append([]string(nil), p.Enum...)
		p.Properties = cloneParams(p.Properties)
		if p.Items != nil {
			items := *p.Items
			items.Properties = cloneParams(items.Properties)
			p.Items = &items
		}
		out[i] = p
	}
	return out
}
