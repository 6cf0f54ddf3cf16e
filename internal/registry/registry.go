// Package registry holds task definitions and named task groups and expands
// groups into ordered lists of leaf tasks.
package registry

import (
	"errors"
	"fmt"
	"sort"

	"git.home.luguber.info/inful/assetbuilder/internal/task"
)

// Group is a named, ordered list of task or group references.
type Group struct {
	Name task.Name
	Refs []task.Name
}

// Registry maps names to task definitions and groups.
// It is not safe for concurrent mutation.
type Registry struct {
	tasks      map[task.Name]task.Definition
	taskOrder  []task.Name
	groups     map[task.Name][]task.Name
	groupOrder []task.Name
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		tasks:  make(map[task.Name]task.Definition),
		groups: make(map[task.Name][]task.Name),
	}
}

func (r *Registry) exists(name task.Name) bool {
	_, isTask := r.tasks[name]
	_, isGroup := r.groups[name]
	return isTask || isGroup
}

// Register adds a task definition.
func (r *Registry) Register(def task.Definition) error {
	if def.Name == "" {
		return classify(errors.New("task name is required"))
	}
	if def.Run == nil {
		return classify(fmt.Errorf("task %s has no executor", def.Name))
	}
	if r.exists(def.Name) {
		return classify(&DuplicateTaskError{Name: def.Name})
	}
	r.tasks[def.Name] = def
	r.taskOrder = append(r.taskOrder, def.Name)
	return nil
}

// DefineGroup adds a group. References are resolved lazily by Flatten, so a
// group may refer to names defined after it.
func (r *Registry) DefineGroup(name task.Name, refs ...task.Name) error {
	if name == "" {
		return classify(errors.New("group name is required"))
	}
	if r.exists(name) {
		return classify(&DuplicateTaskError{Name: name})
	}
	r.groups[name] = append([]task.Name(nil), refs...)
	r.groupOrder = append(r.groupOrder, name)
	return nil
}

// Lookup returns the definition of a leaf task.
func (r *Registry) Lookup(name task.Name) (task.Definition, bool) {
	def, ok := r.tasks[name]
	return def, ok
}

// IsGroup reports whether name is a group.
func (r *Registry) IsGroup(name task.Name) bool {
	_, ok := r.groups[name]
	return ok
}

// Tasks returns task definitions in registration order.
func (r *Registry) Tasks() []task.Definition {
	out := make([]task.Definition, 0, len(r.taskOrder))
	for _, n := range r.taskOrder {
		out = append(out, r.tasks[n])
	}
	return out
}

// Groups returns groups in definition order.
func (r *Registry) Groups() []Group {
	out := make([]Group, 0, len(r.groupOrder))
	for _, n := range r.groupOrder {
		out = append(out, Group{Name: n, Refs: append([]task.Name(nil), r.groups[n]...)})
	}
	return out
}

// Flatten expands name into its ordered leaf tasks. A leaf reached more than
// once is kept at its first position. A task name yields itself.
func (r *Registry) Flatten(name task.Name) ([]task.Name, error) {
	return r.FlattenAll(name)
}

// FlattenAll flattens every name and returns the union in first-seen order.
func (r *Registry) FlattenAll(names ...task.Name) ([]task.Name, error) {
	f := &flattener{reg: r, seen: make(map[task.Name]bool)}
	for _, n := range names {
		if err := f.expand(n, ""); err != nil {
			return nil, classify(err)
		}
	}
	return f.out, nil
}

// SelfCheck flattens every group and reports all failures, so a broken
// definition is caught before any task runs.
func (r *Registry) SelfCheck() error {
	var errs []error
	names := append([]task.Name(nil), r.groupOrder...)
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	for _, g := range names {
		if _, err := r.Flatten(g); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type flattener struct {
	reg   *Registry
	seen  map[task.Name]bool
	stack []task.Name // ancestor groups of the current expansion
	out   []task.Name
}

func (f *flattener) expand(name, parent task.Name) error {
	if _, ok := f.reg.tasks[name]; ok {
		if !f.seen[name] {
			f.seen[name] = true
			f.out = append(f.out, name)
		}
		return nil
	}
	refs, ok := f.reg.groups[name]
	if !ok {
		return &UnknownTaskError{Name: name, Group: parent}
	}
	for i, anc := range f.stack {
		if anc == name {
			path := append(append([]task.Name(nil), f.stack[i:]...), name)
			return &CyclicGroupError{Path: path}
		}
	}

	f.stack = append(f.stack, name)
	for _, ref := range refs {
		if err := f.expand(ref, name); err != nil {
			return err
		}
	}
	f.stack = f.stack[:len(f.stack)-1]
	return nil
}
