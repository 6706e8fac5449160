package authz

import (
	"fmt"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/vyrodovalexey/authgate/internal/config"
)

// Table maps route identities to their rules. A Table is immutable once
// built and safe for concurrent use.
type Table struct {
	routes  map[string]*Target
	classes map[string]ClassRule
}

// NewTable builds a table from class rules and targets. A target naming a
// class that is not in classes keeps its own ClassRule.
func NewTable(classes map[string]ClassRule, targets ...Target) (*Table, error) {
	t := &Table{
		routes:  make(map[string]*Target, len(targets)),
		classes: make(map[string]ClassRule, len(classes)),
	}
	for name, rule := range classes {
		t.classes[name] = rule
	}

	for i := range targets {
		target := targets[i]
		if target.Name == "" {
			return nil, fmt.Errorf("target %d: name is required", i)
		}
		if _, dup := t.routes[target.Name]; dup {
			return nil, fmt.Errorf("duplicate target: %s", target.Name)
		}
		if rule, ok := t.classes[target.Class]; ok && target.Class != "" {
			target.ClassRule = rule
		}
		t.routes[target.Name] = &target
	}
	return t, nil
}

// ConvertFromConfig compiles the YAML authorization section. A nil section
// yields an empty table.
func ConvertFromConfig(cfg *config.AuthorizationConfig) (*Table, error) {
	if cfg == nil {
		return NewTable(nil)
	}

	classes := make(map[string]ClassRule, len(cfg.Classes))
	for _, c := range cfg.Classes {
		if _, dup := classes[c.Name]; dup {
			return nil, fmt.Errorf("duplicate class: %s", c.Name)
		}
		classes[c.Name] = ClassRule{
			RolesAllowed: copyRoles(c.RolesAllowed),
			PermitAll:    c.PermitAll,
		}
	}

	targets := make([]Target, 0, len(cfg.Routes))
	for _, r := range cfg.Routes {
		if r.Class != "" {
			if _, ok := classes[r.Class]; !ok {
				return nil, fmt.Errorf("route %s: unknown class %s", r.Pattern, r.Class)
			}
		}
		targets = append(targets, Target{
			Name:  r.Pattern,
			Class: r.Class,
			Method: MethodRule{
				DenyAll:      r.DenyAll,
				RolesAllowed: copyRoles(r.RolesAllowed),
				PermitAll:    r.PermitAll,
			},
		})
	}

	return NewTable(classes, targets...)
}

// copyRoles copies roles and keeps nil distinct from empty.
func copyRoles(roles []string) []string {
	if roles == nil {
		return nil
	}
	out := make([]string, len(roles))
	copy(out, roles)
	return out
}

// Resolve returns the target for a route. A route without its own entry
// falls back to the rules of class, if any. Nil means no declarations.
func (t *Table) Resolve(name, class string) *Target {
	if t == nil {
		return nil
	}
	if target, ok := t.routes[name]; ok {
		return target
	}
	if rule, ok := t.classes[class]; ok && class != "" {
		return &Target{Name: name, Class: class, ClassRule: rule}
	}
	return nil
}

// Len returns the number of routes in the table.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.routes)
}

// Names returns the route identities in sorted order.
func (t *Table) Names() []string {
	if t == nil {
		return nil
	}
	names := make([]string, 0, len(t.routes))
	for name := range t.routes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ServiceOf returns the service part of a gRPC full method name
// ("/pkg.Service/Method" yields "pkg.Service").
func ServiceOf(fullMethod string) string {
	s := strings.TrimPrefix(fullMethod, "/")
	if i := strings.LastIndex(s, "/"); i >= 0 {
		return s[:i]
	}
	return ""
}

// Store holds the active Table and swaps it atomically on reload.
type Store struct {
	table atomic.Pointer[Table]
}

// NewStore creates a store holding table. A nil table is replaced by an
// empty one.
func NewStore(table *Table) *Store {
	s := &Store{}
	s.Swap(table)
	return s
}

// Load returns the active table.
func (s *Store) Load() *Table {
	return s.table.Load()
}

// Swap installs table and returns the previous one.
func (s *Store) Swap(table *Table) *Table {
	if table == nil {
		table = &Table{routes: map[string]*Target{}, classes: map[string]ClassRule{}}
	}
	return s.table.Swap(table)
}
