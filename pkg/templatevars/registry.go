// Package templatevars models the dashboard template variables Grafana makes
// available while a query is being edited.
package templatevars

import (
	"regexp"

	"github.com/grafana/grafana-plugin-sdk-go/backend/log"
)

// Variable is a named dashboard value that can be substituted into query text.
type Variable struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Registry is the read-only view of the host's templating subsystem.
type Registry interface {
	// Variables returns the variables in the order the host declares them.
	Variables() []Variable
	// Replace substitutes every known variable reference in target.
	// References to unknown variables are left untouched.
	Replace(target string) string
}

var variablePattern = regexp.MustCompile(`\$\{(\w+)\}|\[\[(\w+)\]\]|\$(\w+)|\{(\w+)\}`)

// StaticRegistry is a Registry over a fixed list of variables, typically the
// ones the frontend sent along with a request.
type StaticRegistry struct {
	vars   []Variable
	values map[string]string
}

// NewStaticRegistry builds a registry from vars. When a name repeats, the
// first declaration wins.
func NewStaticRegistry(vars []Variable) *StaticRegistry {
	r := &StaticRegistry{
		vars:   make([]Variable, 0, len(vars)),
		values: make(map[string]string, len(vars)),
	}
	for _, v := range vars {
		if v.Name == "" {
			continue
		}
		if _, dup := r.values[v.Name]; dup {
			log.DefaultLogger.Debug("Ignoring repeated template variable", "name", v.Name)
			continue
		}
		r.vars = append(r.vars, v)
		r.values[v.Name] = v.Value
	}
	return r
}

func (r *StaticRegistry) Variables() []Variable {
	out := make([]Variable, len(r.vars))
	copy(out, r.vars)
	return out
}

func (r *StaticRegistry) Replace(target string) string {
	return variablePattern.ReplaceAllStringFunc(target, func(ref string) string {
		m := variablePattern.FindStringSubmatch(ref)
		for _, name := range m[1:] {
			if name == "" {
				continue
			}
			if v, ok := r.values[name]; ok {
				return v
			}
			return ref
		}
		return ref
	})
}
