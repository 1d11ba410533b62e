// Package suggestions builds the autocomplete entries shown while a query
// author types SQL: the built-in macros followed by the dashboard's template
// variables.
package suggestions

import (
	"fmt"

	"github.com/grafana/grafana-plugin-sdk-go/backend/log"

	"redshift-grafana-plugin/pkg/macros"
	"redshift-grafana-plugin/pkg/templatevars"
)

// Kind tells the code editor how to present a suggestion.
type Kind string

const (
	KindMethod Kind = "method"
	KindText   Kind = "text"
)

// Suggestion is one autocomplete entry.
type Suggestion struct {
	Label  string `json:"label"`
	Kind   Kind   `json:"kind"`
	Detail string `json:"detail"`
}

const (
	macroDetail    = "(Macro)"
	variableDetail = "(Template Variable)"
)

// Macros returns the fixed macro entries in declaration order.
func Macros() []Suggestion {
	out := make([]Suggestion, 0, len(macros.Definitions))
	for _, d := range macros.Definitions {
		out = append(out, Suggestion{
			Label:  d.Label(),
			Kind:   KindMethod,
			Detail: macroDetail,
		})
	}
	return out
}

// Provide returns the macro entries followed by one entry per template
// variable, in registry order. A nil or failing registry yields only the
// macros. Nothing is cached, so it is safe to call on every keystroke.
func Provide(registry templatevars.Registry) []Suggestion {
	sugs := Macros()
	if registry == nil {
		return sugs
	}

	vars, ok := variableSuggestions(registry)
	if !ok {
		return sugs
	}
	return append(sugs, vars...)
}

func variableSuggestions(registry templatevars.Registry) (out []Suggestion, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.DefaultLogger.Warn("Template variables unavailable for suggestions", "error", r)
			out, ok = nil, false
		}
	}()

	for _, v := range registry.Variables() {
		label := fmt.Sprintf("{%s}", v.Name)
		val := registry.Replace(label)
		if val == label {
			val = ""
		}
		out = append(out, Suggestion{
			Label:  label,
			Kind:   KindText,
			Detail: fmt.Sprintf("%s %s", variableDetail, val),
		})
	}
	return out, true
}
