// Package editor implements the query editor contract: the host supplies the
// current query and two callbacks, and every committed edit is reported as a
// change followed by a run request.
package editor

import (
	"redshift-grafana-plugin/pkg/models"
)

// Host is the part of Grafana the query editor talks back to.
type Host interface {
	OnChange(query models.Query)
	OnRunQuery()
}

// HostFuncs adapts a pair of plain functions to Host. Nil functions are
// treated as no-ops.
type HostFuncs struct {
	Change func(query models.Query)
	Run    func()
}

func (h HostFuncs) OnChange(query models.Query) {
	if h.Change != nil {
		h.Change(query)
	}
}

func (h HostFuncs) OnRunQuery() {
	if h.Run != nil {
		h.Run()
	}
}

// Editor renders one query. It keeps no state of its own beyond what the
// host handed it: a committed edit is only visible once the host re-opens the
// editor with the changed query.
type Editor struct {
	query models.Query
	host  Host
}

// New merges query with the defaults so no field surfaces empty in the UI.
func New(query models.Query, host Host) *Editor {
	if host == nil {
		host = HostFuncs{}
	}
	return &Editor{
		query: models.ApplyDefaults(query),
		host:  host,
	}
}

// Query returns the merged query being edited.
func (e *Editor) Query() models.Query {
	return e.query.Clone()
}

// Text returns the SQL shown in the code area.
func (e *Editor) Text() string {
	return e.query.RawSQL
}

// Commit reports an edit: OnChange with the query carrying the new text,
// then OnRunQuery. It backs both the blur and the save shortcut.
func (e *Editor) Commit(text string) {
	e.host.OnChange(e.query.WithRawSQL(text))
	e.host.OnRunQuery()
}

// CommitFunc returns Commit as a plain callback for the code area's blur and
// save handlers.
func (e *Editor) CommitFunc() func(text string) {
	return e.Commit
}

// Factory opens editors. It is the query editor role of the plugin.
type Factory struct{}

func (Factory) Open(query models.Query, host Host) *Editor {
	return New(query, host)
}
