package harness

import "github.com/roach88/typekit/internal/ir"

// Trace event kinds.
const (
	EventDerive = "derive"
	EventNew    = "new"
	EventHook   = "hook"
	EventError  = "error"
)

// TraceEvent records one observable effect of a step.
//
// derive: Type, Base. new: Type, Alias, Instance, Seq, Options, Fields.
// hook: Alias, Instance, Hook, Ordinal, Seq. error: Action, Code, Hook.
type TraceEvent struct {
	Kind     string      `json:"kind"`
	Step     int         `json:"step"`
	Action   string      `json:"action,omitempty"`
	Type     string      `json:"type,omitempty"`
	Base     string      `json:"base,omitempty"`
	Alias    string      `json:"alias,omitempty"`
	Instance string      `json:"instance,omitempty"`
	Hook     string      `json:"hook,omitempty"`
	Ordinal  int         `json:"ordinal"`
	Code     string      `json:"code,omitempty"`
	Options  ir.IRObject `json:"options,omitempty"`
	Fields   ir.IRObject `json:"fields,omitempty"`
	Seq      int64       `json:"seq,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every step behaved as declared and every
	// assertion held.
	Pass bool `json:"pass"`

	// Trace contains every observable effect, in step order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

func (r *Result) add(ev TraceEvent) {
	r.Trace = append(r.Trace, ev)
}
