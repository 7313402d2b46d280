package harness

// TraceEvent is one tool call and its outcome.
type TraceEvent struct {
	Seq        int64          `json:"seq"`
	Tool       string         `json:"tool"`
	Args       map[string]any `json:"args,omitempty"`
	Setup      bool           `json:"setup,omitempty"`
	OutputCase string         `json:"output_case"`
	Text       string         `json:"text"`
	Data       map[string]any `json:"data,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace contains every call in order, setup included.
	Trace []TraceEvent `json:"trace"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Requests is the number of HTTP requests the fake store served.
	Requests int `json:"requests"`
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

// AddTrace appends a call to the trace.
func (r *Result) AddTrace(ev TraceEvent) {
	r.Trace = append(r.Trace, ev)
}
