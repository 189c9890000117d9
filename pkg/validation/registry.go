package validation

import (
	"sync"

	"github.com/aretw0/flowgraph/pkg/domain"
)

// Status is the outcome of a single check.
type Status string

const (
	StatusPass          Status = "Pass"
	StatusFail          Status = "Fail"
	StatusNotApplicable Status = "Not applicable"
)

// Input is what every check inspects.
type Input struct {
	// Graph must be fully flattened.
	Graph domain.Graph
	// Templated is true for flows that inherit from a source template.
	Templated bool
	// Edits is the customisation overlay of a templated flow.
	Edits domain.TemplatedFlowEdits
}

// Result is one row of the report.
type Result struct {
	Title   string `json:"title"`
	Status  Status `json:"status"`
	Message string `json:"message"`
}

// Report is the ordered list of check results.
type Report struct {
	Checks []Result `json:"checks"`
}

// Passed reports whether no check failed.
func (r Report) Passed() bool {
	for _, c := range r.Checks {
		if c.Status == StatusFail {
			return false
		}
	}
	return true
}

// Failed returns the failing results.
func (r Report) Failed() []Result {
	var out []Result
	for _, c := range r.Checks {
		if c.Status == StatusFail {
			out = append(out, c)
		}
	}
	return out
}

// Get returns the result with the given title.
func (r Report) Get(title string) (Result, bool) {
	for _, c := range r.Checks {
		if c.Title == title {
			return c, true
		}
	}
	return Result{}, false
}

// CheckFunc inspects the input and returns a status with a human readable message.
type CheckFunc func(in Input) (Status, string)

type entry struct {
	title string
	fn    CheckFunc
}

// Registry manages the checks. Checks run in registration order.
type Registry struct {
	mu     sync.RWMutex
	checks []entry
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a check to the registry.
// If a check with the same title exists, it is replaced in place.
func (r *Registry) Register(title string, fn CheckFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.checks {
		if r.checks[i].title == title {
			r.checks[i].fn = fn
			return
		}
	}
	r.checks = append(r.checks, entry{title: title, fn: fn})
}

// Titles returns the registered check titles in run order.
func (r *Registry) Titles() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	titles := make([]string, len(r.checks))
	for i, c := range r.checks {
		titles[i] = c.title
	}
	return titles
}

// Run executes every check against in.
func (r *Registry) Run(in Input) Report {
	r.mu.RLock()
	checks := append([]entry(nil), r.checks...)
	r.mu.RUnlock()

	report := Report{Checks: make([]Result, 0, len(checks))}
	for _, c := range checks {
		status, msg := c.fn(in)
		report.Checks = append(report.Checks, Result{Title: c.title, Status: status, Message: msg})
	}
	return report
}
