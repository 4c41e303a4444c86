// Package health holds the status vocabulary shared by popctl checks.
package health

import (
	"fmt"
	"time"
)

// Status represents the health status of a component
type Status string

const (
	StatusOK       Status = "ok"
	StatusWarning  Status = "warning"
	StatusCritical Status = "critical"
	StatusUnknown  Status = "unknown"
)

var severity = map[Status]int{
	StatusOK:       0,
	StatusUnknown:  1,
	StatusWarning:  2,
	StatusCritical: 3,
}

// Worse returns whichever of a and b is more severe.
func Worse(a, b Status) Status {
	if severity[b] > severity[a] {
		return b
	}
	return a
}

// Result represents the result of a single check
type Result struct {
	Check     string        `json:"check"`
	Status    Status        `json:"status"`
	Message   string        `json:"message"`
	Details   interface{}   `json:"details,omitempty"`
	Duration  time.Duration `json:"duration,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// Report contains all check results for one subject, an interface or a
// device.
type Report struct {
	Device    string        `json:"device"`
	Timestamp time.Time     `json:"timestamp"`
	Overall   Status        `json:"overall"`
	Results   []Result      `json:"results"`
	Duration  time.Duration `json:"duration,omitempty"`
}

// NewReport starts an empty report with Overall ok.
func NewReport(subject string) *Report {
	return &Report{
		Device:    subject,
		Timestamp: time.Now(),
		Overall:   StatusOK,
	}
}

// Add appends a result; the overall status is the worst seen.
func (r *Report) Add(result Result) {
	if result.Timestamp.IsZero() {
		result.Timestamp = time.Now()
	}
	r.Results = append(r.Results, result)
	r.Overall = Worse(r.Overall, result.Status)
}

// Problems returns the results that are not ok.
func (r *Report) Problems() []Result {
	var out []Result
	for _, res := range r.Results {
		if res.Status != StatusOK {
			out = append(out, res)
		}
	}
	return out
}

// Result looks a check up by name.
func (r *Report) Result(check string) (*Result, error) {
	for i := range r.Results {
		if r.Results[i].Check == check {
			return &r.Results[i], nil
		}
	}
	return nil, fmt.Errorf("health check '%s' not found", check)
}

// Above grades a value that is bad when high: above crit is critical,
// above warn is a warning.
func Above(value, warn, crit float64) Status {
	switch {
	case value > crit:
		return StatusCritical
	case value > warn:
		return StatusWarning
	}
	return StatusOK
}

// Below grades a value that is bad when low.
func Below(value, warn, crit float64) Status {
	switch {
	case value < crit:
		return StatusCritical
	case value < warn:
		return StatusWarning
	}
	return StatusOK
}
