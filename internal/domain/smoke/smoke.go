package smoke

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnknownTest indicates a requested test id is not in the suite.
var ErrUnknownTest = errors.New("unknown smoke test")

// Suite is a set of smoke tests over stored captures.
type Suite struct {
	Tests []Test
}

// Test audits one capture and checks expectations against the report.
type Test struct {
	ID           string
	Capture      string
	Pass         string
	Serial       bool
	Expectations []Expectation
}

// Expectation selects a value from the report with a JSONPath expression and
// checks it with a boolean assertion in which the value is bound to `value`.
type Expectation struct {
	Path   string
	Assert string
}

// Check is the result of evaluating one expectation.
type Check struct {
	Path   string `json:"path"`
	Assert string `json:"assert"`
	Value  any    `json:"value,omitempty"`
	Passed bool   `json:"passed"`
	Error  string `json:"error,omitempty"`
}

// Outcome is the result of running one test in its own process.
type Outcome struct {
	TestID   string
	Passed   bool
	TimedOut bool
	ExitCode int
	Duration time.Duration
	Stdout   string
	Stderr   string
	Err      string
}

// Select returns the tests with the given ids in suite order, or every test
// when ids is empty.
func (s Suite) Select(ids []string) ([]Test, error) {
	if len(ids) == 0 {
		return s.Tests, nil
	}

	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}

	var out []Test
	for _, t := range s.Tests {
		if wanted[t.ID] {
			out = append(out, t)
			delete(wanted, t.ID)
		}
	}
	for _, id := range ids {
		if wanted[id] {
			return nil, fmt.Errorf("%w: %q", ErrUnknownTest, id)
		}
	}
	return out, nil
}

// Find returns the test with the given id.
func (s Suite) Find(id string) (Test, error) {
	for _, t := range s.Tests {
		if t.ID == id {
			return t, nil
		}
	}
	return Test{}, fmt.Errorf("%w: %q", ErrUnknownTest, id)
}

// Partition splits tests into those that may run concurrently and those that
// must run one at a time. forceSerial moves every test to the serial group.
func Partition(tests []Test, forceSerial bool) (parallel, serial []Test) {
	for _, t := range tests {
		if forceSerial || t.Serial {
			serial = append(serial, t)
		} else {
			parallel = append(parallel, t)
		}
	}
	return parallel, serial
}

// ExitCode is 0 when every outcome passed and 1 otherwise.
func ExitCode(outcomes []Outcome) int {
	for _, o := range outcomes {
		if !o.Passed {
			return 1
		}
	}
	return 0
}
