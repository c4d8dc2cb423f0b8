// Package workflows declares the CI workflows of the repository.
package workflows

import (
	"errors"
	"fmt"

	"github.com/zulandar/praktika/internal/workflow"
)

// ErrWorkflowNotFound is returned by Find for undeclared workflow names.
var ErrWorkflowNotFound = errors.New("workflows: workflow not found")

// All returns every declared workflow.
func All() []*workflow.Config {
	return []*workflow.Config{
		PullRequest,
	}
}

// Find returns the declared workflow with the given name.
func Find(name string) (*workflow.Config, error) {
	for _, w := range All() {
		if w.Name == name {
			return w, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrWorkflowNotFound, name)
}

// Validate validates every declared workflow and checks names are unique.
func Validate() error {
	var errs []error
	seen := make(map[string]bool)
	for _, w := range All() {
		if seen[w.Name] {
			errs = append(errs, fmt.Errorf("workflow %q declared twice", w.Name))
		}
		seen[w.Name] = true
		if err := w.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
