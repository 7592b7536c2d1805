// Package deps reports whether the external binaries ocingest shells out to
// are installed.
package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// Requirement defines an external binary ocingest relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Path        string
	Detail      string
}

// Satisfied reports whether a status does not block a run.
func (s Status) Satisfied() bool {
	return s.Available || s.Optional
}

// CheckBinaries resolves each requirement on PATH, preserving order.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, len(requirements))
	for i, req := range requirements {
		results[i] = check(req)
	}
	return results
}

func check(req Requirement) Status {
	s := Status{
		Name:        req.Name,
		Command:     strings.TrimSpace(req.Command),
		Description: strings.TrimSpace(req.Description),
		Optional:    req.Optional,
	}
	if s.Command == "" {
		s.Detail = "command not configured"
		return s
	}
	path, err := exec.LookPath(s.Command)
	if err != nil {
		s.Detail = fmt.Sprintf("binary %q not found", s.Command)
		return s
	}
	s.Available, s.Path = true, path
	return s
}

// Missing filters statuses down to the ones that block a run.
func Missing(statuses []Status) []Status {
	var missing []Status
	for _, s := range statuses {
		if !s.Satisfied() {
			missing = append(missing, s)
		}
	}
	return missing
}
