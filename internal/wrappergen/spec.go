// Package wrappergen synthesizes the instrumented entry module for a tenant
// deployment. The tenant's own module is never modified: the generated
// module imports it, wraps the exports that need metering or quota
// enforcement, and re-exports everything under the original names.
package wrappergen

import (
	"fmt"
	"regexp"
)

// VectorBinding maps an environment binding name onto the remote index the
// quota-checked client should target.
type VectorBinding struct {
	BindingName string `json:"bindingName"`
	IndexName   string `json:"indexName"`
}

// Spec describes one wrapper module to generate. It is consumed once;
// generation is a pure function of its fields.
type Spec struct {
	OriginalModule    string          `json:"originalModule"`
	ProjectID         string          `json:"projectId"`
	OrgID             string          `json:"orgId"`
	DOClassNames      []string        `json:"doClassNames,omitempty"`
	VectorizeBindings []VectorBinding `json:"vectorizeBindings,omitempty"`
}

var identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidationError is a structural problem with a Spec. Generation fails
// whole: a spec that does not validate produces no output at all.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid wrapper spec: %s: %s", e.Field, e.Message)
}

func (s *Spec) validate() error {
	if s.OriginalModule == "" {
		return &ValidationError{Field: "originalModule", Message: "must not be empty"}
	}

	if len(s.DOClassNames) == 0 && len(s.VectorizeBindings) == 0 {
		return &ValidationError{
			Field:   "doClassNames/vectorizeBindings",
			Message: "at least one wrap target is required",
		}
	}

	for _, name := range s.DOClassNames {
		if !identifierRe.MatchString(name) {
			return &ValidationError{
				Field:   "doClassNames",
				Message: fmt.Sprintf("%q is not a valid identifier", name),
			}
		}
	}

	for _, b := range s.VectorizeBindings {
		if b.BindingName == "" {
			return &ValidationError{Field: "vectorizeBindings", Message: "bindingName must not be empty"}
		}
		if b.IndexName == "" {
			return &ValidationError{Field: "vectorizeBindings", Message: "indexName must not be empty"}
		}
	}

	return nil
}
