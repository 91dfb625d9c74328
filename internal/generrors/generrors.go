// Package generrors defines the fail-fast error kinds the generator core can
// raise. All of them are setup/configuration errors: the core has no
// recoverable runtime errors, so every GenError is meant to abort the run.
package generrors

import "fmt"

// Kind classifies a GenError the way the teacher's steam.APIError classifies
// its ErrorType: a small fixed enum checked by the orchestrator to decide
// how to log and what exit path to take.
type Kind string

const (
	HierarchyMalformed Kind = "HierarchyMalformed"
	ArchetypeInvalid   Kind = "ArchetypeInvalid"
	SituationInvalid   Kind = "SituationInvalid"
	InfeasibleTargets  Kind = "InfeasibleTargets"
	RenderIncompatible Kind = "RenderIncompatible"
	AssignerConflict   Kind = "AssignerConflict"
)

// GenError is the single structured diagnostic type that reaches the
// orchestrator's top level. Component names the subsystem that raised it
// (e.g. "hierarchy", "renderer", "assigner"); Identifier names the
// offending entity (a branch name, a clerk id, a soldier id) when known.
type GenError struct {
	Kind       Kind
	Component  string
	Identifier string
	Message    string
	Cause      error
}

func (e *GenError) Error() string {
	if e.Identifier != "" {
		return fmt.Sprintf("%s[%s]: %s (%s)", e.Kind, e.Component, e.Message, e.Identifier)
	}
	return fmt.Sprintf("%s[%s]: %s", e.Kind, e.Component, e.Message)
}

func (e *GenError) Unwrap() error { return e.Cause }

func New(kind Kind, component, identifier, message string) *GenError {
	return &GenError{Kind: kind, Component: component, Identifier: identifier, Message: message}
}

func Wrap(kind Kind, component, identifier string, cause error) *GenError {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return &GenError{Kind: kind, Component: component, Identifier: identifier, Message: msg, Cause: cause}
}
