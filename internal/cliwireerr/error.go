// Package cliwireerr defines the gateway's error taxonomy.
//
// Every subsystem that can fail — binary resolution, sandboxing, the bounded
// process runner, provider adapters, the registry — returns errors built with
// this package instead of bare fmt.Errorf. That lets each front (REST, MCP)
// map a single Kind value to its own status code without knowing anything
// about where the error came from.
package cliwireerr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure the way spec §7 requires: low-level subsystems
// never retry, they classify and surface.
type Kind string

const (
	// KindInternal covers I/O errors, UTF-8 decode failures, JSON parse
	// failures, and spawn failures — anything that isn't one of the more
	// specific kinds below.
	KindInternal Kind = "internal"

	// KindExternalService marks a CLI that exited non-zero or reported
	// its own is_error:true in a structured response.
	KindExternalService Kind = "external_service"

	// KindBinaryNotFound marks a failure to resolve a provider's binary,
	// whether via PATH lookup or an env override that doesn't exist.
	KindBinaryNotFound Kind = "binary_not_found"

	// KindAuthFailure marks a readiness check that determined the
	// provider's CLI isn't authenticated.
	KindAuthFailure Kind = "auth_failure"

	// KindTimeout marks a bounded process invocation that exceeded its
	// wall-clock budget. Kept distinct from KindExternalService even
	// though some reference implementations fold the two together —
	// spec §7 calls Timeout out as its own kind.
	KindTimeout Kind = "timeout"

	// KindConfig marks address-parsing and request-validation failures.
	KindConfig Kind = "config"
)

// Error is the concrete error type every subsystem in this module returns.
// Provider is optional — it's populated by adapters and the registry so a
// front can say "claude_code: external service error" instead of just
// "external service error".
type Error struct {
	Kind     Kind
	Provider string
	Message  string
	Cause    error
}

func (e *Error) Error() string {
	if e.Provider != "" {
		if e.Cause != nil {
			return fmt.Sprintf("%s: %s: %v", e.Provider, e.Message, e.Cause)
		}
		return fmt.Sprintf("%s: %s", e.Provider, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New builds an Error with no provider context and no wrapped cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf is New with fmt.Sprintf-style formatting.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a Kind and message to an underlying cause, preserving it for
// errors.Unwrap / errors.Is / errors.As.
func Wrap(kind Kind, cause error, message string) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Wrapf is Wrap with fmt.Sprintf-style formatting on the message.
func Wrapf(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// WithProvider returns a copy of e with Provider set. Adapters call this so
// every error they produce names the CLI responsible, per spec §7's
// "human message that names the provider and the failure class".
func (e *Error) WithProvider(provider string) *Error {
	cp := *e
	cp.Provider = provider
	return &cp
}

// KindOf extracts the Kind from err if it is (or wraps) a *Error, defaulting
// to KindInternal for anything else — the same conservative default spec §9
// recommends for ambiguous provider-reported failures.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
