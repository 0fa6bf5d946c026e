// Package apperr defines the typed error kinds controllers translate into
// ack payloads (spec.md §7). No raw Go error text reaches a client except
// through Error.Message, which callers construct deliberately.
package apperr

import "fmt"

// Kind classifies an Error per spec.md §7's enumerated error kinds.
type Kind int

const (
	// Validation covers bad input the client sent: a taken name, an
	// invalid color, an out-of-range variable.
	Validation Kind = iota
	// Authorization covers a non-master client attempting a master-only
	// operation.
	Authorization
	// Protocol covers malformed frames or unknown event names; these are
	// logged, never acked, and never close the connection.
	Protocol
)

// Error is a typed application error. Only Validation and Authorization
// errors are ever surfaced to a client, via Ack.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

// Validationf builds a Validation error with a formatted message.
func Validationf(format string, args ...interface{}) *Error {
	return &Error{Kind: Validation, Message: fmt.Sprintf(format, args...)}
}

// Authorizationf builds an Authorization error with a formatted message.
func Authorizationf(format string, args ...interface{}) *Error {
	return &Error{Kind: Authorization, Message: fmt.Sprintf(format, args...)}
}

// Protocolf builds a Protocol error, never acked — only logged by the
// caller.
func Protocolf(format string, args ...interface{}) *Error {
	return &Error{Kind: Protocol, Message: fmt.Sprintf(format, args...)}
}

// Ack builds the `{success, error}` reply payload spec.md §7 mandates for
// validation/authorization failures. A nil err yields `{success:true}`.
func Ack(err error) map[string]interface{} {
	if err == nil {
		return map[string]interface{}{"success": true}
	}
	return map[string]interface{}{"success": false, "error": err.Error()}
}

// AckWith is Ack with additional fields merged into the success case
// (e.g. `{success:true, color:"#112233"}`).
func AckWith(err error, extra map[string]interface{}) map[string]interface{} {
	ack := Ack(err)
	if err == nil {
		for k, v := range extra {
			ack[k] = v
		}
	}
	return ack
}
