// Package common defines constants and the error taxonomy shared by the
// storage, service and transport layers. Repositories only ever return
// ErrorNotFound or wrapped driver errors; services translate those into a
// *Error carrying one of the Kind values below, and transports switch on the
// kind to pick a status code.
package common

import (
	"errors"
	"fmt"
)

// Repository-level errors.
var (
	ErrorNotFound = errors.New("not found")
)

// Kind classifies a service failure. Every Kind except KindInternal is a
// terminal correctness failure that must not be retried.
type Kind int

const (
	KindInternal Kind = iota
	KindInvalidCredentials
	KindAccountDisabled
	KindNoSuchUser
	KindNoSuchAccount
	KindUserExists
	KindAccountExists
	KindUserAlreadyLinked
	KindInvalidToken
	KindValidation
)

var kindNames = map[Kind]string{
	KindInternal:           "internal",
	KindInvalidCredentials: "invalid credentials",
	KindAccountDisabled:    "account disabled",
	KindNoSuchUser:         "no such user",
	KindNoSuchAccount:      "no such account",
	KindUserExists:         "user exists",
	KindAccountExists:      "account exists",
	KindUserAlreadyLinked:  "user already linked",
	KindInvalidToken:       "invalid token",
	KindValidation:         "validation",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Unauthenticated reports whether the kind means the caller failed to prove
// who they are.
func (k Kind) Unauthenticated() bool {
	switch k {
	case KindInvalidCredentials, KindAccountDisabled, KindInvalidToken:
		return true
	}
	return false
}

// Error is a classified service failure.
//
// Op names the failing operation ("auth.Refresh"), Msg is safe to show to
// clients and Err optionally keeps the underlying cause for logs.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
	case e.Msg != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// E builds a classified error without an underlying cause.
func E(kind Kind, op, msg string) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg}
}

// Wrap builds a classified error that keeps err as its cause.
func Wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or
// KindInternal when err is unclassified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Message returns the client-safe message for err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Msg != "" {
			return e.Msg
		}
		return e.Kind.String()
	}
	return "internal error"
}
