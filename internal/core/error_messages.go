package core

// error_messages.go maps errors to user-friendly messages with codes for
// support reference. Users can quote the code to support staff for faster
// diagnosis.
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL001 - Required field: a name or axis was left empty
//	VAL002 - Invalid number: a cell value is not an integer
//	VAL003 - Invalid data format: an import document lacks columns or rows
//
// # Lookup Errors (NF001-NF099)
//
//	NF001 - Not found: the row, column or axis setting does not exist
//
// # Duplicate Errors (DUP001-DUP099)
//
//	DUP001 - Duplicate name: a row, column or axis setting already uses the name
//
// # Database Errors (DB001-DB099)
//
// Internal failures never expose their technical text. Instead the text is
// matched against known patterns (case-insensitive, first match wins):
//
//	DB004 - Connection refused      Patterns: "connection refused"
//	DB005 - Connection reset        Patterns: "connection reset"
//	DB006 - Timeout                 Patterns: "statement timeout", "deadline exceeded"
//	DB007 - Deadlock                Patterns: "deadlock"
//	DB008 - Database busy           Patterns: "database is locked"
//
// # Import Errors (IMP001-IMP099)
//
//	IMP001 - System busy: another import is running   Patterns: "too many concurrent imports"
//	IMP002 - Request cancelled                         Patterns: "context canceled"
//
// # Default Error (ERR000)
//
// Fallback when no pattern matches. Support staff should check application
// logs for the underlying technical error when users report ERR000.

import (
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// Default codes per client-facing kind.
const (
	CodeRequired      = "VAL001"
	CodeInvalidNumber = "VAL002"
	CodeInvalidFormat = "VAL003"
	CodeNotFound      = "NF001"
	CodeDuplicate     = "DUP001"
)

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// internalPatterns maps technical error text of internal failures to user
// messages. Order matters: more specific patterns come first.
var internalPatterns = []errorPattern{
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},
	{
		pattern: "statement timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Please try again in a few moments",
			Code:    "DB006",
		},
	},
	{
		pattern: "deadline exceeded",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Please try again in a few moments",
			Code:    "DB006",
		},
	},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB007",
		},
	},
	{
		pattern: "database is locked",
		msg: UserMessage{
			Message: "Database is busy",
			Action:  "Please try again",
			Code:    "DB008",
		},
	},
	{
		pattern: "too many concurrent imports",
		msg: UserMessage{
			Message: "Another import is in progress",
			Action:  "Please wait for it to finish and try again",
			Code:    "IMP001",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "IMP002",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts an error to a user-friendly message.
//
// Client-facing kinds carry their own message (e.g. "Criteria name required").
// Internal failures are matched against known patterns and otherwise fall back
// to ERR000; their technical text is never returned.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var ce *Error
	errors.As(err, &ce)

	switch KindOf(err) {
	case ErrInvalidInput:
		return clientMessage(ce, UserMessage{
			Message: "Invalid input",
			Action:  "Check the submitted values and try again",
			Code:    CodeRequired,
		})
	case ErrNotFound:
		return clientMessage(ce, UserMessage{
			Message: "Not found",
			Action:  "Reload the table; it may have been changed elsewhere",
			Code:    CodeNotFound,
		})
	case ErrDuplicateName:
		return clientMessage(ce, UserMessage{
			Message: "Name already exists",
			Action:  "Choose a different name",
			Code:    CodeDuplicate,
		})
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range internalPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}
	return defaultMessage
}

func clientMessage(ce *Error, fallback UserMessage) UserMessage {
	if ce == nil {
		return fallback
	}
	if ce.Message != "" {
		fallback.Message = ce.Message
	}
	if ce.Code != "" {
		fallback.Code = ce.Code
	}
	return fallback
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to something more specific than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
