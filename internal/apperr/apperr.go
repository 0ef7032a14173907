// Package apperr holds errors that are addressed to the person driving the bot
// rather than reported as bugs.
package apperr

import "errors"

// Error is a user-facing failure with a short title and a hint on how to fix it.
type Error struct {
	Title       string
	Description string
}

func (e *Error) Error() string {
	if e.Description == "" {
		return e.Title
	}
	return e.Title + ": " + e.Description
}

var (
	ErrAccountNotLinked = &Error{
		Title:       "Account not Linked",
		Description: "This server is not linked to a Trello account, use the link account action to link it.",
	}
	ErrBoardNotLinked = &Error{
		Title:       "Board not Linked",
		Description: "This server is not linked to a Trello board, use the link board action to link it.",
	}
)

func InvalidInput(detail string) *Error {
	return &Error{Title: "Invalid Input", Description: detail}
}

// As returns the user-facing error wrapped in err, if any.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
