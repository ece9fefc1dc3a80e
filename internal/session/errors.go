package session

import "errors"

// Input errors. Their text is shown to the user as is.
var (
	ErrEmptyQuery = errors.New("Please enter a search term")
	ErrNoDocument = errors.New("Please load a chat file first")
)
