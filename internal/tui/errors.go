package tui

import (
	"errors"
	"fmt"

	"github.com/pders01/chatlens/internal/chat"
	"github.com/pders01/chatlens/internal/media"
	"github.com/pders01/chatlens/internal/storage"
)

// action names a user operation in the status bar.
type action string

const (
	actLoadHistory   action = "loading recent files"
	actRemoveHistory action = "removing recent file"
	actReload        action = "reloading file"
	actCopy          action = "copying message"
	actOpenMedia     action = "opening attachment"
)

// actionError is a failed user operation. The app keeps its previous state
// whenever one is shown.
type actionError struct {
	action action
	err    error
}

func (e *actionError) Error() string {
	if hint := e.hint(); hint != "" {
		return fmt.Sprintf("%s: %v (%s)", e.action, e.err, hint)
	}
	return fmt.Sprintf("%s: %v", e.action, e.err)
}

func (e *actionError) Unwrap() error { return e.err }

// hint tells the user what is still on screen or what to try next.
func (e *actionError) hint() string {
	switch {
	case e.action == actReload && errors.Is(e.err, chat.ErrNotFound):
		return "file was moved, showing the last version"
	case e.action == actReload:
		return "showing the last version"
	case errors.Is(e.err, media.ErrMissingFile):
		return "export the chat with media to open it"
	case errors.Is(e.err, storage.ErrNotFound):
		return "already removed"
	}
	return ""
}

// failed wraps err with the action it broke. nil stays nil.
func failed(act action, err error) error {
	if err == nil {
		return nil
	}
	return &actionError{action: act, err: err}
}
