package app

import (
	"fmt"
	"strings"
)

// Mode selects which of the four call shapes issues a request.
type Mode string

const (
	ModeSync          Mode = "sync"
	ModeAsync         Mode = "async"
	ModeCallback      Mode = "callback"
	ModeAsyncCallback Mode = "async-callback"
)

// ParseMode accepts the CLI spelling of a mode; "" means sync.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeSync, nil
	case ModeSync, ModeAsync, ModeCallback, ModeAsyncCallback:
		return m, nil
	default:
		return "", fmt.Errorf("unknown mode %q (want sync, async, callback or async-callback)", s)
	}
}

// Callback reports whether the mode reports a status through a callback.
func (m Mode) Callback() bool {
	return m == ModeCallback || m == ModeAsyncCallback
}
