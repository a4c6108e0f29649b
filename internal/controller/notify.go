package controller

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/valpere/adaptran/internal"
)

// notifier delivers updates to one UpdateFunc. It keeps progress monotonic
// and contains anything the callback throws.
type notifier struct {
	fn       UpdateFunc
	logger   zerolog.Logger
	progress float64
}

func (n *notifier) send(u internal.TranslationUpdate) {
	if u.Progress < n.progress {
		u.Progress = n.progress
	}
	n.progress = u.Progress

	if err := n.call(u); err != nil {
		n.logger.Warn().Err(err).Str("stage", string(u.Stage)).Msg("progress update dropped")
	}
}

func (n *notifier) call(u internal.TranslationUpdate) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", ErrCallbackFailure, r)
		}
	}()
	if cbErr := n.fn(u); cbErr != nil {
		return fmt.Errorf("%w: %w", ErrCallbackFailure, cbErr)
	}
	return nil
}
