// Package session persists tgtg login sessions between runs.
package session

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/s0up4200/tgtg/tgtg"
)

// ErrNotFound is returned by Load when nothing has been saved yet
var ErrNotFound = errors.New("no saved session")

// Store loads and saves a single session
type Store interface {
	Load(ctx context.Context) (*tgtg.Session, error)
	Save(ctx context.Context, session tgtg.Session) error
	Clear(ctx context.Context) error
}

// Recorder saves every session update the client reports to a Store
type Recorder struct {
	store  Store
	logger zerolog.Logger
}

// NewRecorder returns a tgtg.SessionObserver backed by store
func NewRecorder(store Store, logger zerolog.Logger) *Recorder {
	return &Recorder{
		store:  store,
		logger: logger.With().Str("component", "session").Logger(),
	}
}

// OnSessionUpdated implements tgtg.SessionObserver
func (r *Recorder) OnSessionUpdated(event tgtg.SessionUpdated) {
	if err := r.store.Save(context.Background(), event.Session); err != nil {
		r.logger.Error().Err(err).Str("reason", string(event.Reason)).Msg("Failed to save session")
		return
	}
	r.logger.Debug().
		Str("reason", string(event.Reason)).
		Str("user_id", event.Session.UserID).
		Msg("Saved session")
}
