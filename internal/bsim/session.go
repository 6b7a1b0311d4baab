package bsim

import (
	"context"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github/chapool/go-signer/internal/queue"
	"golang.org/x/sync/singleflight"
)

const initFlightKey = "create"

// Session owns the card and the queue serializing every call to it.
// The card is created once; concurrent first callers share the single in-flight Create.
type Session struct {
	card        Card
	queue       *queue.Queue
	flight      singleflight.Group
	initialized atomic.Bool
	log         zerolog.Logger
}

// NewSession creates a session over card; opts configure its queue
func NewSession(card Card, opts ...queue.Option) *Session {
	return &Session{
		card:  card,
		queue: queue.New(append([]queue.Option{queue.WithName("bsim")}, opts...)...),
		log:   log.With().Str("component", "bsim_session").Logger(),
	}
}

// Queue returns the queue serializing card access
func (s *Session) Queue() *queue.Queue {
	return s.queue
}

// Initialized reports whether Create succeeded
func (s *Session) Initialized() bool {
	return s.initialized.Load()
}

// EnsureInitialized issues Create through the queue exactly once. A failed Create leaves the
// session uninitialized so a later call retries.
func (s *Session) EnsureInitialized(ctx context.Context) error {
	if s.initialized.Load() {
		return nil
	}

	// A caller already holding the queue would deadlock waiting on a flight queued behind it
	if s.queue.Holds(ctx) {
		return s.create(ctx)
	}

	_, err, shared := s.flight.Do(initFlightKey, func() (any, error) {
		_, err := queue.Do(ctx, s.queue, "create", func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.create(ctx)
		})
		return nil, err
	})
	if shared {
		s.log.Debug().Err(err).Msg("Joined in-flight BSIM initialization")
	}

	return err
}

func (s *Session) create(ctx context.Context) error {
	if s.initialized.Load() {
		return nil
	}

	if err := s.card.Create(ctx); err != nil {
		s.log.Warn().Err(err).Msg("BSIM initialization failed")
		return normalizeError(err)
	}

	s.initialized.Store(true)
	s.log.Debug().Msg("BSIM initialized")
	return nil
}

// call runs fn against the card through the queue
func call[T any](ctx context.Context, s *Session, label string, fn func(ctx context.Context, card Card) (T, error)) (T, error) {
	if !s.initialized.Load() {
		var zero T
		return zero, ErrNotInitialized
	}

	value, err := queue.Do(ctx, s.queue, label, func(ctx context.Context) (T, error) {
		return fn(ctx, s.card)
	})
	if err != nil {
		return value, normalizeError(err)
	}

	return value, nil
}

// Version returns the applet version
func (s *Session) Version(ctx context.Context) (string, error) {
	return call(ctx, s, "version", func(ctx context.Context, card Card) (string, error) {
		return card.Version(ctx)
	})
}

// ExportPubkeys reads and validates the key table of the card
func (s *Session) ExportPubkeys(ctx context.Context) ([]PubKey, error) {
	records, err := call(ctx, s, "export_pubkeys", func(ctx context.Context, card Card) ([]RawPubkey, error) {
		return card.ExportPubkeys(ctx)
	})
	if err != nil {
		return nil, err
	}

	return DecodePubkeys(records)
}

// DeriveKey creates a key for coinType
func (s *Session) DeriveKey(ctx context.Context, coinType uint32, algorithm byte) error {
	_, err := call(ctx, s, "derive_key", func(ctx context.Context, card Card) (struct{}, error) {
		return struct{}{}, card.DeriveKey(ctx, coinType, algorithm)
	})
	return err
}

// Sign signs digest with the key at (coinType, index)
func (s *Session) Sign(ctx context.Context, digest []byte, coinType uint32, index int) (*Signature, error) {
	return call(ctx, s, "sign", func(ctx context.Context, card Card) (*Signature, error) {
		return card.Sign(ctx, digest, coinType, index)
	})
}

// VerifyBPIN asks for BPIN authentication
func (s *Session) VerifyBPIN(ctx context.Context) error {
	_, err := call(ctx, s, "verify_bpin", func(ctx context.Context, card Card) (struct{}, error) {
		return struct{}{}, card.VerifyBPIN(ctx)
	})
	return err
}

// Close waits for queued calls, closes the card and resets the session to uninitialized
func (s *Session) Close(ctx context.Context) error {
	if !s.queue.Holds(ctx) {
		if err := s.queue.Flush(ctx); err != nil {
			return errors.Wrap(err, "failed to flush bsim queue")
		}
	}

	wasInitialized := s.initialized.Swap(false)
	rejected := s.queue.Reset()
	if rejected > 0 {
		s.log.Warn().Int("rejected", rejected).Msg("Rejected BSIM calls queued during close")
	}

	if !wasInitialized {
		return nil
	}

	if err := s.card.Close(ctx); err != nil {
		return normalizeError(err)
	}
	return nil
}
