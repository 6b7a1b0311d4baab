package bsim_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/go-signer/internal/bsim"
	"github/chapool/go-signer/internal/hardware"
	"github/chapool/go-signer/internal/queue"
)

func TestEnsureInitializedSharesInFlightCreate(t *testing.T) {
	card := newFakeCard(t)
	card.createGate = make(chan struct{})
	session := bsim.NewSession(card)

	const callers = 8
	errs := make(chan error, callers)

	var wg sync.WaitGroup
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- session.EnsureInitialized(t.Context())
		}()
	}

	// let every caller reach the flight before create returns
	time.Sleep(50 * time.Millisecond)
	close(card.createGate)
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, 1, card.creates())
	assert.True(t, session.Initialized())

	require.NoError(t, session.EnsureInitialized(t.Context()))
	assert.Equal(t, 1, card.creates())
}

func TestEnsureInitializedRetriesAfterFailure(t *testing.T) {
	card := newFakeCard(t)
	card.createErr = errors.New("channel busy")
	session := bsim.NewSession(card)

	require.Error(t, session.EnsureInitialized(t.Context()))
	assert.False(t, session.Initialized())

	require.NoError(t, session.EnsureInitialized(t.Context()))
	assert.True(t, session.Initialized())
	assert.Equal(t, 2, card.creates())
}

func TestEnsureInitializedInsideQueueTask(t *testing.T) {
	card := newFakeCard(t)
	session := bsim.NewSession(card)

	version, err := queue.Do(t.Context(), session.Queue(), "composite", func(ctx context.Context) (string, error) {
		if err := session.EnsureInitialized(ctx); err != nil {
			return "", err
		}
		return session.Version(ctx)
	})
	require.NoError(t, err)
	assert.Equal(t, "0102", version)
}

func TestSessionCallsRequireInitialization(t *testing.T) {
	session := bsim.NewSession(newFakeCard(t))

	_, err := session.Version(t.Context())
	require.ErrorIs(t, err, bsim.ErrNotInitialized)

	_, err = session.ExportPubkeys(t.Context())
	require.ErrorIs(t, err, bsim.ErrNotInitialized)
}

func TestSessionCloseResetsInitialization(t *testing.T) {
	card := newFakeCard(t)
	session := bsim.NewSession(card)

	require.NoError(t, session.EnsureInitialized(t.Context()))
	require.NoError(t, session.Close(t.Context()))
	assert.False(t, session.Initialized())

	require.NoError(t, session.Close(t.Context()))

	require.NoError(t, session.EnsureInitialized(t.Context()))
	assert.Equal(t, 2, card.creates())
}

func TestSessionNormalizesUnavailableErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		reason hardware.UnavailableReason
	}{
		{"channel open failed", bsim.NewTransportError(bsim.TransportChannelOpenFailed, "open", nil), hardware.ReasonCardMissing},
		{"channel not open", bsim.NewTransportError(bsim.TransportChannelNotOpen, "closed", nil), hardware.ReasonCardMissing},
		{"device not found", bsim.NewTransportError(bsim.TransportDeviceNotFound, "gone", nil), hardware.ReasonCardMissing},
		{"card locked", bsim.NewCardError(bsim.StatusLocked), hardware.ReasonCardLocked},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			card := newFakeCard(t)
			card.createErr = tt.err

			err := bsim.NewSession(card).EnsureInitialized(t.Context())
			require.ErrorIs(t, err, hardware.ErrHardwareUnavailable)

			reason, ok := hardware.UnavailableReasonOf(err)
			require.True(t, ok)
			assert.Equal(t, tt.reason, reason)
		})
	}
}

func TestSessionKeepsOtherErrors(t *testing.T) {
	card := newFakeCard(t)
	card.createErr = bsim.NewCardError("6A88")

	err := bsim.NewSession(card).EnsureInitialized(t.Context())
	require.Error(t, err)
	assert.NotErrorIs(t, err, hardware.ErrHardwareUnavailable)
	assert.True(t, bsim.IsCardStatus(err, "6A88"))

	var cardErr *bsim.CardError
	require.ErrorAs(t, err, &cardErr)
	assert.Contains(t, cardErr.Message, "Wrong BPIN")
}

func TestStatusMessage(t *testing.T) {
	assert.Equal(t, "BSIM card is locked. Error code: 6983", bsim.StatusMessage("6983"))
	assert.Equal(t, "Authentication failed, 3 attempts remaining.", bsim.StatusMessage("63c3"))
	assert.Equal(t, "Failed to call BSIM. Error code: 6F00", bsim.StatusMessage("6F00"))
}
