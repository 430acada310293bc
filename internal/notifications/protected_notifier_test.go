package notifications

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedNotifier struct {
	err   error
	calls int
}

func (s *scriptedNotifier) NotifyNewMessage(ctx context.Context, in NewMessageInput) error {
	s.calls++
	return s.err
}

func (s *scriptedNotifier) NotifyPatientAssigned(ctx context.Context, in PatientAssignedInput) error {
	s.calls++
	return s.err
}

func TestProtectedNotifier_OpensAfterThreshold(t *testing.T) {
	inner := &scriptedNotifier{err: errors.New("boom")}
	n := NewProtectedNotifier(inner, ProtectedNotifierConfig{FailureThreshold: 2, Cooldown: time.Minute})

	ctx := context.Background()

	require.Error(t, n.NotifyNewMessage(ctx, NewMessageInput{}))
	require.Error(t, n.NotifyPatientAssigned(ctx, PatientAssignedInput{}))
	assert.Equal(t, "open", n.State())

	err := n.NotifyNewMessage(ctx, NewMessageInput{})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, 2, inner.calls, "open circuit must not reach the provider")
}

func TestProtectedNotifier_HalfOpenRecovers(t *testing.T) {
	inner := &scriptedNotifier{err: errors.New("boom")}
	n := NewProtectedNotifier(inner, ProtectedNotifierConfig{FailureThreshold: 1, Cooldown: time.Minute})

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	n.now = func() time.Time { return now }

	ctx := context.Background()
	require.Error(t, n.NotifyNewMessage(ctx, NewMessageInput{}))
	require.Equal(t, "open", n.State())

	now = now.Add(2 * time.Minute)
	inner.err = nil

	require.NoError(t, n.NotifyNewMessage(ctx, NewMessageInput{}))
	assert.Equal(t, "closed", n.State())
}

func TestProtectedNotifier_FailedTrialReopens(t *testing.T) {
	inner := &scriptedNotifier{err: errors.New("boom")}
	n := NewProtectedNotifier(inner, ProtectedNotifierConfig{FailureThreshold: 1, Cooldown: time.Minute})

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	n.now = func() time.Time { return now }

	ctx := context.Background()
	require.Error(t, n.NotifyPatientAssigned(ctx, PatientAssignedInput{}))

	now = now.Add(2 * time.Minute)
	require.Error(t, n.NotifyPatientAssigned(ctx, PatientAssignedInput{}))
	assert.Equal(t, "open", n.State())

	assert.ErrorIs(t, n.NotifyPatientAssigned(ctx, PatientAssignedInput{}), ErrCircuitOpen)
}

func TestProtectedNotifier_TimeoutAppliesToInner(t *testing.T) {
	inner := NewLogNotifier(nil)
	inner.Delay = time.Second

	n := NewProtectedNotifier(inner, ProtectedNotifierConfig{Timeout: 20 * time.Millisecond})

	err := n.NotifyNewMessage(context.Background(), NewMessageInput{MessageID: "m1"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLogNotifier_SimulatedOutage(t *testing.T) {
	n := NewLogNotifier(nil)
	n.Fail = true

	assert.ErrorIs(t, n.NotifyPatientAssigned(context.Background(), PatientAssignedInput{}), ErrProviderDown)
}
