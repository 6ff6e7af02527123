package realtime

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mentorloop-backend/internal/store"
)

// stubDirectory maps internal user IDs to external identities in memory.
type stubDirectory struct {
	identities map[string]string
}

func (d *stubDirectory) ResolveIdentity(ctx context.Context, userID string) (string, error) {
	subject, ok := d.identities[userID]
	if !ok {
		return "", errors.New("unknown user")
	}
	return subject, nil
}

func TestPubSubNotifier_FeedbackCreatedReachesReceiver(t *testing.T) {
	hub := NewHub()
	receiver := newTestClient()
	hub.Join(receiver, IdentityChannel("alice@example.com"))

	dir := &stubDirectory{identities: map[string]string{"user-1": "Alice@Example.com"}}
	notifier := NewPubSubNotifier(hub, dir, nil, nil, nil, nil)

	err := notifier.Notify(context.Background(), store.FeedbackCreated{
		FeedbackID:     "fb-1",
		SeasonID:       "season-1",
		ReceiverUserID: "user-1",
	})
	require.NoError(t, err)

	ev := receive(t, receiver)
	assert.Equal(t, "newFeedback", ev.Type)
	payload, ok := ev.Payload.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "fb-1", payload["feedbackId"])
	assert.Equal(t, "season-1", payload["seasonId"])
}

func TestPubSubNotifier_UnresolvableReceiver(t *testing.T) {
	hub := NewHub()
	dir := &stubDirectory{identities: map[string]string{}}
	notifier := NewPubSubNotifier(hub, dir, nil, nil, nil, nil)

	err := notifier.Notify(context.Background(), store.FeedbackCreated{ReceiverUserID: "ghost"})
	assert.Error(t, err)
}

func TestPubSubNotifier_DeleteRequestGoesToAdmins(t *testing.T) {
	hub := NewHub()
	admin := newTestClient()
	intern := newTestClient()
	hub.Join(admin, AdminChannel)
	hub.Join(intern, IdentityChannel("i@example.com"))

	notifier := NewPubSubNotifier(hub, &stubDirectory{}, nil, nil, nil, nil)

	err := notifier.Notify(context.Background(), store.DeleteRequestCreated{
		DeleteRequestID: "dr-1",
		FeedbackID:      "fb-1",
		Reason:          "wrong person",
	})
	require.NoError(t, err)

	ev := receive(t, admin)
	assert.Equal(t, "deleteRequestCreated", ev.Type)
	payload, ok := ev.Payload.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "dr-1", payload["deleteRequestId"])
	assert.Empty(t, intern.Send)
}

func TestPubSubNotifier_UnknownEventIsIgnored(t *testing.T) {
	notifier := NewPubSubNotifier(NewHub(), &stubDirectory{}, nil, nil, nil, nil)
	assert.NoError(t, notifier.Notify(context.Background(), fakeEvent{}))
}

type fakeEvent struct{}

func (fakeEvent) EventName() string { return "somethingElse" }
