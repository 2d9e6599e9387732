package notifier

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ikkim/homestay-backend/internal/app/model"
	"github.com/ikkim/homestay-backend/internal/app/repository"
	"github.com/ikkim/homestay-backend/internal/db"
)

type recordingNotifier struct {
	mu       sync.Mutex
	messages []Message
	failFor  string
}

func (r *recordingNotifier) Notify(_ context.Context, msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if msg.EventID == r.failFor {
		return errors.New("gateway rejected message")
	}
	r.messages = append(r.messages, msg)
	return nil
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.messages)
}

func seedEvent(t *testing.T, repo repository.NotificationRepository, eventID string) {
	t.Helper()
	require.NoError(t, repo.Create(&model.NotificationEvent{
		MessageKey:    uuid.NewString(),
		EventID:       eventID,
		ApplicationID: 7,
		Recipient:     "9816000000",
		Message:       "text for " + eventID,
		Extra:         model.JSONMap{"application_number": "HS/2026/000007"},
		Status:        model.NotificationPending,
	}))
}

func TestDispatcher_DispatchOnce(t *testing.T) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	defer db.CleanupTestDB(testDB)

	repo := repository.NewNotificationRepository(testDB)
	seedEvent(t, repo, "application_submitted")
	seedEvent(t, repo, "dtdo_objection")
	seedEvent(t, repo, "scrutiny_started")

	fake := &recordingNotifier{failFor: "dtdo_objection"}
	d := NewDispatcher(repo, fake, 10, time.Hour)

	sent := d.DispatchOnce(context.Background())
	assert.Equal(t, 2, sent)
	assert.Equal(t, 2, fake.count())
	assert.Equal(t, "HS/2026/000007", fake.messages[0].Extra["application_number"])

	events, err := repo.FindByApplication(7)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, model.NotificationSent, events[0].Status)
	assert.NotNil(t, events[0].DispatchedAt)
	assert.Equal(t, model.NotificationFailed, events[1].Status)
	assert.Equal(t, "gateway rejected message", events[1].LastError)
	assert.Equal(t, model.NotificationSent, events[2].Status)

	// failed events are not retried
	assert.Equal(t, 0, d.DispatchOnce(context.Background()))
	assert.Equal(t, 2, fake.count())
}

func TestDispatcher_PokeTriggersDelivery(t *testing.T) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	defer db.CleanupTestDB(testDB)

	repo := repository.NewNotificationRepository(testDB)
	fake := &recordingNotifier{}
	d := NewDispatcher(repo, fake, 10, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)

	seedEvent(t, repo, "application_submitted")
	d.Poke()
	d.Poke() // coalesced, never blocks

	assert.Eventually(t, func() bool { return fake.count() == 1 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	d.Wait()
}
