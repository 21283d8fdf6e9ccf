package notifications

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestNotifier_NilClientIsNoop(t *testing.T) {
	t.Parallel()
	n := NewNotifier(nil)
	assert.NoError(t, n.Notify(context.Background(), "u1", TypeStrikeWarning, "t", "m", nil))
	assert.NoError(t, n.PublishModerationEvent(context.Background(), ModerationEvent{CompanyID: "c1"}))
	assert.NoError(t, n.StartModerationSubscriber(context.Background(), func(string, string) {}))

	var nilNotifier *Notifier
	assert.NoError(t, nilNotifier.Notify(context.Background(), "u1", TypeStrikeWarning, "t", "m", nil))
}

func TestChannels(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "notifications:user:abc", UserChannel("abc"))
	assert.Equal(t, "moderation:company:c9", ModerationChannel("c9"))
}

func TestNotifier_NotifyPublishesToUserChannel(t *testing.T) {
	t.Parallel()
	rdb := newTestRedis(t)
	ctx := context.Background()

	sub := rdb.Subscribe(ctx, UserChannel("u1"))
	defer func() { _ = sub.Close() }()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	n := NewNotifier(rdb)
	require.NoError(t, n.Notify(ctx, "u1", TypePostingRestricted, "Posting restricted", "7 days", map[string]any{"level": 2}))

	select {
	case msg := <-sub.Channel():
		var got Message
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
		assert.Equal(t, TypePostingRestricted, got.Type)
		assert.Equal(t, "Posting restricted", got.Title)
		assert.EqualValues(t, 2, got.Metadata["level"])
	case <-time.After(2 * time.Second):
		t.Fatal("notification not delivered")
	}
}

func TestNotifier_ModerationSubscriberStopsOnCancel(t *testing.T) {
	t.Parallel()
	rdb := newTestRedis(t)
	n := NewNotifier(rdb)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan [2]string, 4)
	require.NoError(t, n.StartModerationSubscriber(ctx, func(companyID, payload string) {
		got <- [2]string{companyID, payload}
	}))

	require.NoError(t, n.PublishModerationEvent(context.Background(), ModerationEvent{Type: TypeNewReport, CompanyID: "c1", ReportID: "r1"}))

	select {
	case m := <-got:
		assert.Equal(t, "c1", m[0])
		var ev ModerationEvent
		require.NoError(t, json.Unmarshal([]byte(m[1]), &ev))
		assert.Equal(t, "r1", ev.ReportID)
		assert.False(t, ev.CreatedAt.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatal("moderation event not delivered")
	}

	cancel()
	time.Sleep(50 * time.Millisecond)
	_ = n.PublishModerationEvent(context.Background(), ModerationEvent{Type: TypeNewReport, CompanyID: "c1"})
	assert.Never(t, func() bool { return len(got) > 0 }, 200*time.Millisecond, 10*time.Millisecond)
}
