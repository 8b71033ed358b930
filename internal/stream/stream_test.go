package stream

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPublishScopesByOrganization(t *testing.T) {
	h := New(4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	acme := h.Subscribe(ctx, "acme")
	other := h.Subscribe(ctx, "other")
	require.Equal(t, 2, h.Subscribers())

	h.Publish(LoginEvent{OrganizationID: "acme", UserID: "u1"})
	h.Publish(LoginEvent{UserID: "loner"})

	select {
	case evt := <-acme:
		require.Equal(t, "u1", evt.UserID)
	case <-time.After(time.Second):
		t.Fatal("acme subscriber got nothing")
	}
	select {
	case evt := <-other:
		t.Fatalf("unexpected event for other org: %+v", evt)
	default:
	}
}

func TestSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	h := New(1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_ = h.Subscribe(ctx, "acme")

	h.Publish(LoginEvent{OrganizationID: "acme"})
	h.Publish(LoginEvent{OrganizationID: "acme"})
	require.Equal(t, 1, h.Dropped())
}

func TestSubscriptionClosesWithContext(t *testing.T) {
	h := New(0)
	ctx, cancel := context.WithCancel(context.Background())
	ch := h.Subscribe(ctx, "acme")
	cancel()

	require.Eventually(t, func() bool {
		select {
		case _, ok := <-ch:
			return !ok
		default:
			return false
		}
	}, time.Second, time.Millisecond)
	require.Zero(t, h.Subscribers())
}
