package kitchen_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/vibedrinks/api/internal/kitchen"
	"github.com/vibedrinks/api/internal/orderflow"
)

func TestNotificationFor(t *testing.T) {
	id := uuid.New()
	tests := []struct {
		name string
		ev   orderflow.Event
		want kitchen.NotificationKind
		tone kitchen.Tone
		ok   bool
	}{
		{"created", orderflow.OrderCreated(id), kitchen.NotifyOrderCreated, kitchen.ToneMulti, true},
		{"back to queue", orderflow.StatusChanged(id, orderflow.StatusAccepted), kitchen.NotifyOrderQueued, kitchen.ToneSingle, true},
		{"ready", orderflow.StatusChanged(id, orderflow.StatusReady), kitchen.NotifyOrderReady, kitchen.ToneSingle, true},
		{"preparing", orderflow.StatusChanged(id, orderflow.StatusPreparing), "", kitchen.ToneNone, false},
		{"delivered", orderflow.StatusChanged(id, orderflow.StatusDelivered), "", kitchen.ToneNone, false},
		{"cancelled", orderflow.StatusChanged(id, orderflow.StatusCancelled), "", kitchen.ToneNone, false},
		{"unknown type", orderflow.Event{Type: "ping"}, "", kitchen.ToneNone, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			n, ok := kitchen.NotificationFor(tc.ev)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, n.Kind)
			assert.Equal(t, tc.tone, n.Tone)
			if ok {
				assert.Equal(t, id, n.OrderID)
				assert.NotEmpty(t, n.Title)
			}
		})
	}
}

func TestNotificationFor_CreatedIsDistinguishableFromStatusChange(t *testing.T) {
	id := uuid.New()
	created, _ := kitchen.NotificationFor(orderflow.OrderCreated(id))
	ready, _ := kitchen.NotificationFor(orderflow.StatusChanged(id, orderflow.StatusReady))

	assert.NotEqual(t, created.Tone, ready.Tone)
	assert.NotEqual(t, created.Title, ready.Title)
}
