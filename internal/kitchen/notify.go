package kitchen

import (
	"github.com/google/uuid"
	"github.com/vibedrinks/api/internal/orderflow"
)

// Tone is the audio cue a notification asks for. Playing it is up to the
// Notifier.
type Tone int

const (
	ToneNone Tone = iota
	ToneSingle
	ToneMulti
)

type NotificationKind string

const (
	NotifyOrderCreated       NotificationKind = "order-created"
	NotifyOrderQueued        NotificationKind = "order-queued"
	NotifyOrderReady         NotificationKind = "order-ready"
	NotifyStatusUpdated      NotificationKind = "status-updated"
	NotifyStatusError        NotificationKind = "status-error"
	NotifyIngredientRecorded NotificationKind = "ingredient-recorded"
	NotifyIngredientError    NotificationKind = "ingredient-error"
)

// Notification is a user facing message.
type Notification struct {
	Kind    NotificationKind
	Title   string
	Tone    Tone
	OrderID uuid.UUID
	Err     error
}

// Notifier receives notifications on the controller goroutine and must not block.
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(n Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

// NotificationFor maps a live event to its notification. Status changes
// other than to accepted or ready produce none.
func NotificationFor(ev orderflow.Event) (Notification, bool) {
	switch ev.Type {
	case orderflow.EventOrderCreated:
		return Notification{Kind: NotifyOrderCreated, Title: "new order received", Tone: ToneMulti, OrderID: ev.OrderID}, true
	case orderflow.EventOrderStatusChanged:
		switch ev.Status {
		case orderflow.StatusAccepted:
			return Notification{Kind: NotifyOrderQueued, Title: "new order in queue", Tone: ToneSingle, OrderID: ev.OrderID}, true
		case orderflow.StatusReady:
			return Notification{Kind: NotifyOrderReady, Title: "ready for delivery/pickup", Tone: ToneSingle, OrderID: ev.OrderID}, true
		}
	}
	return Notification{}, false
}
