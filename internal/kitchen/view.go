package kitchen

import (
	"time"

	"github.com/google/uuid"
	"github.com/vibedrinks/api/internal/orderflow"
)

// OrderView is an order joined with its items and customer, plus the
// action the kitchen may take on it.
type OrderView struct {
	Order
	Items        []OrderItem
	UserName     string
	UserWhatsapp string
	// Action is nil when the kitchen has nothing to do with the order.
	Action *orderflow.Action
	// Pending is set while a status request for the order is in flight.
	Pending bool
	// Since is when the order entered its current bucket.
	Since time.Time
}

// DialogView is the open ingredient dialog.
type DialogView struct {
	OrderID    uuid.UUID
	ItemID     uuid.UUID
	ItemName   string
	Search     string
	Candidates []Product
	Selected   []SelectedIngredient
}

// View is a point in time copy of the dashboard.
type View struct {
	Accepted  []OrderView
	Preparing []OrderView
	Ready     []OrderView
	Done      []OrderView

	Connected    bool
	PollInterval time.Duration
	Dialog       *DialogView
	// UpdatedAt is when the order list was last fetched.
	UpdatedAt time.Time
}

// Bucket returns the orders of one column.
func (v View) Bucket(b orderflow.Bucket) []OrderView {
	switch b {
	case orderflow.BucketAccepted:
		return v.Accepted
	case orderflow.BucketPreparing:
		return v.Preparing
	case orderflow.BucketReady:
		return v.Ready
	}
	return v.Done
}

// Find looks an order up across all buckets.
func (v View) Find(id uuid.UUID) (OrderView, bool) {
	for _, bucket := range [][]OrderView{v.Accepted, v.Preparing, v.Ready, v.Done} {
		for _, o := range bucket {
			if o.ID == id {
				return o, true
			}
		}
	}
	return OrderView{}, false
}

func (c *Controller) view() View {
	orders := cached[[]Order](c.cache, KeyOrders)
	items := cached[[]OrderItem](c.cache, c.itemsKey)
	users := cached[[]User](c.cache, KeyUsers)

	v := View{
		Connected:    c.connected,
		PollInterval: c.pollInterval(),
		UpdatedAt:    c.cache.FetchedAt(KeyOrders),
	}

	byOrder := make(map[uuid.UUID][]OrderItem)
	for _, item := range items {
		byOrder[item.OrderID] = append(byOrder[item.OrderID], item)
	}
	byUser := make(map[uuid.UUID]User, len(users))
	for _, u := range users {
		byUser[u.ID] = u
	}

	for _, o := range orders {
		ov := OrderView{
			Order:        o,
			Items:        byOrder[o.ID],
			UserName:     byUser[o.UserID].Name,
			UserWhatsapp: byUser[o.UserID].Whatsapp,
			Pending:      c.pending[o.ID],
			Since:        since(o),
		}
		if a, ok := orderflow.NextAction(o.Status, o.OrderType); ok {
			ov.Action = &a
		}

		switch orderflow.BucketOf(o.Status) {
		case orderflow.BucketAccepted:
			v.Accepted = append(v.Accepted, ov)
		case orderflow.BucketPreparing:
			v.Preparing = append(v.Preparing, ov)
		case orderflow.BucketReady:
			v.Ready = append(v.Ready, ov)
		default:
			v.Done = append(v.Done, ov)
		}
	}

	if c.dialog != nil {
		d := &DialogView{
			OrderID: c.dialog.OrderID,
			ItemID:  c.dialog.ItemID,
			Search:  c.recorder.Search(),
			Candidates: c.recorder.Candidates(
				cached[[]Product](c.cache, KeyProducts),
				cached[[]Category](c.cache, KeyCategories),
			),
			Selected: c.recorder.Selected(),
		}
		for _, item := range byOrder[c.dialog.OrderID] {
			if item.ID == c.dialog.ItemID {
				d.ItemName = item.ProductName
			}
		}
		v.Dialog = d
	}

	return v
}

// since picks the timestamp of the order's current stage, falling back to
// its creation time.
func since(o Order) time.Time {
	var ts *time.Time
	switch o.Status {
	case orderflow.StatusAccepted:
		ts = o.AcceptedAt
	case orderflow.StatusPreparing:
		ts = o.PreparingAt
	case orderflow.StatusReady:
		ts = o.ReadyAt
	case orderflow.StatusDelivered:
		ts = o.DeliveredAt
	case orderflow.StatusCancelled:
		ts = o.CancelledAt
	}
	if ts != nil && !ts.IsZero() {
		return *ts
	}
	return o.CreatedAt
}
