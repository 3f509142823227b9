package orderflow

// ActionKind identifies a kitchen action.
type ActionKind string

const (
	ActionStartProduction ActionKind = "start-production"
	ActionMarkReady       ActionKind = "mark-ready"
	ActionPickedUp        ActionKind = "picked-up"
)

// Action is the one operation the kitchen may perform on an order.
type Action struct {
	Kind  ActionKind `json:"kind"`
	Label string     `json:"label"`
	Next  Status     `json:"next"`
}

var (
	startProduction = Action{Kind: ActionStartProduction, Label: "start production", Next: StatusPreparing}
	markReady       = Action{Kind: ActionMarkReady, Label: "mark ready", Next: StatusReady}
	pickedUp        = Action{Kind: ActionPickedUp, Label: "customer picked up", Next: StatusDelivered}
)

// NextAction returns the action the kitchen may take for an order in the
// given status. Ready delivery orders have none: the courier hands them off.
func NextAction(status Status, orderType Type) (Action, bool) {
	switch status {
	case StatusAccepted:
		return startProduction, true
	case StatusPreparing:
		return markReady, true
	case StatusReady:
		if orderType.IsDelivery() {
			return Action{}, false
		}
		return pickedUp, true
	}
	return Action{}, false
}

// Bucket is the dashboard column an order is shown in.
type Bucket string

const (
	BucketAccepted  Bucket = "accepted"
	BucketPreparing Bucket = "preparing"
	BucketReady     Bucket = "ready"
	BucketDone      Bucket = "done"
)

// BucketOf derives the column from the status alone. Unknown statuses land
// in BucketDone so every order belongs to exactly one bucket.
func BucketOf(status Status) Bucket {
	switch status {
	case StatusAccepted:
		return BucketAccepted
	case StatusPreparing:
		return BucketPreparing
	case StatusReady:
		return BucketReady
	}
	return BucketDone
}
