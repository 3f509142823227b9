// Package kitchen is the client side of the kitchen dashboard: it polls and
// subscribes to the order API, buckets orders by status, and issues the
// status and ingredient requests the operator triggers.
package kitchen

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/vibedrinks/api/internal/orderflow"
)

// Config holds the controller settings.
type Config struct {
	// PollConnected is the fallback poll interval while the live channel is up.
	PollConnected time.Duration
	// PollDisconnected is used while the live channel is down.
	PollDisconnected time.Duration
	Recorder         RecorderConfig
}

// DefaultConfig returns the intervals the dashboard ships with.
func DefaultConfig() Config {
	return Config{
		PollConnected:    30 * time.Second,
		PollDisconnected: 5 * time.Second,
		Recorder:         DefaultRecorderConfig(),
	}
}

// Dialog is the ingredient dialog staged for an order's first item.
type Dialog struct {
	OrderID uuid.UUID
	ItemID  uuid.UUID
}

// Inputs to the Run loop.
type (
	triggerMsg     struct{ orderID uuid.UUID }
	connMsg        struct{ connected bool }
	eventMsg       struct{ ev orderflow.Event }
	refreshMsg     struct{}
	recorderMsg    func(r *Recorder)
	confirmMsg     struct{}
	closeDialogMsg struct{}
	snapshotMsg    struct{ reply chan View }

	fetchResult struct {
		key      QueryKey
		value    interface{}
		items    []OrderItem
		itemsKey QueryKey
		seq      int
		at       time.Time
		err      error
	}
	statusResult struct {
		orderID uuid.UUID
		status  orderflow.Status
		err     error
	}
	ingredientResult struct {
		orderID   uuid.UUID
		productID uuid.UUID
		err       error
	}
)

// Controller owns the dashboard state. All state lives on the goroutine
// running Run; the exported methods only post messages to it, so none of
// them block on the network.
type Controller struct {
	api      API
	notifier Notifier
	cfg      Config
	now      func() time.Time

	inbox chan interface{}
	done  chan struct{}

	// Owned by Run.
	cache     *Cache
	recorder  *Recorder
	connected bool
	pending   map[uuid.UUID]bool
	// Orders whose status request succeeded, held pending until an orders
	// fetch numbered at least this lands.
	settling  map[uuid.UUID]int
	ordersSeq int
	fetching  map[QueryKey]bool
	refetch   map[QueryKey]bool
	dialog    *Dialog
	itemsKey  QueryKey
}

// NewController creates a Controller. A nil notifier discards notifications.
func NewController(api API, notifier Notifier, cfg Config) *Controller {
	if notifier == nil {
		notifier = NotifierFunc(func(Notification) {})
	}
	return &Controller{
		api:      api,
		notifier: notifier,
		cfg:      cfg,
		now:      time.Now,
		inbox:    make(chan interface{}, 64),
		done:     make(chan struct{}),
		cache:    NewCache(),
		recorder: NewRecorder(cfg.Recorder),
		pending:  make(map[uuid.UUID]bool),
		settling: make(map[uuid.UUID]int),
		fetching: make(map[QueryKey]bool),
		refetch:  make(map[QueryKey]bool),
	}
}

// Run processes inputs until ctx ends. It must be called exactly once.
// Responses arriving after it returns are dropped; requests already sent
// are not cancelled.
func (c *Controller) Run(ctx context.Context) error {
	defer close(c.done)

	poll := time.NewTimer(c.pollInterval())
	defer poll.Stop()

	c.sync(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-poll.C:
			c.cache.InvalidateAll()
			c.sync(ctx)
			poll.Reset(c.pollInterval())
		case m := <-c.inbox:
			if c.handle(ctx, m) {
				poll.Reset(c.pollInterval())
			}
		}
	}
}

// Trigger performs the next action of an order. Triggers for an order
// with a status request in flight are ignored.
func (c *Controller) Trigger(orderID uuid.UUID) { c.post(triggerMsg{orderID}) }

// SetConnected reports the live channel state.
func (c *Controller) SetConnected(connected bool) { c.post(connMsg{connected}) }

// HandleEvent applies a live event.
func (c *Controller) HandleEvent(ev orderflow.Event) { c.post(eventMsg{ev}) }

// Refresh refetches everything now.
func (c *Controller) Refresh() { c.post(refreshMsg{}) }

// Toggle picks or unpicks an ingredient in the open dialog.
func (c *Controller) Toggle(productID uuid.UUID) {
	c.post(recorderMsg(func(r *Recorder) { r.Toggle(productID) }))
}

func (c *Controller) SetDeduct(productID uuid.UUID, deduct bool) {
	c.post(recorderMsg(func(r *Recorder) { r.SetDeduct(productID, deduct) }))
}

func (c *Controller) SetQuantity(productID uuid.UUID, quantity int32) {
	c.post(recorderMsg(func(r *Recorder) { r.SetQuantity(productID, quantity) }))
}

func (c *Controller) SetSearch(term string) {
	c.post(recorderMsg(func(r *Recorder) { r.SetSearch(term) }))
}

// Confirm submits the open dialog: one consumption request per picked
// ingredient, or a start production request when nothing was picked.
func (c *Controller) Confirm() { c.post(confirmMsg{}) }

// CloseDialog discards the open dialog and its selection.
func (c *Controller) CloseDialog() { c.post(closeDialogMsg{}) }

// Snapshot returns the current view. It waits for Run to pick the request
// up and returns an empty View once Run has stopped.
func (c *Controller) Snapshot() View {
	reply := make(chan View, 1)
	c.post(snapshotMsg{reply})
	select {
	case v := <-reply:
		return v
	case <-c.done:
		return View{}
	}
}

func (c *Controller) post(m interface{}) {
	select {
	case c.inbox <- m:
	case <-c.done:
	}
}

func (c *Controller) pollInterval() time.Duration {
	if c.connected {
		return c.cfg.PollConnected
	}
	return c.cfg.PollDisconnected
}

// handle applies one input and reports whether the poll timer must be re-armed.
func (c *Controller) handle(ctx context.Context, m interface{}) bool {
	switch m := m.(type) {
	case triggerMsg:
		c.trigger(ctx, m.orderID)
	case connMsg:
		if c.connected == m.connected {
			return false
		}
		c.connected = m.connected
		if m.connected {
			// Events may have been missed while down
			c.cache.Invalidate(KeyOrders)
			c.sync(ctx)
		}
		return true
	case eventMsg:
		if n, ok := NotificationFor(m.ev); ok {
			c.notifier.Notify(n)
		}
		c.cache.Invalidate(KeyOrders)
		c.sync(ctx)
	case refreshMsg:
		c.cache.InvalidateAll()
		c.sync(ctx)
	case recorderMsg:
		if c.dialog != nil {
			m(c.recorder)
		}
	case confirmMsg:
		c.confirm(ctx)
	case closeDialogMsg:
		c.closeDialog()
	case snapshotMsg:
		m.reply <- c.view()
	case fetchResult:
		c.applyFetch(ctx, m)
	case statusResult:
		if m.err != nil {
			delete(c.pending, m.orderID)
			log.Printf("ERROR: update order %s to %s: %v", m.orderID, m.status, m.err)
			c.notifier.Notify(Notification{Kind: NotifyStatusError, Title: "error updating status", OrderID: m.orderID, Err: m.err})
			return false
		}
		c.notifier.Notify(Notification{Kind: NotifyStatusUpdated, Title: "status updated", OrderID: m.orderID})
		// Stays pending until the list shows the new status; the next
		// orders fetch to start is the first that can.
		c.settling[m.orderID] = c.ordersSeq + 1
		c.cache.Invalidate(KeyOrders)
		c.sync(ctx)
	case ingredientResult:
		if m.err != nil {
			log.Printf("ERROR: record ingredient %s on order %s: %v", m.productID, m.orderID, m.err)
			c.notifier.Notify(Notification{Kind: NotifyIngredientError, Title: "error recording ingredient", OrderID: m.orderID, Err: m.err})
			return false
		}
		c.notifier.Notify(Notification{Kind: NotifyIngredientRecorded, Title: "ingredient recorded", OrderID: m.orderID})
		c.cache.Invalidate(KeyProducts)
		c.sync(ctx)
	}
	return false
}

func (c *Controller) trigger(ctx context.Context, orderID uuid.UUID) {
	order, ok := c.findOrder(orderID)
	if !ok || c.pending[orderID] {
		return
	}
	action, ok := orderflow.NextAction(order.Status, order.OrderType)
	if !ok {
		return
	}

	// Starting production asks for ingredients of the first item once
	if action.Next == orderflow.StatusPreparing {
		if item, ok := c.firstItem(orderID); ok && (c.dialog == nil || c.dialog.ItemID != item.ID) {
			c.dialog = &Dialog{OrderID: orderID, ItemID: item.ID}
			c.recorder.Reset()
			return
		}
	}

	if c.dialog != nil && c.dialog.OrderID == orderID {
		c.closeDialog()
	}
	c.updateStatus(ctx, orderID, action.Next)
}

func (c *Controller) confirm(ctx context.Context) {
	if c.dialog == nil {
		return
	}
	d := *c.dialog
	selected := c.recorder.Selected()
	c.closeDialog()

	if len(selected) == 0 {
		c.updateStatus(ctx, d.OrderID, orderflow.StatusPreparing)
		return
	}

	reqCtx := context.WithoutCancel(ctx)
	for _, s := range selected {
		go func() {
			err := c.api.RecordIngredient(reqCtx, d.OrderID, d.ItemID, Consumption{
				IngredientProductID: s.ProductID,
				Quantity:            s.Quantity,
				ShouldDeductStock:   s.ShouldDeductStock,
			})
			c.post(ingredientResult{orderID: d.OrderID, productID: s.ProductID, err: err})
		}()
	}
}

func (c *Controller) closeDialog() {
	c.dialog = nil
	c.recorder.Reset()
}

func (c *Controller) updateStatus(ctx context.Context, orderID uuid.UUID, next orderflow.Status) {
	if c.pending[orderID] {
		return
	}
	c.pending[orderID] = true

	reqCtx := context.WithoutCancel(ctx)
	go func() {
		err := c.api.UpdateStatus(reqCtx, orderID, next)
		c.post(statusResult{orderID: orderID, status: next, err: err})
	}()
}

// sync fetches every stale base query.
func (c *Controller) sync(ctx context.Context) {
	for _, key := range []QueryKey{KeyOrders, KeyUsers, KeyProducts, KeyCategories} {
		if c.cache.Stale(key) {
			c.fetch(ctx, key)
		}
	}
}

// fetch starts one read of key. A fetch requested while one is running is
// run again once the current one lands, so invalidations are never lost.
func (c *Controller) fetch(ctx context.Context, key QueryKey) {
	if c.fetching[key] {
		c.refetch[key] = true
		return
	}
	c.fetching[key] = true
	res := fetchResult{key: key}
	if key == KeyOrders {
		c.ordersSeq++
		res.seq = c.ordersSeq
	}

	go func() {
		switch key {
		case KeyOrders:
			var orders []Order
			orders, res.err = c.api.ListOrders(ctx)
			res.value = orders
			if res.err == nil {
				ids := make([]uuid.UUID, len(orders))
				for i, o := range orders {
					ids[i] = o.ID
				}
				res.itemsKey = OrderItemsKey(ids)
				items, err := c.api.ListOrderItems(ctx, ids)
				if err != nil {
					log.Printf("WARNING: list order items: %v", err)
				}
				res.items = items
			}
		case KeyUsers:
			res.value, res.err = c.api.ListUsers(ctx)
		case KeyProducts:
			res.value, res.err = c.api.ListProducts(ctx)
		case KeyCategories:
			res.value, res.err = c.api.ListCategories(ctx)
		}
		res.at = c.now()
		c.post(res)
	}()
}

func (c *Controller) applyFetch(ctx context.Context, res fetchResult) {
	c.fetching[res.key] = false

	if res.err != nil {
		// Keep showing what we have; the next poll retries
		log.Printf("WARNING: fetch %s: %v", res.key, res.err)
	} else {
		c.cache.Set(res.key, res.value, res.at)
		if res.key == KeyOrders {
			c.cache.Set(res.itemsKey, res.items, res.at)
			c.cache.Prune(res.itemsKey)
			c.itemsKey = res.itemsKey
			for id, after := range c.settling {
				if res.seq >= after {
					delete(c.settling, id)
					delete(c.pending, id)
				}
			}
		}
	}

	if c.refetch[res.key] {
		delete(c.refetch, res.key)
		c.fetch(ctx, res.key)
	}
}

func (c *Controller) findOrder(id uuid.UUID) (Order, bool) {
	for _, o := range cached[[]Order](c.cache, KeyOrders) {
		if o.ID == id {
			return o, true
		}
	}
	return Order{}, false
}

func (c *Controller) firstItem(orderID uuid.UUID) (OrderItem, bool) {
	for _, item := range cached[[]OrderItem](c.cache, c.itemsKey) {
		if item.OrderID == orderID {
			return item, true
		}
	}
	return OrderItem{}, false
}
