package kitchen_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vibedrinks/api/internal/kitchen"
	"github.com/vibedrinks/api/internal/orderflow"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

type statusCall struct {
	OrderID uuid.UUID
	Status  orderflow.Status
}

type recordCall struct {
	OrderID uuid.UUID
	ItemID  uuid.UUID
	kitchen.Consumption
}

// fakeAPI behaves like the order API: a successful status update moves the
// order so the next list reflects it.
type fakeAPI struct {
	mu         sync.Mutex
	orders     []kitchen.Order
	items      []kitchen.OrderItem
	users      []kitchen.User
	products   []kitchen.Product
	categories []kitchen.Category

	ordersErr  error
	ordersGate chan struct{}
	statusErr  error
	statusGate chan struct{}
	recordErr  map[uuid.UUID]error

	listOrderCalls   int
	listProductCalls int
	statusCalls      []statusCall
	recordCalls      []recordCall
	ctxErrAfterGate  error
}

func (f *fakeAPI) ListOrders(context.Context) ([]kitchen.Order, error) {
	f.mu.Lock()
	gate := f.ordersGate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.listOrderCalls++
	if f.ordersErr != nil {
		return nil, f.ordersErr
	}
	return append([]kitchen.Order(nil), f.orders...), nil
}

func (f *fakeAPI) ListOrderItems(_ context.Context, ids []uuid.UUID) ([]kitchen.OrderItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	want := make(map[uuid.UUID]bool)
	for _, id := range ids {
		want[id] = true
	}
	var out []kitchen.OrderItem
	for _, item := range f.items {
		if want[item.OrderID] {
			out = append(out, item)
		}
	}
	return out, nil
}

func (f *fakeAPI) ListUsers(context.Context) ([]kitchen.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.users, nil
}

func (f *fakeAPI) ListProducts(context.Context) ([]kitchen.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listProductCalls++
	return f.products, nil
}

func (f *fakeAPI) ListCategories(context.Context) ([]kitchen.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.categories, nil
}

func (f *fakeAPI) UpdateStatus(ctx context.Context, orderID uuid.UUID, status orderflow.Status) error {
	f.mu.Lock()
	f.statusCalls = append(f.statusCalls, statusCall{orderID, status})
	gate := f.statusGate
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.ctxErrAfterGate = ctx.Err()
	if f.statusErr != nil {
		return f.statusErr
	}
	for i := range f.orders {
		if f.orders[i].ID == orderID {
			f.orders[i].Status = status
		}
	}
	return nil
}

func (f *fakeAPI) RecordIngredient(_ context.Context, orderID, itemID uuid.UUID, c kitchen.Consumption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recordCalls = append(f.recordCalls, recordCall{orderID, itemID, c})
	return f.recordErr[c.IngredientProductID]
}

func (f *fakeAPI) set(fn func(f *fakeAPI)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeAPI) statuses() []statusCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]statusCall(nil), f.statusCalls...)
}

func (f *fakeAPI) records() []recordCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordCall(nil), f.recordCalls...)
}

func (f *fakeAPI) counts() (orders, products int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listOrderCalls, f.listProductCalls
}

type notifications struct {
	mu  sync.Mutex
	all []kitchen.Notification
}

func (n *notifications) Notify(x kitchen.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.all = append(n.all, x)
}

func (n *notifications) of(kind kitchen.NotificationKind) []kitchen.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []kitchen.Notification
	for _, x := range n.all {
		if x.Kind == kind {
			out = append(out, x)
		}
	}
	return out
}

func testOrder(status orderflow.Status, typ orderflow.Type, created time.Time) kitchen.Order {
	return kitchen.Order{ID: uuid.New(), UserID: uuid.New(), OrderType: typ, Status: status, CreatedAt: created}
}

// quietConfig never polls on its own during a test.
func quietConfig() kitchen.Config {
	cfg := kitchen.DefaultConfig()
	cfg.PollConnected = time.Hour
	cfg.PollDisconnected = time.Hour
	return cfg
}

func startController(t *testing.T, api kitchen.API, cfg kitchen.Config) (*kitchen.Controller, *notifications, context.CancelFunc, <-chan error) {
	t.Helper()
	n := &notifications{}
	c := kitchen.NewController(api, n, cfg)
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- c.Run(ctx) }()
	t.Cleanup(cancel)
	return c, n, cancel, errc
}

func waitView(t *testing.T, c *kitchen.Controller, cond func(v kitchen.View) bool) kitchen.View {
	t.Helper()
	var v kitchen.View
	require.Eventually(t, func() bool {
		v = c.Snapshot()
		return cond(v)
	}, waitFor, tick)
	return v
}

func waitForOrders(t *testing.T, c *kitchen.Controller, n int) kitchen.View {
	t.Helper()
	return waitView(t, c, func(v kitchen.View) bool {
		return len(v.Accepted)+len(v.Preparing)+len(v.Ready)+len(v.Done) == n
	})
}

func TestController_BucketsAndActions(t *testing.T) {
	base := time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC)
	customer := kitchen.User{ID: uuid.New(), Name: "Ana", Whatsapp: "11987654321"}

	accepted1 := testOrder(orderflow.StatusAccepted, orderflow.TypeDelivery, base)
	accepted1.UserID = customer.ID
	preparing := testOrder(orderflow.StatusPreparing, orderflow.TypePickup, base.Add(time.Minute))
	accepted2 := testOrder(orderflow.StatusAccepted, orderflow.TypeCounter, base.Add(2*time.Minute))
	readyPickup := testOrder(orderflow.StatusReady, orderflow.TypePickup, base.Add(3*time.Minute))
	readyAt := base.Add(10 * time.Minute)
	readyPickup.ReadyAt = &readyAt
	readyDelivery := testOrder(orderflow.StatusReady, orderflow.TypeDelivery, base.Add(4*time.Minute))
	delivered := testOrder(orderflow.StatusDelivered, orderflow.TypePickup, base.Add(5*time.Minute))
	cancelled := testOrder(orderflow.StatusCancelled, orderflow.TypePickup, base.Add(6*time.Minute))

	api := &fakeAPI{
		orders: []kitchen.Order{accepted1, preparing, accepted2, readyPickup, readyDelivery, delivered, cancelled},
		users:  []kitchen.User{customer},
		items:  []kitchen.OrderItem{{ID: uuid.New(), OrderID: accepted1.ID, ProductName: "Caipirinha", Quantity: 2}},
	}
	c, _, _, _ := startController(t, api, quietConfig())

	v := waitView(t, c, func(v kitchen.View) bool {
		return len(v.Accepted) == 2 && v.Accepted[0].UserName != "" && len(v.Done) == 2
	})

	require.Len(t, v.Accepted, 2)
	assert.Equal(t, accepted1.ID, v.Accepted[0].ID, "creation order kept")
	assert.Equal(t, accepted2.ID, v.Accepted[1].ID)
	assert.Equal(t, "Ana", v.Accepted[0].UserName)
	assert.Equal(t, "11987654321", v.Accepted[0].UserWhatsapp)
	assert.Len(t, v.Accepted[0].Items, 1)
	assert.Empty(t, v.Accepted[1].Items)
	require.NotNil(t, v.Accepted[0].Action)
	assert.Equal(t, orderflow.ActionStartProduction, v.Accepted[0].Action.Kind)
	assert.Equal(t, base, v.Accepted[0].Since, "falls back to createdAt")

	require.Len(t, v.Preparing, 1)
	assert.Equal(t, orderflow.ActionMarkReady, v.Preparing[0].Action.Kind)

	require.Len(t, v.Ready, 2)
	require.NotNil(t, v.Ready[0].Action)
	assert.Equal(t, orderflow.ActionPickedUp, v.Ready[0].Action.Kind)
	assert.Equal(t, readyAt, v.Ready[0].Since)
	assert.Nil(t, v.Ready[1].Action, "delivery orders are handed off by a courier")

	require.Len(t, v.Done, 2)
	assert.Nil(t, v.Done[0].Action)
	assert.Equal(t, v.Ready, v.Bucket(orderflow.BucketReady))

	found, ok := v.Find(readyDelivery.ID)
	require.True(t, ok)
	assert.Equal(t, orderflow.StatusReady, found.Status)
}

func TestController_StartProductionWithoutIngredients(t *testing.T) {
	products, categories := testCatalog()
	order := testOrder(orderflow.StatusAccepted, orderflow.TypePickup, time.Now())
	item := kitchen.OrderItem{ID: uuid.New(), OrderID: order.ID, ProductName: "Gin tônica", Quantity: 1}
	api := &fakeAPI{orders: []kitchen.Order{order}, items: []kitchen.OrderItem{item}, products: products, categories: categories}
	c, n, _, _ := startController(t, api, quietConfig())
	waitForOrders(t, c, 1)

	c.Trigger(order.ID)

	v := waitView(t, c, func(v kitchen.View) bool { return v.Dialog != nil && len(v.Dialog.Candidates) > 0 })
	assert.Equal(t, order.ID, v.Dialog.OrderID, "first trigger stages the ingredient dialog")
	assert.Equal(t, item.ID, v.Dialog.ItemID)
	assert.Equal(t, "Gin tônica", v.Dialog.ItemName)
	require.Len(t, v.Dialog.Candidates, 1)
	assert.Equal(t, "Gelo", v.Dialog.Candidates[0].Name)
	assert.Empty(t, api.statuses())

	c.Confirm()

	require.Eventually(t, func() bool { return len(api.statuses()) == 1 }, waitFor, tick)
	assert.Equal(t, statusCall{order.ID, orderflow.StatusPreparing}, api.statuses()[0])
	assert.Empty(t, api.records())
	assert.Nil(t, c.Snapshot().Dialog)

	require.Eventually(t, func() bool { return len(c.Snapshot().Preparing) == 1 }, waitFor, tick)
	assert.Len(t, n.of(kitchen.NotifyStatusUpdated), 1)
}

func TestController_ConfirmIngredients(t *testing.T) {
	products, categories := testCatalog()
	gelo := products[0]
	beer := kitchen.Product{ID: uuid.New(), CategoryID: categories[1].ID, Name: "Cerveja Y", Stock: 8}
	products = append(products, beer)

	order := testOrder(orderflow.StatusAccepted, orderflow.TypeDelivery, time.Now())
	item := kitchen.OrderItem{ID: uuid.New(), OrderID: order.ID, ProductName: "Balde", Quantity: 1}
	api := &fakeAPI{orders: []kitchen.Order{order}, items: []kitchen.OrderItem{item}, products: products, categories: categories}
	c, n, _, _ := startController(t, api, quietConfig())
	waitForOrders(t, c, 1)

	c.Trigger(order.ID)
	waitView(t, c, func(v kitchen.View) bool { return v.Dialog != nil && len(v.Dialog.Candidates) == 2 })
	_, productFetches := api.counts()

	c.SetSearch("ge")
	c.Toggle(gelo.ID)
	c.Toggle(beer.ID)
	c.SetQuantity(gelo.ID, 2)
	c.SetDeduct(beer.ID, false)

	v := c.Snapshot()
	require.NotNil(t, v.Dialog)
	assert.Equal(t, "ge", v.Dialog.Search)
	assert.Len(t, v.Dialog.Selected, 2)

	c.Confirm()

	require.Eventually(t, func() bool { return len(api.records()) == 2 }, waitFor, tick)
	assert.ElementsMatch(t, []recordCall{
		{order.ID, item.ID, kitchen.Consumption{IngredientProductID: gelo.ID, Quantity: 2, ShouldDeductStock: true}},
		{order.ID, item.ID, kitchen.Consumption{IngredientProductID: beer.ID, Quantity: 1, ShouldDeductStock: false}},
	}, api.records())

	v = c.Snapshot()
	assert.Nil(t, v.Dialog, "dialog closes after confirm")
	assert.Empty(t, api.statuses(), "recording ingredients does not start production")

	require.Eventually(t, func() bool { return len(n.of(kitchen.NotifyIngredientRecorded)) == 2 }, waitFor, tick)
	require.Eventually(t, func() bool {
		_, p := api.counts()
		return p > productFetches
	}, waitFor, tick, "stock changed, products refetched")

	// The next trigger asks again, as the dialog was closed
	c.Trigger(order.ID)
	v = c.Snapshot()
	require.NotNil(t, v.Dialog)
	assert.Empty(t, v.Dialog.Selected)
	assert.Empty(t, v.Dialog.Search)
}

func TestController_OneIngredientFails(t *testing.T) {
	products, categories := testCatalog()
	gelo := products[0]
	beer := kitchen.Product{ID: uuid.New(), CategoryID: categories[1].ID, Name: "Cerveja Y", Stock: 8}
	products = append(products, beer)

	order := testOrder(orderflow.StatusAccepted, orderflow.TypePickup, time.Now())
	item := kitchen.OrderItem{ID: uuid.New(), OrderID: order.ID, ProductName: "Balde", Quantity: 1}
	api := &fakeAPI{
		orders:     []kitchen.Order{order},
		items:      []kitchen.OrderItem{item},
		products:   products,
		categories: categories,
		recordErr:  map[uuid.UUID]error{beer.ID: &kitchen.StatusError{Code: 409, Message: "insufficient stock"}},
	}
	c, n, _, _ := startController(t, api, quietConfig())
	waitForOrders(t, c, 1)

	c.Trigger(order.ID)
	waitView(t, c, func(v kitchen.View) bool { return v.Dialog != nil && len(v.Dialog.Candidates) == 2 })
	c.Toggle(gelo.ID)
	c.Toggle(beer.ID)
	c.Confirm()

	require.Eventually(t, func() bool {
		return len(n.of(kitchen.NotifyIngredientRecorded)) == 1 && len(n.of(kitchen.NotifyIngredientError)) == 1
	}, waitFor, tick)
	assert.Len(t, api.records(), 2, "the failure does not stop the other request")

	errs := n.of(kitchen.NotifyIngredientError)
	assert.Equal(t, order.ID, errs[0].OrderID)
	assert.Error(t, errs[0].Err)
	assert.Empty(t, api.statuses(), "no status request on confirm with ingredients")
	assert.Nil(t, c.Snapshot().Dialog)
}

func TestController_PendingUntilListShowsNewStatus(t *testing.T) {
	order := testOrder(orderflow.StatusPreparing, orderflow.TypePickup, time.Now())
	api := &fakeAPI{orders: []kitchen.Order{order}}
	c, n, _, _ := startController(t, api, quietConfig())
	waitForOrders(t, c, 1)

	gate := make(chan struct{})
	api.set(func(f *fakeAPI) { f.ordersGate = gate })

	c.Trigger(order.ID)
	require.Eventually(t, func() bool { return len(n.of(kitchen.NotifyStatusUpdated)) == 1 }, waitFor, tick)

	// Acknowledged, but the refetch has not landed yet
	v := c.Snapshot()
	require.Len(t, v.Preparing, 1)
	assert.True(t, v.Preparing[0].Pending)

	c.Trigger(order.ID)
	assert.Never(t, func() bool { return len(api.statuses()) > 1 }, 50*time.Millisecond, tick)

	close(gate)

	v = waitView(t, c, func(v kitchen.View) bool { return len(v.Ready) == 1 })
	assert.False(t, v.Ready[0].Pending)
	assert.Equal(t, []statusCall{{order.ID, orderflow.StatusReady}}, api.statuses())
	assert.Empty(t, n.of(kitchen.NotifyStatusError))
}

func TestController_DuplicateTriggerWhilePending(t *testing.T) {
	order := testOrder(orderflow.StatusPreparing, orderflow.TypePickup, time.Now())
	gate := make(chan struct{})
	api := &fakeAPI{orders: []kitchen.Order{order}, statusGate: gate}
	c, _, _, _ := startController(t, api, quietConfig())
	waitForOrders(t, c, 1)

	c.Trigger(order.ID)
	c.Trigger(order.ID)
	c.Trigger(order.ID)

	require.Eventually(t, func() bool { return len(api.statuses()) == 1 }, waitFor, tick)
	v := c.Snapshot()
	require.Len(t, v.Preparing, 1)
	assert.True(t, v.Preparing[0].Pending)
	assert.Never(t, func() bool { return len(api.statuses()) > 1 }, 50*time.Millisecond, tick)

	close(gate)

	require.Eventually(t, func() bool {
		v := c.Snapshot()
		return len(v.Ready) == 1 && !v.Ready[0].Pending
	}, waitFor, tick)
	assert.Len(t, api.statuses(), 1)
}

func TestController_StatusFailureIsRetryable(t *testing.T) {
	order := testOrder(orderflow.StatusReady, orderflow.TypeCounter, time.Now())
	api := &fakeAPI{orders: []kitchen.Order{order}, statusErr: &kitchen.StatusError{Code: 500}}
	c, n, _, _ := startController(t, api, quietConfig())
	waitForOrders(t, c, 1)

	c.Trigger(order.ID)

	require.Eventually(t, func() bool { return len(n.of(kitchen.NotifyStatusError)) == 1 }, waitFor, tick)
	errs := n.of(kitchen.NotifyStatusError)
	assert.Equal(t, "error updating status", errs[0].Title)
	assert.Equal(t, order.ID, errs[0].OrderID)

	v := c.Snapshot()
	require.Len(t, v.Ready, 1, "order stays in its bucket")
	assert.False(t, v.Ready[0].Pending)

	api.set(func(f *fakeAPI) { f.statusErr = nil })
	c.Trigger(order.ID)

	require.Eventually(t, func() bool { return len(c.Snapshot().Done) == 1 }, waitFor, tick)
	assert.Equal(t, []statusCall{
		{order.ID, orderflow.StatusDelivered},
		{order.ID, orderflow.StatusDelivered},
	}, api.statuses())
}

func TestController_NoActionIsIgnored(t *testing.T) {
	delivery := testOrder(orderflow.StatusReady, orderflow.TypeDelivery, time.Now())
	done := testOrder(orderflow.StatusDelivered, orderflow.TypePickup, time.Now())
	api := &fakeAPI{orders: []kitchen.Order{delivery, done}}
	c, _, _, _ := startController(t, api, quietConfig())
	waitForOrders(t, c, 2)

	c.Trigger(delivery.ID)
	c.Trigger(done.ID)
	c.Trigger(uuid.New())
	c.Snapshot()

	assert.Never(t, func() bool { return len(api.statuses()) > 0 }, 50*time.Millisecond, tick)
}

func TestController_LiveEvents(t *testing.T) {
	order := testOrder(orderflow.StatusPreparing, orderflow.TypePickup, time.Now())
	api := &fakeAPI{orders: []kitchen.Order{order}}
	c, n, _, _ := startController(t, api, quietConfig())
	waitForOrders(t, c, 1)

	refetched := func(before int) func() bool {
		return func() bool {
			o, _ := api.counts()
			return o > before
		}
	}

	before, _ := api.counts()
	c.HandleEvent(orderflow.StatusChanged(order.ID, orderflow.StatusPreparing))
	require.Eventually(t, refetched(before), waitFor, tick)

	before, _ = api.counts()
	c.HandleEvent(orderflow.StatusChanged(order.ID, orderflow.StatusReady))
	require.Eventually(t, refetched(before), waitFor, tick)

	before, _ = api.counts()
	c.HandleEvent(orderflow.OrderCreated(uuid.New()))
	require.Eventually(t, refetched(before), waitFor, tick)

	c.Snapshot()
	assert.Len(t, n.of(kitchen.NotifyOrderReady), 1)
	assert.Len(t, n.of(kitchen.NotifyOrderQueued), 0)
	created := n.of(kitchen.NotifyOrderCreated)
	require.Len(t, created, 1)
	assert.Equal(t, kitchen.ToneMulti, created[0].Tone)
}

func TestController_PollIntervalFollowsConnection(t *testing.T) {
	cfg := kitchen.DefaultConfig()
	cfg.PollDisconnected = 20 * time.Millisecond
	cfg.PollConnected = time.Hour
	api := &fakeAPI{orders: []kitchen.Order{testOrder(orderflow.StatusAccepted, orderflow.TypePickup, time.Now())}}
	c, _, _, _ := startController(t, api, cfg)
	waitForOrders(t, c, 1)

	v := c.Snapshot()
	assert.False(t, v.Connected)
	assert.Equal(t, 20*time.Millisecond, v.PollInterval)

	// Polls while disconnected
	before, _ := api.counts()
	require.Eventually(t, func() bool {
		o, _ := api.counts()
		return o >= before+2
	}, waitFor, tick)

	c.SetConnected(true)
	v = c.Snapshot()
	assert.True(t, v.Connected)
	assert.Equal(t, time.Hour, v.PollInterval)

	// Let the reconnect refetch settle, then no more polling
	time.Sleep(50 * time.Millisecond)
	settled, _ := api.counts()
	assert.Never(t, func() bool {
		o, _ := api.counts()
		return o > settled
	}, 100*time.Millisecond, tick)

	c.SetConnected(false)
	assert.Equal(t, 20*time.Millisecond, c.Snapshot().PollInterval)
}

func TestController_ReadFailureKeepsView(t *testing.T) {
	order := testOrder(orderflow.StatusAccepted, orderflow.TypePickup, time.Now())
	api := &fakeAPI{orders: []kitchen.Order{order}}
	c, _, _, _ := startController(t, api, quietConfig())
	first := waitForOrders(t, c, 1)

	api.set(func(f *fakeAPI) { f.ordersErr = errors.New("connection refused") })
	before, _ := api.counts()
	c.Refresh()
	require.Eventually(t, func() bool {
		o, _ := api.counts()
		return o > before
	}, waitFor, tick)

	v := c.Snapshot()
	require.Len(t, v.Accepted, 1)
	assert.Equal(t, order.ID, v.Accepted[0].ID)
	assert.Equal(t, first.UpdatedAt, v.UpdatedAt)
}

func TestController_LateResponseAfterStop(t *testing.T) {
	order := testOrder(orderflow.StatusPreparing, orderflow.TypePickup, time.Now())
	gate := make(chan struct{})
	api := &fakeAPI{orders: []kitchen.Order{order}, statusGate: gate}
	c, n, cancel, errc := startController(t, api, quietConfig())
	waitForOrders(t, c, 1)

	c.Trigger(order.ID)
	require.Eventually(t, func() bool { return len(api.statuses()) == 1 }, waitFor, tick)

	cancel()
	select {
	case err := <-errc:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(waitFor):
		t.Fatal("Run did not return")
	}

	close(gate)
	require.Eventually(t, func() bool {
		api.mu.Lock()
		defer api.mu.Unlock()
		return api.orders[0].Status == orderflow.StatusReady
	}, waitFor, tick, "request is not retracted")

	api.mu.Lock()
	assert.NoError(t, api.ctxErrAfterGate, "request context outlives the view")
	api.mu.Unlock()

	assert.Equal(t, kitchen.View{}, c.Snapshot())
	assert.Empty(t, n.of(kitchen.NotifyStatusUpdated), "late response dropped")
}
