// Package events fans committed order mutations out to every live sink.
package events

import "github.com/vibedrinks/api/internal/orderflow"

// Publisher receives order events after the mutation that produced them has
// been committed. Implementations must not block the caller for long.
type Publisher interface {
	Publish(ev orderflow.Event)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ev orderflow.Event)

func (f PublisherFunc) Publish(ev orderflow.Event) { f(ev) }

// Fanout publishes every event to each of its publishers in order.
type Fanout []Publisher

func (f Fanout) Publish(ev orderflow.Event) {
	for _, p := range f {
		if p != nil {
			p.Publish(ev)
		}
	}
}

// Discard drops every event.
var Discard Publisher = PublisherFunc(func(orderflow.Event) {})
