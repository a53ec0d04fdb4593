package pubsub

import (
	"log"
	"sync"
	"sync/atomic"
)

// EventType identifies a kind of event. Packages publishing on the bus declare their own constants of this type.
type EventType int

// SubscriptionOptions configures how the broker delivers to one subscriber.
type SubscriptionOptions struct {
	// IsBlocking makes the broker wait for room in the subscriber's channel instead of dropping the event. A slow
	// blocking subscriber stalls every other subscriber, so this should generally be false.
	IsBlocking bool
}

// SubscriberID is returned by Subscribe and is required to Unsubscribe.
type SubscriberID uint64

var nextSubscriberID atomic.Uint64

// Event carries a typed payload. Event[A] and Event[B] are distinct types, so a subscriber only ever receives the
// payload type it asked for.
type Event[T any] struct {
	Type    EventType
	Payload T
}

// NewEvent builds an Event for Publish.
func NewEvent[T any](eventType EventType, payload T) *Event[T] {
	return &Event[T]{Type: eventType, Payload: payload}
}

// subscriber hides the concrete channel type behind closures so subscribers of different payload types share one
// registry.
type subscriber struct {
	send    func(eventType EventType, payload any) bool
	close   func()
	options SubscriptionOptions
	dropped atomic.Uint64
}

type message struct {
	eventType EventType
	payload   any
}

// PubSubClient is a thread-safe, in-process publish/subscribe broker. Published events are queued and fanned out by a
// single broker goroutine.
type PubSubClient struct {
	mu sync.RWMutex
	wg sync.WaitGroup

	registry map[EventType]map[SubscriberID]*subscriber
	// Buffered so Publish returns without waiting for the fan-out of earlier events.
	publishChan  chan message
	shuttingDown atomic.Bool
}

// Subscribe registers ch for events of eventType. The caller owns the channel and picks its buffer size.
//
// Go methods cannot declare type parameters, so this is a free function taking the client.
func Subscribe[T any](p *PubSubClient, eventType EventType, ch chan *Event[T], opts SubscriptionOptions) SubscriberID {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := SubscriberID(nextSubscriberID.Add(1))
	sub := &subscriber{
		options: opts,
		send: func(evType EventType, payload any) bool {
			typed, ok := payload.(T)
			if !ok {
				log.Printf("[PubSubClient] Warning: type mismatch for event %v. Expected %T, got %T", evType, *new(T), payload)
				return false
			}
			event := &Event[T]{Type: evType, Payload: typed}
			if opts.IsBlocking {
				ch <- event
				return true
			}
			select {
			case ch <- event:
				return true
			default:
				return false
			}
		},
		close: func() { close(ch) },
	}

	if _, ok := p.registry[eventType]; !ok {
		p.registry[eventType] = make(map[SubscriberID]*subscriber)
	}
	p.registry[eventType][id] = sub
	return id
}

// Unsubscribe removes the subscriber and closes its channel.
func (p *PubSubClient) Unsubscribe(eventType EventType, id SubscriberID) {
	p.mu.Lock()
	defer p.mu.Unlock()

	subscribers, ok := p.registry[eventType]
	if !ok {
		return
	}
	sub, ok := subscribers[id]
	if !ok {
		return
	}
	delete(subscribers, id)
	sub.close()
	if len(subscribers) == 0 {
		delete(p.registry, eventType)
	}
}

// Publish queues event for delivery. Events published after shutdown has begun are dropped.
func Publish[T any](p *PubSubClient, event *Event[T]) {
	// Holding the read lock keeps a concurrent shutdown from closing publishChan between the check and the send.
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.shuttingDown.Load() {
		log.Printf("[PubSubClient] Warning: dropping event %v, broker is shutting down", event.Type)
		return
	}
	p.publishChan <- message{eventType: event.Type, payload: event.Payload}
}

// Dropped reports how many events a non-blocking subscriber missed because its channel was full.
func (p *PubSubClient) Dropped(eventType EventType, id SubscriberID) uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if sub, ok := p.registry[eventType][id]; ok {
		return sub.dropped.Load()
	}
	return 0
}

// GracefulShutdown stops accepting events, delivers everything already queued and waits for the broker to exit.
// Calling it more than once is safe.
func (p *PubSubClient) GracefulShutdown() {
	p.mu.Lock()
	if p.shuttingDown.Swap(true) {
		p.mu.Unlock()
		p.wg.Wait()
		return
	}
	close(p.publishChan)
	// Unlock before waiting, run() needs the read lock to drain.
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *PubSubClient) run() {
	defer p.wg.Done()

	for msg := range p.publishChan {
		p.mu.RLock()
		for id, sub := range p.registry[msg.eventType] {
			if !sub.send(msg.eventType, msg.payload) && !sub.options.IsBlocking {
				dropped := sub.dropped.Add(1)
				log.Printf("[PubSubClient] Dropped event %v for subscriber %d (channel full). Total dropped: %d",
					msg.eventType, id, dropped)
			}
		}
		p.mu.RUnlock()
	}
}

// NewPubSub creates a broker and starts its fan-out goroutine.
func NewPubSub() *PubSubClient {
	p := &PubSubClient{
		registry:    make(map[EventType]map[SubscriberID]*subscriber),
		publishChan: make(chan message, 100),
	}
	p.wg.Add(1)
	go p.run()
	return p
}
