// Package notify delivers configuration reload events to observers.
//
// The app layer publishes one Change per reload attempt, successful or not.
// Observers run on the publishing goroutine unless the notifier was built
// WithAsync, in which case a single goroutine delivers changes in order.
package notify

import (
	"sync"
	"time"
)

// ChangeType represents the outcome of a reload attempt.
type ChangeType int

const (
	// ChangeReload indicates a new configuration took effect.
	ChangeReload ChangeType = iota

	// ChangeFailed indicates a reload failed and the previous
	// configuration stayed in effect.
	ChangeFailed

	// ChangeFallback indicates the configuration could not be loaded and
	// only built-in actions are available.
	ChangeFallback
)

// String returns the change type name.
func (c ChangeType) String() string {
	switch c {
	case ChangeReload:
		return "reload"
	case ChangeFailed:
		return "failed"
	case ChangeFallback:
		return "fallback"
	default:
		return "unknown"
	}
}

// Change describes one reload attempt.
type Change struct {
	Type ChangeType

	// Source identifies what triggered the reload, such as "startup",
	// "manual" or a watched file path.
	Source string

	// Actions is the number of registered actions after the attempt.
	Actions int

	// Warnings are non-fatal problems reported while loading.
	Warnings []string

	// Err is set for ChangeFailed and ChangeFallback.
	Err error

	Time time.Time
}

// Observer is called for each change.
type Observer func(change Change)

// Subscription represents an active observer subscription.
type Subscription struct {
	id       uint64
	notifier *Notifier
}

// Unsubscribe removes this subscription.
func (s *Subscription) Unsubscribe() {
	if s != nil && s.notifier != nil {
		s.notifier.unsubscribe(s.id)
	}
}

// Notifier manages reload subscriptions.
type Notifier struct {
	mu        sync.RWMutex
	observers map[uint64]Observer
	nextID    uint64

	async  bool
	buffer chan Change
	done   chan struct{}
	wg     sync.WaitGroup
	closed bool
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithAsync enables asynchronous notification delivery.
func WithAsync(bufferSize int) Option {
	return func(n *Notifier) {
		if bufferSize > 0 {
			n.async = true
			n.buffer = make(chan Change, bufferSize)
		}
	}
}

// New creates a new Notifier.
func New(opts ...Option) *Notifier {
	n := &Notifier{
		observers: make(map[uint64]Observer),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.async {
		n.wg.Add(1)
		go n.processAsync()
	}
	return n
}

// Subscribe registers an observer for all changes.
func (n *Notifier) Subscribe(observer Observer) *Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.nextID
	n.nextID++
	n.observers[id] = observer
	return &Subscription{id: id, notifier: n}
}

// Notify sends a change to every observer. A zero Time is set to now.
func (n *Notifier) Notify(change Change) {
	n.mu.RLock()
	closed := n.closed
	n.mu.RUnlock()
	if closed {
		return
	}
	if change.Time.IsZero() {
		change.Time = time.Now()
	}

	if n.async {
		select {
		case n.buffer <- change:
		case <-n.done:
		}
		return
	}
	n.deliver(change)
}

// Close shuts down the notifier, delivering anything still buffered. It
// is safe to call Close multiple times.
func (n *Notifier) Close() {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.closed = true
	n.mu.Unlock()

	close(n.done)
	n.wg.Wait()
}

func (n *Notifier) unsubscribe(id uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.observers, id)
}

func (n *Notifier) deliver(change Change) {
	n.mu.RLock()
	observers := make([]Observer, 0, len(n.observers))
	for _, obs := range n.observers {
		observers = append(observers, obs)
	}
	n.mu.RUnlock()

	// Call observers outside the lock
	for _, obs := range observers {
		obs(change)
	}
}

func (n *Notifier) processAsync() {
	defer n.wg.Done()

	for {
		select {
		case change := <-n.buffer:
			n.deliver(change)
		case <-n.done:
			// Drain remaining buffered changes
			for {
				select {
				case change := <-n.buffer:
					n.deliver(change)
				default:
					return
				}
			}
		}
	}
}
