// Package bus fans normalized events out to in-process subscribers and
// connected WebSocket clients.
package bus

import (
	"sync"

	"github.com/flemzord/obgram/pkg/onebot"
)

// Bus delivers every published event to all registered subscribers, in
// registration order, on the publisher's goroutine. Subscribers must not
// block; slow consumers belong behind their own queue.
type Bus struct {
	mu   sync.RWMutex
	subs []func(*onebot.Event)
}

func New() *Bus {
	return &Bus{}
}

// Subscribe registers fn to receive all future events. There is no
// unsubscribe; subscribers live for the process lifetime.
func (b *Bus) Subscribe(fn func(*onebot.Event)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, fn)
}

// Publish delivers ev to every subscriber.
func (b *Bus) Publish(ev *onebot.Event) {
	b.mu.RLock()
	subs := b.subs
	b.mu.RUnlock()

	for _, fn := range subs {
		fn(ev)
	}
}
