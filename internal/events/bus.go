// Package events provides the named-signal bus shared by the preview
// components and the host page.
package events

import (
	"sync"

	"github.com/google/uuid"
)

// Signal names emitted by the preview engine.
const (
	PostDataLoaded      = "RefresherPostDataLoaded"
	PostCommentIDLoaded = "RefresherPostCommentIDLoaded"
	RefreshRequest      = "refreshRequest"
	ContentPreview      = "contentPreview"
)

// Handler is invoked with the arguments passed to Emit.
type Handler func(args ...any)

// Emitter is the subset of Bus the preview components depend on.
type Emitter interface {
	Emit(name string, args ...any)
}

type subscription struct {
	id      string
	name    string
	once    bool
	handler Handler
}

// Bus is an in-process publish/subscribe bus. Handlers run in registration
// order, outside the bus lock.
type Bus struct {
	mu   sync.Mutex
	subs []*subscription
	wg   sync.WaitGroup
}

// NewBus returns an empty bus.
func NewBus() *Bus { return &Bus{} }

// On registers handler for name and returns the subscription id. A once
// handler is removed before its first invocation.
func (b *Bus) On(name string, handler Handler, once bool) string {
	if handler == nil {
		return ""
	}
	id := uuid.NewString()
	b.mu.Lock()
	b.subs = append(b.subs, &subscription{id: id, name: name, once: once, handler: handler})
	b.mu.Unlock()
	return id
}

// Off removes a subscription and reports whether it existed.
func (b *Bus) Off(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return true
		}
	}
	return false
}

// Emit synchronously invokes every handler registered for name.
func (b *Bus) Emit(name string, args ...any) {
	b.mu.Lock()
	var handlers []Handler
	kept := b.subs[:0]
	for _, s := range b.subs {
		if s.name == name {
			handlers = append(handlers, s.handler)
			if s.once {
				continue
			}
		}
		kept = append(kept, s)
	}
	for i := len(kept); i < len(b.subs); i++ {
		b.subs[i] = nil
	}
	b.subs = kept
	b.mu.Unlock()

	for _, h := range handlers {
		h(args...)
	}
}

// EmitNextTick emits on a new goroutine. Wait blocks until it has run.
func (b *Bus) EmitNextTick(name string, args ...any) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.Emit(name, args...)
	}()
}

// Wait blocks until every EmitNextTick dispatched so far has completed.
func (b *Bus) Wait() { b.wg.Wait() }

// Count returns the number of handlers registered for name.
func (b *Bus) Count(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, s := range b.subs {
		if s.name == name {
			n++
		}
	}
	return n
}
