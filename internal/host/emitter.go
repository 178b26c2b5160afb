package host

import (
	"slices"
	"sync"

	"github.com/samber/lo"

	"github.com/olivier-w/plyr/internal/player"
)

// Emitter fans now-playing broadcasts out to subscribers. It implements
// player.StatusSink and is safe for concurrent use.
type Emitter struct {
	mu   sync.Mutex
	next int
	subs map[int]func(player.Status)
	last *player.Status
}

// NewEmitter creates an emitter with no subscribers.
func NewEmitter() *Emitter {
	return &Emitter{subs: make(map[int]func(player.Status))}
}

// Subscribe registers fn and returns a function that removes it.
func (e *Emitter) Subscribe(fn func(player.Status)) (unsubscribe func()) {
	e.mu.Lock()
	id := e.next
	e.next++
	e.subs[id] = fn
	e.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			delete(e.subs, id)
			e.mu.Unlock()
		})
	}
}

// Publish delivers s to every subscriber in subscription order.
func (e *Emitter) Publish(s player.Status) {
	e.mu.Lock()
	e.last = &s
	ids := lo.Keys(e.subs)
	slices.Sort(ids)
	fns := lo.Map(ids, func(id int, _ int) func(player.Status) { return e.subs[id] })
	e.mu.Unlock()

	for _, fn := range fns {
		fn(s)
	}
}

// Last returns the most recent broadcast, if any.
func (e *Emitter) Last() (player.Status, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.last == nil {
		return player.Status{}, false
	}
	return *e.last, true
}
