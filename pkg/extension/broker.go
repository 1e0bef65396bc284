package extension

import (
	"slices"
	"sync"
)

// listeners is an ordered, named list of listener funcs of type F.
type listeners[F any] struct {
	sync.RWMutex
	names []string
	funcs []F
}

// add registers the named listener, replacing one with a duplicate name if present.
func (ls *listeners[F]) add(name string, f F) {
	ls.Lock()
	defer ls.Unlock()

	ls.lockedRemove(name)
	ls.names = append(ls.names, name)
	ls.funcs = append(ls.funcs, f)
}

func (ls *listeners[F]) remove(name string) {
	ls.Lock()
	defer ls.Unlock()

	ls.lockedRemove(name)
}

func (ls *listeners[F]) lockedRemove(name string) {
	if i := slices.Index(ls.names, name); i >= 0 {
		ls.names = slices.Delete(ls.names, i, i+1)
		ls.funcs = slices.Delete(ls.funcs, i, i+1)
	}
}

// EventBroker maintains a list of listeners interested in a specific type of event.  Listeners
// may return a result of type R.
type EventBroker[E any, R any] struct {
	listeners[func(E) *R]
}

// Emit sends the provided event to each registered listener in order, until one returns a non-nil
// result.  That result will be returned to the caller.
func (eb *EventBroker[E, R]) Emit(event *E) *R {
	eb.RLock()
	defer eb.RUnlock()

	for _, l := range eb.funcs {
		// Events are copied to minimize the risk of mutation.
		if result := l(*event); result != nil {
			return result
		}
	}

	return nil
}

// AddListener registers the named listener, replacing one with a duplicate name if present.
// Listeners should be added in order of priority, most significant first.
func (eb *EventBroker[E, R]) AddListener(name string, listener func(E) *R) {
	eb.add(name, listener)
}

// RemoveListener unregisters the named listener.
func (eb *EventBroker[E, R]) RemoveListener(name string) {
	eb.remove(name)
}
