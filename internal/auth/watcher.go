package auth

import "sync"

// Watcher pushes identity changes to the browser clients that asked for them.
// Every Subscribe must be paired with a call to the returned unsubscribe function.
type Watcher struct {
	mu     sync.RWMutex
	subs   map[string]map[int]func(*User)
	nextID int
}

func NewWatcher() *Watcher {
	return &Watcher{subs: make(map[string]map[int]func(*User))}
}

func (w *Watcher) Subscribe(clientID string, fn func(*User)) (unsubscribe func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	id := w.nextID
	w.nextID++
	if w.subs[clientID] == nil {
		w.subs[clientID] = make(map[int]func(*User))
	}
	w.subs[clientID][id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			w.mu.Lock()
			defer w.mu.Unlock()
			delete(w.subs[clientID], id)
			if len(w.subs[clientID]) == 0 {
				delete(w.subs, clientID)
			}
		})
	}
}

// Publish tells clientID's subscribers that the current identity is now u (nil after sign-out).
func (w *Watcher) Publish(clientID string, u *User) {
	w.mu.RLock()
	fns := make([]func(*User), 0, len(w.subs[clientID]))
	for _, fn := range w.subs[clientID] {
		fns = append(fns, fn)
	}
	w.mu.RUnlock()

	for _, fn := range fns {
		fn(u)
	}
}

// Subscribers returns the number of live subscriptions across all clients.
func (w *Watcher) Subscribers() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	n := 0
	for _, m := range w.subs {
		n += len(m)
	}
	return n
}
