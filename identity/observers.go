package identity

import "sync"

// Observers is a registry of state observers. The zero value is ready to use.
type Observers struct {
	mu     sync.Mutex
	nextID int
	list   []observerEntry
}

type observerEntry struct {
	id int
	fn func(State)
}

func (o *Observers) Subscribe(observer func(State)) func() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.nextID++
	id := o.nextID
	o.list = append(o.list, observerEntry{id: id, fn: observer})

	var once sync.Once
	return func() {
		once.Do(func() {
			o.mu.Lock()
			defer o.mu.Unlock()
			for i, e := range o.list {
				if e.id == id {
					o.list = append(o.list[:i:i], o.list[i+1:]...)
					return
				}
			}
		})
	}
}

// Notify calls every observer with s. The registry lock is not held while observers run.
func (o *Observers) Notify(s State) {
	o.mu.Lock()
	snapshot := make([]observerEntry, len(o.list))
	copy(snapshot, o.list)
	o.mu.Unlock()

	for _, e := range snapshot {
		e.fn(s)
	}
}

func (o *Observers) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.list)
}
