package locks

import (
	"context"
	"sync"
)

// LocalLocker is a keyed mutex for single-process deployments. A key's slot
// lives only while someone holds or waits for it.
type LocalLocker struct {
	mu    sync.Mutex
	slots map[string]*localSlot
}

type localSlot struct {
	held chan struct{}
	refs int
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{slots: make(map[string]*localSlot)}
}

// Lock blocks until key is free or ctx ends.
func (locker *LocalLocker) Lock(ctx context.Context, key string) (func(), error) {
	locker.mu.Lock()
	slot, ok := locker.slots[key]
	if !ok {
		slot = &localSlot{held: make(chan struct{}, 1)}
		locker.slots[key] = slot
	}
	slot.refs++
	locker.mu.Unlock()

	select {
	case slot.held <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-slot.held
				locker.release(key, slot)
			})
		}, nil
	case <-ctx.Done():
		locker.release(key, slot)
		return nil, ctx.Err()
	}
}

func (locker *LocalLocker) release(key string, slot *localSlot) {
	locker.mu.Lock()
	defer locker.mu.Unlock()
	slot.refs--
	if slot.refs == 0 {
		delete(locker.slots, key)
	}
}

func (locker *LocalLocker) keys() int {
	locker.mu.Lock()
	defer locker.mu.Unlock()
	return len(locker.slots)
}
