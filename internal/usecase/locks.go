package usecase

import (
	"sync"
)

// KeyedMutex serializes work per key. Chat events lock the customer while
// resolving the session and then the conversation id; provider callbacks
// take the conversation lock only. Sharing one lock per conversation
// prevents lost context updates and double ride creation when a webhook
// retry races the customer's next message.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

// NewKeyedMutex creates an empty lock table.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*entry)}
}

// Lock acquires the lock for key and returns the matching unlock func.
// Entries are dropped once the last holder releases, so the table does not
// grow with conversation churn.
func (k *KeyedMutex) Lock(key string) func() {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &entry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()
		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
