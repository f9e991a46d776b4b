// Package locks serializes check-then-mutate claim paths per key (account id
// or cheque id). Operations on different keys stay fully parallel.
package locks

import "sync"

type KeyedMutex struct {
	mus sync.Map
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{}
}

// Lock acquires the mutex for key and returns its unlock func.
func (k *KeyedMutex) Lock(key string) func() {
	v, _ := k.mus.LoadOrStore(key, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
