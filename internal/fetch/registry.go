package fetch

import (
	"sort"
	"sync"
)

// Registry lazily creates one value per key. Lookup and insertion happen under a
// single lock so concurrent callers asking for the same key share one value.
type Registry[K comparable, V any] struct {
	mu     sync.Mutex
	items  map[K]V
	create func(K) V
}

// NewRegistry creates an empty registry that builds missing values with create.
func NewRegistry[K comparable, V any](create func(K) V) *Registry[K, V] {
	return &Registry[K, V]{items: make(map[K]V), create: create}
}

// Get returns the value for key, creating it on first use.
func (r *Registry[K, V]) Get(key K) V {
	r.mu.Lock()
	defer r.mu.Unlock()
	if v, ok := r.items[key]; ok {
		return v
	}
	v := r.create(key)
	r.items[key] = v
	return v
}

// Lookup returns the value for key without creating it.
func (r *Registry[K, V]) Lookup(key K) (V, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.items[key]
	return v, ok
}

// Len returns the number of values created so far.
func (r *Registry[K, V]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

// Keys returns the registered keys ordered by less.
func (r *Registry[K, V]) Keys(less func(a, b K) bool) []K {
	r.mu.Lock()
	keys := make([]K, 0, len(r.items))
	for k := range r.items {
		keys = append(keys, k)
	}
	r.mu.Unlock()
	sort.Slice(keys, func(i, j int) bool { return less(keys[i], keys[j]) })
	return keys
}
