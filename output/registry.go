// SPDX-License-Identifier: EPL-2.0

package output

import (
	"fmt"
	"slices"
	"sync"
)

// Registry for backends by name (e.g., "oto", "portaudio").
type Registry struct {
	backends map[string]Backend

	mtx *sync.Mutex
}

func NewRegistry() *Registry {
	return &Registry{
		backends: make(map[string]Backend),
		mtx:      &sync.Mutex{},
	}
}

func (r *Registry) Register(name string, b Backend) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	r.backends[name] = b
}

func (r *Registry) Get(name string) (Backend, bool) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	b, ok := r.backends[name]

	return b, ok
}

// Lookup is Get with an error naming the known backends.
func (r *Registry) Lookup(name string) (Backend, error) {
	if b, ok := r.Get(name); ok {
		return b, nil
	}

	return nil, fmt.Errorf("%w: %q (have %v)", ErrUnknownBackend, name, r.Names())
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	names := make([]string, 0, len(r.backends))
	for n := range r.backends {
		names = append(names, n)
	}
	slices.Sort(names)

	return names
}
