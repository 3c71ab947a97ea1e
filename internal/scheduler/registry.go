package scheduler

import (
	"context"
	"sync"
)

// Registry tracks running scheduler tasks by key. Starting a task under a key
// that is already running cancels the old task and waits for it to exit
// before launching the replacement, so a re-submitted ride window never has
// two collectors racing each other.
type Registry struct {
	mu    sync.Mutex
	tasks map[string]*task
}

type task struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// NewRegistry creates an empty task registry.
func NewRegistry() *Registry {
	return &Registry{tasks: make(map[string]*task)}
}

// Start runs fn in a new goroutine registered under key. Any existing task
// with the same key is cancelled and awaited first. The task's context is
// derived from parent; when fn returns, the registration is removed.
func (r *Registry) Start(parent context.Context, key string, fn func(ctx context.Context)) {
	r.mu.Lock()
	// Another Start for the same key may have registered a fresh task while
	// the lock was released to await the old one, so re-check until the slot
	// is actually free.
	for {
		old, ok := r.tasks[key]
		if !ok {
			break
		}
		old.cancel()
		r.mu.Unlock()
		<-old.done
		r.mu.Lock()
	}

	ctx, cancel := context.WithCancel(parent)
	t := &task{cancel: cancel, done: make(chan struct{})}
	r.tasks[key] = t
	r.mu.Unlock()

	go func() {
		// The registration is removed before done is signalled, so anyone
		// who observed done closed will not find this task in the map.
		defer func() {
			cancel()
			r.mu.Lock()
			if r.tasks[key] == t {
				delete(r.tasks, key)
			}
			r.mu.Unlock()
			close(t.done)
		}()
		fn(ctx)
	}()
}

// Stop cancels the task registered under key, if any, and waits for it to
// exit. Returns whether a task was running.
func (r *Registry) Stop(key string) bool {
	r.mu.Lock()
	t, ok := r.tasks[key]
	r.mu.Unlock()
	if !ok {
		return false
	}
	t.cancel()
	<-t.done
	return true
}

// StopAll cancels every running task and waits for all of them to exit.
// Used during graceful shutdown.
func (r *Registry) StopAll() {
	r.mu.Lock()
	running := make([]*task, 0, len(r.tasks))
	for _, t := range r.tasks {
		t.cancel()
		running = append(running, t)
	}
	r.mu.Unlock()

	for _, t := range running {
		<-t.done
	}
}

// Len reports the number of currently registered tasks.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tasks)
}
