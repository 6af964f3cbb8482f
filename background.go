package fluidgen

import (
	"context"
	"sync"
)

// BackgroundTasks collects work to run after the response has been written.
// Declare a *BackgroundTasks field in a request struct to receive the
// request's task list.
type BackgroundTasks struct {
	mu    sync.Mutex
	tasks []func(context.Context)
}

// Add queues fn to run after the response.
func (b *BackgroundTasks) Add(fn func(context.Context)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tasks = append(b.tasks, fn)
}

// Len returns the number of queued tasks.
func (b *BackgroundTasks) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.tasks)
}

func (b *BackgroundTasks) run(ctx context.Context) {
	b.mu.Lock()
	tasks := b.tasks
	b.tasks = nil
	b.mu.Unlock()
	for _, fn := range tasks {
		fn(ctx)
	}
}
