package listener

import "sync"

// Queue holds continuations deferred to the next turn. Posted work runs
// when the owner calls Drain: after the current synchronous phase and
// before the next external event is handled. Work posted while draining
// waits for the following Drain.
type Queue struct {
	mu    sync.Mutex
	tasks []func()
}

func (q *Queue) Post(fn func()) {
	q.mu.Lock()
	q.tasks = append(q.tasks, fn)
	q.mu.Unlock()
}

// Drain runs the tasks queued so far and returns how many ran.
func (q *Queue) Drain() int {
	q.mu.Lock()
	tasks := q.tasks
	q.tasks = nil
	q.mu.Unlock()

	for _, fn := range tasks {
		fn()
	}
	return len(tasks)
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}
