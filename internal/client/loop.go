// Package client holds the chat client's state and the controller that
// drives it: session, provider/model selection, link status and the
// rendered chat log.
package client

import "context"

// Scheduler runs controller work on a single owner goroutine.
type Scheduler interface {
	// Post queues fn to run on the owner goroutine.
	Post(fn func())
	// Await runs work off the owner goroutine, then posts then.
	Await(work func(), then func())
	// Go runs fn on its own goroutine.
	Go(fn func())
}

// Loop is a Scheduler backed by one goroutine draining a task queue.
type Loop struct {
	tasks chan func()
	done  chan struct{}
}

// NewLoop returns a Loop. Nothing runs until Run is called.
func NewLoop() *Loop {
	return &Loop{
		tasks: make(chan func(), 64),
		done:  make(chan struct{}),
	}
}

// Run drains tasks until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) {
	defer close(l.done)
	for {
		select {
		case fn := <-l.tasks:
			fn()
		case <-ctx.Done():
			return
		}
	}
}

// Post implements Scheduler. Tasks posted after Run returns are dropped.
func (l *Loop) Post(fn func()) {
	select {
	case l.tasks <- fn:
	case <-l.done:
	}
}

// Await implements Scheduler.
func (l *Loop) Await(work func(), then func()) {
	go func() {
		work()
		l.Post(then)
	}()
}

// Go implements Scheduler.
func (l *Loop) Go(fn func()) {
	go fn()
}

// Call runs fn on the loop and waits for it to finish.
func (l *Loop) Call(fn func()) {
	finished := make(chan struct{})
	l.Post(func() {
		defer close(finished)
		fn()
	})
	select {
	case <-finished:
	case <-l.done:
	}
}
