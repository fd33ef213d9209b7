package render

import (
	"runtime"
	"sync"
)

// glThread serializes every SDL and OpenGL call onto one OS-thread-locked
// goroutine. A GL context is only current on the thread that made it
// current, and SDL video init/teardown is not thread-safe, so renderers
// owned by arbitrary goroutines (worker pools in particular) funnel all
// backend work through here.
var glThread = &renderThread{calls: make(chan func())}

type renderThread struct {
	start sync.Once
	calls chan func()
}

// do runs f on the render thread and blocks until it returns. Calls are
// executed one at a time in submission order.
func (t *renderThread) do(f func()) {
	t.start.Do(func() {
		go func() {
			runtime.LockOSThread()
			for call := range t.calls {
				call()
			}
		}()
	})

	done := make(chan struct{})
	t.calls <- func() {
		defer close(done)
		f()
	}
	<-done
}
