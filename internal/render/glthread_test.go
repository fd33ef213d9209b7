package render

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestRenderThreadDoWaits(t *testing.T) {
	ran := false
	glThread.do(func() { ran = true })
	if !ran {
		t.Error("do() returned before the call ran")
	}
}

func TestRenderThreadSerializes(t *testing.T) {
	var active int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			glThread.do(func() {
				if n := atomic.AddInt32(&active, 1); n != 1 {
					t.Errorf("%d calls active at once, want 1", n)
				}
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&active, -1)
			})
		}()
	}
	wg.Wait()
}
