package watcher_test

import (
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/mk/internal/adapters/watcher"
)

type batches struct {
	mu  sync.Mutex
	got [][]string
}

func (b *batches) add(paths []string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.got = append(b.got, paths)
}

func (b *batches) all() [][]string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.got
}

func TestDebouncer_CoalescesWithinWindow(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		var b batches
		d := watcher.NewDebouncer(100*time.Millisecond, b.add)

		d.Add("src/b.c")
		time.Sleep(60 * time.Millisecond)
		d.Add("src/a.c")
		d.Add("src/b.c")
		time.Sleep(60 * time.Millisecond)
		synctest.Wait()
		assert.Empty(t, b.all(), "every add restarts the window")

		time.Sleep(50 * time.Millisecond)
		synctest.Wait()

		require.Len(t, b.all(), 1)
		assert.Equal(t, []string{"src/a.c", "src/b.c"}, b.all()[0])
	})
}

func TestDebouncer_SeparateWindows(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		var b batches
		d := watcher.NewDebouncer(50*time.Millisecond, b.add)

		d.Add("one")
		time.Sleep(100 * time.Millisecond)
		d.Add("two")
		time.Sleep(100 * time.Millisecond)
		synctest.Wait()

		assert.Equal(t, [][]string{{"one"}, {"two"}}, b.all())
	})
}

func TestDebouncer_Flush(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		var b batches
		d := watcher.NewDebouncer(time.Second, b.add)

		d.Add("x")
		d.Flush()
		assert.Equal(t, [][]string{{"x"}}, b.all())

		time.Sleep(2 * time.Second)
		synctest.Wait()
		assert.Len(t, b.all(), 1, "a flushed window does not fire again")

		d.Flush()
		assert.Len(t, b.all(), 1, "nothing pending, nothing delivered")
	})
}

func TestDebouncer_Stop(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		var b batches
		d := watcher.NewDebouncer(50*time.Millisecond, b.add)

		d.Add("dropped")
		d.Stop()
		time.Sleep(100 * time.Millisecond)
		synctest.Wait()

		assert.Empty(t, b.all())
	})
}
