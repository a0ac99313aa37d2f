// Package watch is the thin fsnotify-backed adapter spec.md §1 allows as
// an "external collaborator": it does not implement any watching logic
// of its own (no debounce, no ignore-pattern engine — fsnotify already
// does that), it only translates a changed-file event into the one
// operation spec.md §4.9 actually names for this purpose,
// module.Module.Reset(initial), followed by re-enqueuing the module on
// the Builder's queue.
//
// Grounded on bennypowers-cem's internal/platform/filewatcher.go: the
// same fsnotify.Watcher-wrapped-in-a-goroutine shape, trimmed to the one
// thing this core's Builder needs (resolve path -> Module, reset,
// re-enqueue) rather than that file's full mockable FileWatcher
// interface, since this package has no CLI/test-double surface to
// support — it is driven directly by the Builder.
package watch

import (
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/tpack-go/tpack/internal/build"
	"github.com/tpack-go/tpack/internal/module"
)

// Watcher watches the original paths of a set of modules and, on a
// write/create event, resets the corresponding Module to StateInitial
// and re-enqueues it on the Builder (spec.md §4.9: "used by the external
// watcher").
type Watcher struct {
	builder *build.Builder
	fsw     *fsnotify.Watcher

	mu     sync.Mutex
	closed bool
	done   chan struct{}
	wg     sync.WaitGroup

	// OnReset, if set, is called after a module is reset and
	// re-enqueued, letting a caller (e.g. internal/devserver) react to
	// the specific module that changed.
	OnReset func(*module.Module)
}

// New creates a Watcher bound to b. Call Add for each original path that
// should trigger a reset, then Start to begin translating events.
func New(b *build.Builder) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		builder: b,
		fsw:     fsw,
		done:    make(chan struct{}),
	}, nil
}

// Add starts watching path on disk.
func (w *Watcher) Add(path string) error {
	return w.fsw.Add(path)
}

// Start launches the event-translation goroutine. Safe to call once.
func (w *Watcher) Start() {
	w.wg.Add(1)
	go w.run()
}

func (w *Watcher) run() {
	defer w.wg.Done()
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.handle(ev.Name)
		case _, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
		case <-w.done:
			return
		}
	}
}

func (w *Watcher) handle(path string) {
	m, ok := w.builder.Resolver().Lookup(path)
	if !ok {
		return
	}
	m.Reset(module.StateInitial)
	w.builder.Enqueue(m)
	if w.OnReset != nil {
		w.OnReset(m)
	}
}

// Close stops the watcher and releases the underlying fsnotify handle.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.done)
	w.mu.Unlock()

	w.wg.Wait()
	return w.fsw.Close()
}
