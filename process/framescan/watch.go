package framescan

import (
	"context"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const (
	debounceTick   = 250 * time.Millisecond
	debounceSettle = 300 * time.Millisecond
)

// Watch emits the names of frame files created in dir once they have stopped
// changing. The channel closes when ctx is done or the watcher fails.
func Watch(ctx context.Context, dir string) (<-chan string, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, err
	}
	log.Printf("Watching %s (debounced) ...", dir)

	out := make(chan string, 256)
	go func() {
		defer close(out)
		defer w.Close()
		// pending maps names to their last write; emitted in first-seen order
		pending := map[string]time.Time{}
		var order []string
		ticker := time.NewTicker(debounceTick)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
					continue
				}
				name := filepath.Base(ev.Name)
				if !IsSupportedExt(name) {
					continue
				}
				if _, seen := pending[name]; !seen {
					if !ev.Has(fsnotify.Create) {
						continue
					}
					order = append(order, name)
				}
				pending[name] = time.Now()
			case <-ticker.C:
				now := time.Now()
				for len(order) > 0 {
					name := order[0]
					if now.Sub(pending[name]) <= debounceSettle {
						break
					}
					select {
					case out <- name:
					case <-ctx.Done():
						return
					}
					delete(pending, name)
					order = order[1:]
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Printf("watch error: %v", err)
			}
		}
	}()
	return out, nil
}
