package watch

import (
	"context"
	"time"

	"github.com/fsnotify/fsnotify"

	"pnl_dashboard/config"
	"pnl_dashboard/internal/sheets"
	"pnl_dashboard/logger"
	"pnl_dashboard/queue"
)

const (
	refreshRetryWindow   = 2 * time.Second
	refreshRetryInterval = 200 * time.Millisecond
)

// Invalidator is the cache side of the watcher, implemented by sheets.Cached.
type Invalidator interface {
	Invalidate(ctx context.Context, ref config.TableRef) error
	Refresh(ctx context.Context, ref config.TableRef) (sheets.Table, error)
}

// Watcher monitors the snapshot directory and drops the cached copy of a
// table whenever its <tab>.csv changes. When a queue is set, changed files
// are also re-read in the background.
type Watcher struct {
	dir    string
	tables config.Tables
	cache  Invalidator
	queue  *queue.Queue
	log    *logger.Entry
}

func New(dir string, tables config.Tables, cache Invalidator, q *queue.Queue) *Watcher {
	return &Watcher{dir: dir, tables: tables, cache: cache, queue: q, log: logger.GetLogger().WithComponent("watch")}
}

// Start begins watching until ctx is done.
func (w *Watcher) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(w.dir); err != nil {
		watcher.Close()
		return err
	}
	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-watcher.Events:
				if !ok {
					return
				}
				w.handle(ctx, evt)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				w.log.WithError(err).Warn("watcher error")
			}
		}
	}()
	w.log.WithField("dir", w.dir).Info("watching snapshots")
	return nil
}

// handle returns the tables an event touched.
func (w *Watcher) handle(ctx context.Context, evt fsnotify.Event) []config.TableRef {
	if !evt.Op.Has(fsnotify.Create) && !evt.Op.Has(fsnotify.Write) && !evt.Op.Has(fsnotify.Rename) && !evt.Op.Has(fsnotify.Remove) {
		return nil
	}
	tab, ok := sheets.TabForPath(evt.Name)
	if !ok {
		return nil
	}
	refs := w.refsForTab(tab)
	for _, ref := range refs {
		if err := w.cache.Invalidate(ctx, ref); err != nil {
			w.log.WithError(err).WithField("table", ref.Key()).Warn("invalidate failed")
			continue
		}
		w.log.WithFields(logger.Fields{"table": ref.Key(), "op": evt.Op.String()}).Info("snapshot changed")
		if w.queue != nil && !evt.Op.Has(fsnotify.Remove) && !evt.Op.Has(fsnotify.Rename) {
			w.enqueueRefresh(ctx, ref)
		}
	}
	return refs
}

func (w *Watcher) enqueueRefresh(ctx context.Context, ref config.TableRef) {
	job := queue.Job{
		ID:   "refresh:" + ref.Key(),
		Kind: "snapshot",
		Work: func(jobCtx context.Context) error {
			_, err := w.cache.Refresh(jobCtx, ref)
			return err
		},
	}
	w.queue.EnqueueWithRetry(ctx, job, refreshRetryWindow, refreshRetryInterval)
}

func (w *Watcher) refsForTab(tab string) []config.TableRef {
	var refs []config.TableRef
	seen := make(map[string]bool)
	for _, name := range w.tables.Names() {
		ref, _ := w.tables.Lookup(name)
		if ref.Tab != tab || seen[ref.Key()] {
			continue
		}
		seen[ref.Key()] = true
		refs = append(refs, ref)
	}
	return refs
}
