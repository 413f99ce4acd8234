package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

const minSettleTick = 50 * time.Millisecond

// Watch merges every call log or activity export dropped into the inbox once
// it has stopped changing for the configured settle delay. Files already in the inbox are
// merged first. It returns when ctx is done.
func (a *App) Watch(ctx context.Context) error {
	dir := a.cfg.Inbox
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return fmt.Errorf("failed to create inbox: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	pending, err := backfill(dir)
	if err != nil {
		return err
	}
	fmt.Printf("Watching %s (%d file(s) waiting)\n", dir, len(pending))

	tick := a.cfg.SettleDelay / 4
	if tick < minSettleTick {
		tick = minSettleTick
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) {
				if isCallLog(ev.Name) || isActivityExport(ev.Name) {
					pending[ev.Name] = time.Now()
				}
			}
			if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
				delete(pending, ev.Name)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("watcher error: %v", err)
		case now := <-ticker.C:
			for _, path := range settled(pending, now, a.cfg.SettleDelay) {
				delete(pending, path)
				a.mergeInbox(ctx, path)
			}
		}
	}
}

func (a *App) mergeInbox(ctx context.Context, path string) {
	merge := a.Merge
	if isActivityExport(path) {
		merge = a.MergeActivity
	}
	res, err := merge(ctx, path, false)
	switch {
	case errors.Is(err, ErrAlreadyMerged):
		log.Printf("skipping %s: already merged", filepath.Base(path))
	case err != nil:
		log.Printf("failed to merge %s: %v", filepath.Base(path), err)
	default:
		PrintMergeResult(res)
	}
}

// backfill returns the files already in dir as settled.
func backfill(dir string) (map[string]time.Time, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read inbox: %w", err)
	}

	pending := make(map[string]time.Time)
	for _, e := range entries {
		path := filepath.Join(dir, e.Name())
		if e.IsDir() || !(isCallLog(path) || isActivityExport(path)) {
			continue
		}
		pending[path] = time.Time{}
	}
	return pending, nil
}

// settled lists, in name order, the files untouched for at least delay.
func settled(pending map[string]time.Time, now time.Time, delay time.Duration) []string {
	var ready []string
	for path, seen := range pending {
		if now.Sub(seen) >= delay {
			ready = append(ready, path)
		}
	}
	sort.Strings(ready)
	return ready
}

// isCallLog skips editor lock files and hidden files.
func isCallLog(path string) bool {
	base := filepath.Base(path)
	if hidden(base) {
		return false
	}
	switch strings.ToLower(filepath.Ext(base)) {
	case ".xlsx", ".xlsm", ".csv":
		return true
	}
	return false
}

func isActivityExport(path string) bool {
	base := filepath.Base(path)
	return !hidden(base) && strings.EqualFold(filepath.Ext(base), ".xml")
}

func hidden(base string) bool {
	return strings.HasPrefix(base, "~$") || strings.HasPrefix(base, ".")
}
