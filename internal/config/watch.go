// SPDX-License-Identifier: MIT
package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"audiowheel/internal/log"
	"audiowheel/internal/settings"

	"github.com/fsnotify/fsnotify"
)

// reloadDelay collapses the burst of events an editor save produces.
const reloadDelay = 100 * time.Millisecond

// Watch reloads path whenever it changes and pushes its spectrum section
// into store. It blocks until ctx is cancelled.
//
// The directory is watched rather than the file so saves that replace the
// file are seen. A reload that fails to parse or validate is logged and the
// store keeps its current settings. A sampling rate of 0 in the file keeps
// the rate the store is running with.
func Watch(ctx context.Context, path string, store *settings.Store) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config watcher: %w", err)
	}
	defer watcher.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("config watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("config watcher: watch %s: %w", filepath.Dir(abs), err)
	}
	log.Infof("Config: watching %s for changes", abs)

	reload := time.NewTimer(reloadDelay)
	reload.Stop()
	defer reload.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				reload.Reset(reloadDelay)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warnf("Config: watcher error: %v", err)

		case <-reload.C:
			if err := Reload(abs, store); err != nil {
				log.Warnf("Config: reload of %s rejected: %v", abs, err)
				continue
			}
			log.Infof("Config: reloaded spectrum settings from %s", abs)
		}
	}
}

// Reload reads path once and replaces the store's settings with its
// spectrum section.
func Reload(path string, store *settings.Store) error {
	cfg := Defaults()
	if err := cfg.readFile(path); err != nil {
		return err
	}
	next := cfg.Spectrum
	if next.SamplingRate == 0 {
		next.SamplingRate = store.Snapshot().SamplingRate
	}
	return store.Replace(next)
}
