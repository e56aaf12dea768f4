// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"context"
	"log/slog"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads the configuration file when it changes on disk.
//
// Description:
//
//	Watches a single config file and delivers validated snapshots to
//	the callback. A file that fails to parse is logged and skipped;
//	the previous configuration stays in effect.
//
// Thread Safety: Safe for concurrent use. Start should be called once.
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	callback func(*Config)
}

// NewWatcher creates a watcher for the given config file.
//
// Inputs:
//
//	path     - Config file path. Must not be empty.
//	callback - Invoked with each successfully reloaded snapshot.
//
// Outputs:
//
//	*Watcher - Ready-to-start watcher.
//	error    - Non-nil if the underlying watcher cannot be created.
func NewWatcher(path string, callback func(*Config)) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		path:     path,
		watcher:  watcher,
		callback: callback,
	}, nil
}

// Start begins watching for config changes.
//
// Description:
//
//	Blocks until the context is cancelled. Should be run in a
//	goroutine.
//
// Example:
//
//	w, _ := config.NewWatcher(path, svc.ApplyConfig)
//	go w.Start(ctx)
func (w *Watcher) Start(ctx context.Context) {
	if err := w.watcher.Add(w.path); err != nil {
		slog.Warn("failed to watch config file",
			slog.String("path", w.path),
			slog.String("error", err.Error()))
		return
	}

	slog.Debug("watching config file", slog.String("path", w.path))

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("config watcher error", slog.String("error", err.Error()))

		case <-ctx.Done():
			slog.Debug("config watcher stopping")
			return
		}
	}
}

// handleEvent processes a single fsnotify event.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	// Editors rewrite via rename+create as often as plain writes.
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}

	cfg, err := Load(w.path)
	if err != nil {
		slog.Warn("config reload failed, keeping previous configuration",
			slog.String("path", w.path),
			slog.String("error", err.Error()))
		return
	}

	configReloads.Inc()
	slog.Info("configuration reloaded", slog.String("path", w.path))

	if w.callback != nil {
		w.callback(cfg)
	}
}

// Stop stops the watcher. Safe to call multiple times.
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}
