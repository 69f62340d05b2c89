package main

import (
	"log"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/tmarken/hearth_bbs/internal/store"
)

// watchHARecords invalidates the cached home-automation config when the
// record files under data/ha change on disk, so edits made by the admin
// tool or by hand take effect without a restart. The returned stop
// function shuts the watcher down.
func watchHARecords(st *store.Store) (func(), error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	haDir := filepath.Join(st.Dir(), "ha")
	if err := watcher.Add(haDir); err != nil {
		watcher.Close()
		return nil, err
	}

	go func() {
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
					continue
				}
				// Atomic record replacement lands as a rename of a .tmp
				// file; ignore events for the temp name itself.
				if strings.Contains(filepath.Base(ev.Name), ".tmp") {
					continue
				}
				log.Printf("Config change detected: %s", filepath.Base(ev.Name))
				st.InvalidateHACache()
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("Config watch: %v", err)
			}
		}
	}()

	return func() { watcher.Close() }, nil
}
