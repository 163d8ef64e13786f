// Package watcher reloads villager lists when their files change.
//
// A Watcher follows a directory tree with fsnotify, adding directories as
// they appear, and emits debounced batches of FileEvents. Trigger turns
// the batches that touch marker files into scheduler refreshes, so an
// edit to Cove/villagers.txt is searchable a couple of seconds later
// instead of at the next hourly reload.
//
// Usage:
//
//	w, err := watcher.New(watcher.Options{DebounceWindow: 2 * time.Second}, logger)
//	if err != nil {
//	    return err
//	}
//	defer w.Stop()
//	go w.Start(ctx, root)
//	watcher.Trigger(ctx, w, scheduler, watcher.MarkerFilter("villagers.txt"), logger)
package watcher
