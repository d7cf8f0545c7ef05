package assets

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/prism/engine/core"
)

// ShaderExtension is the suffix of compiled shader binaries.
const ShaderExtension = ".spv"

/**
 * @brief Watches a shader directory and reports when a compiled shader is
 * created or rewritten. Bursts of events are coalesced into a single
 * pending notification.
 */
type ShaderWatcher struct {
	dir string

	fsnotify *fsnotify.Watcher
	changes  chan struct{}
	done     chan struct{}
	wg       sync.WaitGroup

	mutex    sync.Mutex
	isClosed bool
}

func NewShaderWatcher(dir string) (*ShaderWatcher, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create file watcher")
	}

	sw := &ShaderWatcher{
		dir:      dir,
		fsnotify: fsWatch,
		changes:  make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	if err := sw.watchRecursive(dir); err != nil {
		fsWatch.Close()
		return nil, errors.Wrapf(err, "failed to watch %s", dir)
	}

	sw.wg.Add(1)
	go sw.start()

	core.LogInfo("Watching %s for shader changes.", dir)
	return sw, nil
}

// Changes receives a value after one or more shader binaries changed. It is never closed.
func (sw *ShaderWatcher) Changes() <-chan struct{} {
	return sw.changes
}

func (sw *ShaderWatcher) Close() error {
	sw.mutex.Lock()
	if sw.isClosed {
		sw.mutex.Unlock()
		return nil
	}
	sw.isClosed = true
	sw.mutex.Unlock()

	close(sw.done)
	sw.wg.Wait()
	return sw.fsnotify.Close()
}

func (sw *ShaderWatcher) start() {
	defer sw.wg.Done()
	for {
		select {
		case e, ok := <-sw.fsnotify.Events:
			if !ok {
				return
			}
			// New sub directories are watched as well.
			if e.Op&fsnotify.Create != 0 {
				if s, err := os.Stat(e.Name); err == nil && s.IsDir() {
					if err := sw.watchRecursive(e.Name); err != nil {
						core.LogWarn("unable to watch %s: %s", e.Name, err)
					}
					continue
				}
			}
			if e.Op&(fsnotify.Create|fsnotify.Write) != 0 && isShaderBinary(e.Name) {
				core.LogDebug("shader changed: %s", e.Name)
				sw.notify()
			}

		case err, ok := <-sw.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("shader watcher: %s", err)

		case <-sw.done:
			return
		}
	}
}

// notify leaves at most one notification pending.
func (sw *ShaderWatcher) notify() {
	select {
	case sw.changes <- struct{}{}:
	default:
	}
}

// watchRecursive adds the directory and all directories under it to the watch list.
func (sw *ShaderWatcher) watchRecursive(path string) error {
	return filepath.Walk(path, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			return sw.fsnotify.Add(walkPath)
		}
		return nil
	})
}

func isShaderBinary(path string) bool {
	return filepath.Ext(path) == ShaderExtension
}
