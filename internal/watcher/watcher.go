// Package watcher observes account log roots for growth so the
// scheduler can rescan costs ahead of its interval.
package watcher

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Kabilan108/claude-bar/internal/domain"
)

// Watcher tracks per-file sizes under each account's log roots and
// invokes onChange with the account kind whose logs grew.
type Watcher struct {
	roots        map[domain.AccountKind][]string
	sizes        map[string]int64 // path -> last seen size
	mu           sync.Mutex
	pollInterval time.Duration
	onChange     func(domain.AccountKind)
	stop         chan struct{}
	wg           sync.WaitGroup
	log          *slog.Logger
}

func New(roots map[domain.AccountKind][]string, pollInterval time.Duration, onChange func(domain.AccountKind), logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Watcher{
		roots:        roots,
		sizes:        make(map[string]int64),
		pollInterval: pollInterval,
		onChange:     onChange,
		stop:         make(chan struct{}),
		log:          logger,
	}
}

// InitialScan records the current size of every JSONL file so the first
// poll only reports growth after startup, not the existing backlog.
func (w *Watcher) InitialScan() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, dirs := range w.roots {
		for _, dir := range dirs {
			_ = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
				if err != nil || info.IsDir() || filepath.Ext(path) != ".jsonl" {
					return nil
				}
				w.sizes[path] = info.Size()
				return nil
			})
		}
	}
}

// Start begins watching with fsnotify + polling fallback.
func (w *Watcher) Start() error {
	// Try fsnotify first
	fsw, err := fsnotify.NewWatcher()
	if err == nil {
		for _, dirs := range w.roots {
			for _, dir := range dirs {
				_ = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
					if err == nil && info.IsDir() {
						_ = fsw.Add(path)
					}
					return nil
				})
			}
		}

		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			for {
				select {
				case event, ok := <-fsw.Events:
					if !ok {
						return
					}
					if filepath.Ext(event.Name) == ".jsonl" &&
						(event.Op&fsnotify.Write != 0 || event.Op&fsnotify.Create != 0) {
						w.checkFile(event.Name)
					}
				case <-w.stop:
					fsw.Close()
					return
				}
			}
		}()
	} else {
		w.log.Warn("fsnotify unavailable, relying on polling", "error", err)
	}

	// Polling fallback (always runs as safety net)
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		ticker := time.NewTicker(w.pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				w.pollAll()
			case <-w.stop:
				return
			}
		}
	}()

	return nil
}

// Stop signals goroutines to exit and waits for them to finish.
func (w *Watcher) Stop() {
	close(w.stop)
	w.wg.Wait()
}

// kindOf maps a file path to the account whose root contains it.
func (w *Watcher) kindOf(path string) (domain.AccountKind, bool) {
	for kind, dirs := range w.roots {
		for _, dir := range dirs {
			if strings.HasPrefix(path, dir+string(filepath.Separator)) || path == dir {
				return kind, true
			}
		}
	}
	return "", false
}

func (w *Watcher) checkFile(path string) {
	kind, ok := w.kindOf(path)
	if !ok {
		return
	}
	info, err := os.Stat(path)
	if err != nil {
		return
	}

	w.mu.Lock()
	last := w.sizes[path]
	grown := info.Size() > last
	if grown {
		w.sizes[path] = info.Size()
	}
	w.mu.Unlock()

	if grown && w.onChange != nil {
		w.onChange(kind)
	}
}

func (w *Watcher) pollAll() {
	// Collect sizes without holding the lock
	type fileInfo struct {
		kind domain.AccountKind
		path string
		size int64
	}
	var files []fileInfo
	for kind, dirs := range w.roots {
		for _, dir := range dirs {
			_ = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
				if err != nil || info.IsDir() || filepath.Ext(path) != ".jsonl" {
					return nil
				}
				files = append(files, fileInfo{kind: kind, path: path, size: info.Size()})
				return nil
			})
		}
	}

	// Single lock acquisition to diff all sizes
	w.mu.Lock()
	changed := make(map[domain.AccountKind]bool)
	for _, f := range files {
		if f.size > w.sizes[f.path] {
			w.sizes[f.path] = f.size
			changed[f.kind] = true
		}
	}
	w.mu.Unlock()

	if w.onChange != nil {
		for kind := range changed {
			w.onChange(kind)
		}
	}
}
