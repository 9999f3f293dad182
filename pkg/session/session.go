// Package session owns the Vault's writer side: document lifecycle
// (open/change/close), the filesystem watcher, and the reader/writer
// concurrency discipline both are required to respect. Query handlers
// take a Vault snapshot and never touch Session directly.
//
// Operational story (read before editing), following the crawl / watch
// / refresh dataflow of pkg/cache/service.go:
//  1. Start() performs a one-time crawl (Vault.Rebuild) and installs a
//     recursive directory watch.
//  2. watchLoop translates fsnotify events into a dirty set; it never
//     touches the Vault directly.
//  3. A flush ticker periodically drains the dirty set, re-reading
//     each path from disk and installing it — unless the path is
//     currently an open editor buffer, in which case the event is
//     dropped outright: the buffer is authoritative.
package session

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/atomicobject/moxide/pkg/token"
	"github.com/atomicobject/moxide/pkg/vaultindex"
	"github.com/fsnotify/fsnotify"
)

const defaultFlushInterval = 300 * time.Millisecond

// Session serializes every write to a Vault: document lifecycle events
// and filesystem events both funnel through it, one at a time, in the
// order they are received.
type Session struct {
	Vault *vaultindex.Vault

	root         string
	ignoredPaths []string
	tokenOpts    token.Options

	writeMu sync.Mutex // held for the duration of any single write op

	mu    sync.Mutex // guards open and dirty below
	open  map[string]bool
	dirty map[string]struct{}

	watcher       *fsnotify.Watcher
	watchedDirs   map[string]struct{}
	flushInterval time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New constructs a Session rooted at root. Call Start to perform the
// initial crawl and begin watching the filesystem. opts controls
// whether tags/references inside fenced code are recognised;
// omitting it keeps fenced code opaque.
func New(root string, ignoredPaths []string, opts ...token.Options) *Session {
	var topts token.Options
	if len(opts) > 0 {
		topts = opts[0]
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		Vault:         vaultindex.New(root, ignoredPaths, topts),
		root:          root,
		ignoredPaths:  ignoredPaths,
		tokenOpts:     topts,
		open:          make(map[string]bool),
		dirty:         make(map[string]struct{}),
		watchedDirs:   make(map[string]struct{}),
		flushInterval: defaultFlushInterval,
		ctx:           ctx,
		cancel:        cancel,
	}
}

// Start performs the initial crawl and, if a watcher can be created,
// begins watching the vault for filesystem changes. Watcher setup
// failure is not fatal — the server still works, it simply never sees
// out-of-band disk edits until the editor reopens the affected files.
func (s *Session) Start() error {
	if err := s.Vault.Rebuild(); err != nil {
		return fmt.Errorf("initial crawl: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("session: watcher unavailable (%v); filesystem changes outside the editor will not be picked up", err)
		return nil
	}
	s.watcher = w

	if err := s.watchTree(s.root); err != nil {
		log.Printf("session: failed to install watches under %s: %v", s.root, err)
	}

	s.wg.Add(2)
	go s.watchLoop()
	go s.flushLoop()
	return nil
}

// Stop tears down the watcher and waits for its goroutines to exit.
func (s *Session) Stop() error {
	s.cancel()
	var err error
	if s.watcher != nil {
		err = s.watcher.Close()
	}
	s.wg.Wait()
	return err
}

// Open installs text as an editor-opened buffer for path, taking
// precedence over whatever is on disk until Close.
func (s *Session) Open(relPath, text string) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	s.open[relPath] = true
	delete(s.dirty, relPath)
	s.mu.Unlock()

	s.installBuffer(relPath, text)
}

// Update replaces the text of an already-open buffer. LSP guarantees
// didChange notifications for one document arrive in order, so callers
// must invoke Update sequentially per path — Session itself only
// guarantees it never interleaves a write with a concurrent query.
func (s *Session) Update(relPath, text string) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.installBuffer(relPath, text)
}

// Close marks path no longer open and reinstalls whatever is currently
// on disk (or removes it, if the buffer was never saved).
func (s *Session) Close(relPath string) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	delete(s.open, relPath)
	s.mu.Unlock()

	s.refreshFromDisk(relPath)
}

// IsOpen reports whether path currently has an editor buffer installed.
func (s *Session) IsOpen(relPath string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open[relPath]
}

func (s *Session) installBuffer(relPath, text string) {
	abs := filepath.Join(s.root, filepath.FromSlash(relPath))
	s.Vault.InstallFile(vaultindex.ParseFile(abs, relPath, text, time.Now(), true, s.tokenOpts))
}

// refreshFromDisk re-reads path from disk and installs it, or drops it
// from the Vault entirely if it no longer exists.
func (s *Session) refreshFromDisk(relPath string) {
	abs := filepath.Join(s.root, filepath.FromSlash(relPath))
	info, err := os.Stat(abs)
	if err != nil {
		s.Vault.RemoveFile(relPath)
		return
	}
	if info.IsDir() {
		return
	}
	content, err := os.ReadFile(abs)
	if err != nil {
		log.Printf("session: read %s: %v", abs, err)
		return
	}
	s.Vault.InstallFile(vaultindex.ParseFile(abs, relPath, string(content), info.ModTime(), false, s.tokenOpts))
}

// watchTree registers a watch on dir and every non-ignored subdirectory.
func (s *Session) watchTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if vaultindex.ShouldIgnorePath(s.root, path, s.ignoredPaths) && path != s.root {
			return filepath.SkipDir
		}
		s.addWatch(path)
		return nil
	})
}

func (s *Session) addWatch(dir string) {
	if s.watcher == nil {
		return
	}
	s.mu.Lock()
	if _, ok := s.watchedDirs[dir]; ok {
		s.mu.Unlock()
		return
	}
	s.watchedDirs[dir] = struct{}{}
	s.mu.Unlock()
	if err := s.watcher.Add(dir); err != nil {
		log.Printf("session: watch %s: %v", dir, err)
	}
}

func (s *Session) markDirty(relPath string) {
	s.mu.Lock()
	s.dirty[relPath] = struct{}{}
	s.mu.Unlock()
}

// watchLoop translates filesystem noise into the dirty set; it never
// touches the Vault itself, so it never contends with readers.
func (s *Session) watchLoop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case evt, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			s.handleEvent(evt)
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("session: watcher error: %v", err)
		}
	}
}

func (s *Session) handleEvent(evt fsnotify.Event) {
	if filepath.Ext(evt.Name) != ".md" {
		if evt.Op&(fsnotify.Create) != 0 {
			if info, err := os.Stat(evt.Name); err == nil && info.IsDir() {
				if !vaultindex.ShouldIgnorePath(s.root, evt.Name, s.ignoredPaths) {
					s.addWatch(evt.Name)
					_ = s.watchTree(evt.Name)
				}
			}
		}
		return
	}
	if vaultindex.ShouldIgnorePath(s.root, evt.Name, s.ignoredPaths) {
		return
	}
	rel, err := filepath.Rel(s.root, evt.Name)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)
	s.markDirty(rel)
}

// flushLoop periodically drains the dirty set, coalescing any number
// of events per path into a single re-read.
func (s *Session) flushLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.flush()
		}
	}
}

func (s *Session) flush() {
	s.mu.Lock()
	if len(s.dirty) == 0 {
		s.mu.Unlock()
		return
	}
	paths := make([]string, 0, len(s.dirty))
	for p := range s.dirty {
		// Buffer is authoritative: drop the event without touching the
		// Vault, and forget it so a later Close() reconciles instead.
		if s.open[p] {
			delete(s.dirty, p)
			continue
		}
		paths = append(paths, p)
		delete(s.dirty, p)
	}
	s.mu.Unlock()

	if len(paths) == 0 {
		return
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	for _, p := range paths {
		s.refreshFromDisk(p)
	}
}
