package cache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/flowexec/flowbridge/internal/errors"
	"github.com/flowexec/flowbridge/internal/events"
	"github.com/flowexec/flowbridge/internal/logger"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces the truncate and write events of a single save.
const DefaultDebounce = 100 * time.Millisecond

// State is the lifecycle position of a WorkspaceCache.
type State int32

const (
	Uninitialized State = iota
	Loading
	Watching
	Closed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Loading:
		return "loading"
	case Watching:
		return "watching"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// WorkspaceCache keeps the last successfully decoded snapshot of the
// workspace cache file and follows it as flow rewrites it. A malformed or
// unreadable rewrite is ignored and the previous snapshot stays current.
type WorkspaceCache struct {
	path     string
	ch       events.Channel
	log      logger.Logger
	debounce time.Duration

	mu     sync.RWMutex
	data   Data
	closed bool

	// pubMu orders update events against Close: none is published once
	// Close has marked the cache closed.
	pubMu sync.Mutex

	state   atomic.Int32
	reloads atomic.Int64
	fsw     *fsnotify.Watcher
	cancel  context.CancelFunc
	done    chan struct{}
}

// Option configures a WorkspaceCache.
type Option func(*WorkspaceCache)

// WithLogger sets the logger. Defaults to logger.Default().
func WithLogger(l logger.Logger) Option {
	return func(c *WorkspaceCache) {
		if l != nil {
			c.log = l
		}
	}
}

// WithDebounce overrides DefaultDebounce. Zero reloads on every event.
func WithDebounce(d time.Duration) Option {
	return func(c *WorkspaceCache) {
		if d >= 0 {
			c.debounce = d
		}
	}
}

// New creates an uninitialized cache for the file at path. Update
// notifications go to ch.
func New(path string, ch events.Channel, opts ...Option) *WorkspaceCache {
	if ch == nil {
		ch = events.Discard
	}
	c := &WorkspaceCache{
		path:     path,
		ch:       ch,
		log:      logger.Default(),
		debounce: DefaultDebounce,
		data:     Empty(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Path returns the watched file.
func (c *WorkspaceCache) Path() string {
	return c.path
}

// State reports the lifecycle position.
func (c *WorkspaceCache) State() State {
	return State(c.state.Load())
}

// Reloads returns how many rewrites were applied since Init.
func (c *WorkspaceCache) Reloads() int64 {
	return c.reloads.Load()
}

// Init loads the file if it exists and starts watching it. A missing file is
// an empty cache. When the file exists but can't be decoded, the watcher is
// still started and the decode error is returned.
//
// Watching stops when ctx is done or Close is called.
func (c *WorkspaceCache) Init(ctx context.Context) error {
	if !c.state.CompareAndSwap(int32(Uninitialized), int32(Loading)) {
		return errors.New(errors.ErrCache,
			"Workspace cache already initialized",
			"Create a new cache instead of calling Init twice.")
	}

	loadErr := c.loadInitial()

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		c.state.Store(int32(Uninitialized))
		return errors.WrapWithCode(err, errors.ErrCache,
			"Couldn't create the cache directory "+dir,
			"Check permissions, or point FLOW_CACHE_DIR somewhere writable.")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		c.state.Store(int32(Uninitialized))
		return errors.WrapWithCode(err, errors.ErrCache,
			"Couldn't start the cache file watcher",
			"Raise the inotify watch limit (fs.inotify.max_user_watches) and retry.")
	}
	// The directory is watched rather than the file so atomic replaces and
	// late creation are seen.
	if err := fsw.Add(dir); err != nil {
		fsw.Close() //nolint:errcheck // best-effort cleanup
		c.state.Store(int32(Uninitialized))
		return errors.WrapWithCode(err, errors.ErrCache,
			"Couldn't watch "+dir,
			"Check the directory exists and is readable.")
	}

	ctx, cancel := context.WithCancel(ctx)
	c.fsw = fsw
	c.cancel = cancel
	c.done = make(chan struct{})
	c.state.Store(int32(Watching))
	go c.watch(ctx)

	c.log.Debug("watching %s", c.path)
	return loadErr
}

func (c *WorkspaceCache) loadInitial() error {
	data, err := Load(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			c.log.Debug("no workspace cache at %s yet", c.path)
			return nil
		}
		return errors.WrapWithCode(err, errors.ErrCache,
			"Couldn't load the workspace cache "+c.path,
			"Run 'flow sync' to rebuild it.")
	}
	c.swap(data)
	return nil
}

// Get returns a deep copy of the current snapshot. ok is false only after
// Close.
func (c *WorkspaceCache) Get() (Data, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return Data{}, false
	}
	return c.data.Clone(), true
}

// Close stops the watcher and makes Get unavailable. Safe to call more than
// once.
func (c *WorkspaceCache) Close() error {
	c.pubMu.Lock()
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.pubMu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()
	c.pubMu.Unlock()

	prev := State(c.state.Swap(int32(Closed)))
	if prev != Watching {
		return nil
	}
	c.cancel()
	<-c.done
	return nil
}

func (c *WorkspaceCache) swap(d Data) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = d
}

// watch runs the event loop. Reloads happen on this goroutine, so they are
// applied one at a time and in the order the writes were observed.
func (c *WorkspaceCache) watch(ctx context.Context) {
	defer close(c.done)

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)

	defer func() {
		if timer != nil {
			timer.Stop()
		}
		if err := c.fsw.Close(); err != nil {
			c.log.Debug("close watcher: %v", err)
		}
	}()

	target := filepath.Clean(c.path)
	for {
		select {
		case <-ctx.Done():
			return

		case evt, ok := <-c.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(evt.Name) != target {
				continue
			}
			if !evt.Has(fsnotify.Write) && !evt.Has(fsnotify.Create) {
				continue
			}

			if timer == nil {
				timer = time.NewTimer(c.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(c.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			c.reload(ctx)

		case err, ok := <-c.fsw.Errors:
			if !ok {
				return
			}
			c.log.Debug("watcher error: %v", err)
		}
	}
}

// reload applies the file if it decodes. Failures are silent:
// flow may be mid-write and the next event will bring the finished file.
func (c *WorkspaceCache) reload(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	data, err := Load(c.path)
	if err != nil {
		c.log.Debug("ignoring unreadable cache update: %v", err)
		return
	}

	c.pubMu.Lock()
	defer c.pubMu.Unlock()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.data = data
	c.mu.Unlock()

	c.reloads.Add(1)
	if err := c.ch.Publish(events.CacheUpdated()); err != nil {
		c.log.Debug("dropped %s event: %v", events.TopicCacheUpdated, err)
	}
	c.log.Debug("workspace cache reloaded (%d workspaces)", data.Len())
}

// String describes the cache for diagnostics.
func (c *WorkspaceCache) String() string {
	return fmt.Sprintf("workspace cache %s (%s)", c.path, c.State())
}
