// Package runner drives behavior trees on a fixed cadence.
//
// Every tree has its own goroutine and its own lock, so TickOnce, Reload and
// the periodic loop never tick the same tree concurrently. Lifecycle events
// of every tree are republished on the event bus with the tree name as source.
package runner

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/errgroup"

	"github.com/zeusync/bhtree/internal/config"
	"github.com/zeusync/bhtree/internal/core/bt"
	"github.com/zeusync/bhtree/internal/core/events/bus"
	"github.com/zeusync/bhtree/internal/core/loader"
	"github.com/zeusync/bhtree/internal/core/observability/log"
)

var (
	ErrNoTrees         = errors.New("runner: no trees")
	ErrUnknownTree     = errors.New("runner: unknown tree")
	ErrDuplicateTree   = errors.New("runner: tree already added")
	ErrNotReloadable   = errors.New("runner: tree was not loaded from a file")
	ErrInvalidInterval = errors.New("runner: interval must be positive")
)

var eventTypes = map[bt.EventKind]string{
	bt.EventOpen:  bus.TypeNodeOpen,
	bt.EventClose: bus.TypeNodeClose,
	bt.EventAbort: bus.TypeNodeAbort,
	bt.EventTick:  bus.TypeTick,
}

// source remembers where a tree came from so it can be rebuilt.
type source struct {
	cfg         config.TreeConfig
	fingerprint uint64
}

type entry struct {
	mu       sync.Mutex
	name     string
	tree     *bt.Tree
	interval time.Duration
	ticks    int
	src      *source
}

type Runner struct {
	mu      sync.RWMutex
	entries map[string]*entry
	order   []string

	registry *loader.Registry
	events   bus.EventBus
	logger   log.Log
	cfg      config.RunnerConfig
	opts     []bt.TreeOption
}

type Option func(*Runner)

// WithTreeOptions are applied to every tree the runner builds from a file.
func WithTreeOptions(opts ...bt.TreeOption) Option {
	return func(r *Runner) { r.opts = append(r.opts, opts...) }
}

// New creates a runner. registry supplies node types for Load; it is cloned
// per tree before subtrees are registered.
func New(cfg config.RunnerConfig, registry *loader.Registry, events bus.EventBus, logger log.Log, opts ...Option) *Runner {
	if logger == nil {
		logger = log.Provide()
	}
	if events == nil {
		events = bus.New()
	}
	r := &Runner{
		entries:  make(map[string]*entry),
		registry: registry,
		events:   events,
		logger:   logger.With(log.String("component", "runner")),
		cfg:      cfg,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Bus returns the bus lifecycle events are published on.
func (r *Runner) Bus() bus.EventBus { return r.events }

// Add registers an already built tree.
func (r *Runner) Add(name string, tree *bt.Tree, interval time.Duration) error {
	if interval <= 0 {
		interval = r.cfg.Interval
	}
	if interval <= 0 {
		return ErrInvalidInterval
	}
	tree.AddListener(r.publisher(name))
	return r.add(&entry{name: name, tree: tree, interval: interval})
}

// Load builds a tree from its definition file, registering its subtrees
// first, and adds it under tc.Name (or the definition name).
func (r *Runner) Load(tc config.TreeConfig) error {
	tree, src, err := r.build(tc, tc.Name)
	if err != nil {
		return err
	}
	interval := tc.Interval
	if interval <= 0 {
		interval = r.cfg.Interval
	}
	if interval <= 0 {
		return ErrInvalidInterval
	}
	if err = r.add(&entry{name: tree.Name(), tree: tree, interval: interval, src: src}); err != nil {
		return err
	}
	r.logger.Info("tree loaded",
		log.String("tree", tree.Name()),
		log.String("file", tc.File),
		log.Duration("interval", interval),
	)
	return nil
}

func (r *Runner) add(e *entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[e.name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTree, e.name)
	}
	r.entries[e.name] = e
	r.order = append(r.order, e.name)
	return nil
}

func (r *Runner) build(tc config.TreeConfig, name string) (*bt.Tree, *source, error) {
	reg := r.registry.Clone()
	h := xxhash.New()

	subtypes := make([]string, 0, len(tc.Subtrees))
	for typ := range tc.Subtrees {
		subtypes = append(subtypes, typ)
	}
	sort.Strings(subtypes)
	for _, typ := range subtypes {
		def, err := loader.LoadFile(tc.Subtrees[typ])
		if err != nil {
			return nil, nil, err
		}
		if err = reg.RegisterSubtree(typ, def); err != nil {
			return nil, nil, err
		}
		if err = hashDefinition(h, typ, def); err != nil {
			return nil, nil, err
		}
	}

	def, err := loader.LoadFile(tc.File)
	if err != nil {
		return nil, nil, err
	}
	if name != "" {
		def.Name = name
	}
	if err = hashDefinition(h, "", def); err != nil {
		return nil, nil, err
	}

	opts := append([]bt.TreeOption{bt.WithListener(r.publisher(def.Name))}, r.opts...)
	tree, err := reg.BuildTree(def, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", tc.File, err)
	}
	return tree, &source{cfg: tc, fingerprint: h.Sum64()}, nil
}

func hashDefinition(h *xxhash.Digest, typ string, def *loader.Definition) error {
	fp, err := def.Fingerprint()
	if err != nil {
		return err
	}
	_, _ = h.WriteString(typ)
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], fp)
	_, _ = h.Write(buf[:])
	return nil
}

func (r *Runner) publisher(name string) bt.Listener {
	return func(ev bt.Event) {
		typ, ok := eventTypes[ev.Kind]
		if !ok {
			return
		}
		if err := r.events.Publish(bus.NewEventAt(typ, name, ev.Time, ev, nil)); err != nil {
			r.logger.Warn("event handler failed", log.String("tree", name), log.Err(err))
		}
	}
}

func (r *Runner) lookup(name string) (*entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTree, name)
	}
	return e, nil
}

// Names lists the trees in the order they were added.
func (r *Runner) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Tree returns the current tree registered under name.
func (r *Runner) Tree(name string) (*bt.Tree, error) {
	e, err := r.lookup(name)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tree, nil
}

// TickOnce ticks one tree outside the periodic loop.
func (r *Runner) TickOnce(ctx context.Context, name string) (bt.Status, error) {
	e, err := r.lookup(name)
	if err != nil {
		return bt.StatusFailure, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return r.tick(ctx, e)
}

func (r *Runner) tick(ctx context.Context, e *entry) (bt.Status, error) {
	e.ticks++
	st, err := e.tree.Tick(ctx)
	if err != nil {
		r.logger.Error("tick failed", log.String("tree", e.name), log.Int("tick", e.ticks), log.Err(err))
	}
	return st, err
}

// Reload rebuilds a tree from its files. It reports false without touching
// the running tree when the definitions did not change. Otherwise the old
// tree is aborted before the new one takes its place; tick counts carry over.
func (r *Runner) Reload(ctx context.Context, name string) (bool, error) {
	e, err := r.lookup(name)
	if err != nil {
		return false, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.src == nil {
		return false, fmt.Errorf("%w: %s", ErrNotReloadable, name)
	}
	tree, src, err := r.build(e.src.cfg, e.name)
	if err != nil {
		return false, err
	}
	if src.fingerprint == e.src.fingerprint {
		return false, nil
	}
	if err = e.tree.Abort(ctx); err != nil {
		r.logger.Warn("abort before reload failed", log.String("tree", name), log.Err(err))
	}
	e.tree, e.src = tree, src

	r.logger.Info("tree reloaded", log.String("tree", name), log.Uint64("fingerprint", src.fingerprint))
	_ = r.events.Publish(bus.NewEvent(bus.TypeReload, name, src.fingerprint, nil))
	return true, nil
}

// Run ticks every tree on its interval until ctx is cancelled or every tree
// reached runner.max_ticks. Open nodes are aborted before Run returns. Tick
// errors are logged and do not stop the loop.
func (r *Runner) Run(ctx context.Context) error {
	r.mu.RLock()
	entries := make([]*entry, 0, len(r.order))
	for _, name := range r.order {
		entries = append(entries, r.entries[name])
	}
	r.mu.RUnlock()
	if len(entries) == 0 {
		return ErrNoTrees
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	var trees sync.WaitGroup
	for _, e := range entries {
		e := e
		trees.Add(1)
		g.Go(func() error {
			defer trees.Done()
			return r.loop(gctx, e)
		})
	}

	if r.cfg.Watch {
		w, err := newWatcher(r, entries)
		if err != nil {
			cancel()
			_ = g.Wait()
			return err
		}
		g.Go(func() error { return w.run(gctx) })
		go func() {
			trees.Wait()
			cancel()
		}()
	}

	r.logger.Info("runner started", log.Int("trees", len(entries)), log.Bool("watch", r.cfg.Watch))
	err := g.Wait()
	r.logger.Info("runner stopped")
	return err
}

func (r *Runner) loop(ctx context.Context, e *entry) error {
	e.mu.Lock()
	interval := e.interval
	e.mu.Unlock()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return r.shutdown(e)
		case <-ticker.C:
		}

		e.mu.Lock()
		_, _ = r.tick(ctx, e)
		done := r.cfg.MaxTicks > 0 && e.ticks >= r.cfg.MaxTicks
		e.mu.Unlock()

		if done {
			r.logger.Debug("tree reached max ticks", log.String("tree", e.name), log.Int("ticks", r.cfg.MaxTicks))
			return r.shutdown(e)
		}
	}
}

// shutdown aborts the tree with a fresh context; the loop context is
// usually already cancelled at this point.
func (r *Runner) shutdown(e *entry) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.tree.Abort(ctx); err != nil {
		return fmt.Errorf("tree %s: %w", e.name, err)
	}
	return nil
}

// Ticks reports how many ticks name has performed.
func (r *Runner) Ticks(name string) (int, error) {
	e, err := r.lookup(name)
	if err != nil {
		return 0, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ticks, nil
}
