package catalog

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/kvaesitso/kvs/internal/bus"
	"github.com/kvaesitso/kvs/internal/metrics"
	"github.com/kvaesitso/kvs/internal/status"
	"github.com/kvaesitso/kvs/internal/store"
	"go.uber.org/zap"
)

// Result describes one import.
type Result struct {
	// Unchanged is set when the file matched the last imported version.
	Unchanged bool
	// Missing is set when there is no catalog file.
	Missing  bool
	Hash     string
	Counts   map[string]int
	Duration time.Duration
}

// Importer ingests the catalog file and re-imports it when it changes.
type Importer struct {
	db       *store.DB
	bus      *bus.Bus
	state    *status.Machine
	path     string
	debounce time.Duration
	logger   *zap.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewImporter creates an importer for the catalog at path. state may be nil.
func NewImporter(db *store.DB, b *bus.Bus, state *status.Machine, path string, logger *zap.Logger) *Importer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Importer{
		db:       db,
		bus:      b,
		state:    state,
		path:     path,
		debounce: 250 * time.Millisecond,
		logger:   logger,
	}
}

// Import reads the catalog file and, if it differs from the last import,
// replaces the catalog tables with its content in one transaction. A missing
// file leaves the store untouched. The status machine moves through
// IMPORTING to READY, or to DEGRADED if the import fails.
func (im *Importer) Import(ctx context.Context) (*Result, error) {
	im.transition(status.Importing)
	res, err := im.load(ctx)

	outcome := "ok"
	switch {
	case err != nil:
		outcome = "error"
	case res.Missing:
		outcome = "missing"
	case res.Unchanged:
		outcome = "unchanged"
	}
	metrics.CatalogReloads.WithLabelValues(outcome).Inc()

	if err != nil {
		im.logger.Error("catalog import failed", zap.String("path", im.path), zap.Error(err))
		im.transition(status.Degraded)
		return nil, err
	}
	im.transition(status.Ready)
	return res, nil
}

func (im *Importer) load(ctx context.Context) (*Result, error) {
	start := time.Now()
	data, err := os.ReadFile(im.path)
	if errors.Is(err, fs.ErrNotExist) {
		im.logger.Info("no catalog file", zap.String("path", im.path))
		return &Result{Missing: true}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])
	prev, err := im.db.State(ctx, store.StateCatalogHash)
	if err != nil {
		return nil, fmt.Errorf("read catalog hash: %w", err)
	}
	if prev == hash {
		return &Result{Unchanged: true, Hash: hash}, nil
	}

	c, err := Decode(data)
	if err != nil {
		return nil, err
	}
	if err := im.db.Batch(ctx, func(tx *store.Tx) error { return write(tx, c, hash) }); err != nil {
		return nil, fmt.Errorf("write catalog: %w", err)
	}

	res := &Result{
		Hash: hash,
		Counts: map[string]int{
			"apps":      len(c.Apps),
			"shortcuts": len(c.Shortcuts),
			"contacts":  len(c.Contacts),
			"events":    len(c.Events),
			"custom":    len(c.Custom),
			"labels":    len(c.Labels),
		},
		Duration: time.Since(start),
	}
	im.logger.Info("catalog imported",
		zap.String("hash", hash[:12]),
		zap.Any("counts", res.Counts),
		zap.Duration("took", res.Duration))

	if im.bus != nil {
		for _, kind := range bus.StoreKinds {
			im.bus.Emit(kind, nil)
		}
		im.bus.Emit(bus.KindCatalogImported, res)
	}
	return res, nil
}

func write(tx *store.Tx, c *Catalog, hash string) error {
	if err := tx.ClearCatalog(); err != nil {
		return err
	}
	for _, a := range c.Apps {
		if err := tx.UpsertApp(&store.App{Package: a.Package, Activity: a.Activity, Label: a.Label, Profile: a.Profile}); err != nil {
			return fmt.Errorf("upsert app %s: %w", a.Package, err)
		}
	}
	for _, s := range c.Shortcuts {
		if err := tx.UpsertShortcut(&store.Shortcut{Package: s.Package, ShortcutID: s.ID, Label: s.Label}); err != nil {
			return fmt.Errorf("upsert shortcut %s/%s: %w", s.Package, s.ID, err)
		}
	}
	for _, ct := range c.Contacts {
		if err := tx.UpsertContact(&store.Contact{ID: ct.ID, Name: ct.Name, Phones: ct.Phones, Emails: ct.Emails}); err != nil {
			return fmt.Errorf("upsert contact %d: %w", ct.ID, err)
		}
	}
	for _, e := range c.Events {
		end := e.End
		if end.IsZero() {
			end = e.Start
		}
		ev := &store.Event{
			ID:       e.ID,
			Title:    e.Title,
			StartsAt: e.Start.UnixMilli(),
			EndsAt:   end.UnixMilli(),
			AllDay:   e.AllDay,
			Location: e.Location,
			Calendar: e.Calendar,
		}
		if err := tx.UpsertEvent(ev); err != nil {
			return fmt.Errorf("upsert event %d: %w", e.ID, err)
		}
	}
	for _, it := range c.Custom {
		if err := tx.UpsertCustomItem(&store.CustomItem{ID: it.ID, Label: it.Label, Target: it.Target, Tags: it.Tags}); err != nil {
			return fmt.Errorf("upsert custom item %s: %w", it.ID, err)
		}
	}
	for key, label := range c.Labels {
		if err := tx.SetLabel(key, label); err != nil {
			return fmt.Errorf("set label %s: %w", key, err)
		}
	}
	if err := tx.SetState(store.StateCatalogHash, hash); err != nil {
		return err
	}
	return tx.SetState(store.StateCatalogImported, time.Now().UTC().Format(time.RFC3339))
}

func (im *Importer) transition(to status.State) {
	if im.state == nil || im.state.Current() == to {
		return
	}
	if err := im.state.Transition(to); err != nil {
		im.logger.Debug("status not changed", zap.Error(err))
	}
}

// Start watches the catalog's directory and re-imports after writes to the
// catalog file settle.
func (im *Importer) Start(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(im.path)); err != nil {
		_ = w.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(im.path), err)
	}

	ctx, im.cancel = context.WithCancel(ctx)
	im.done = make(chan struct{})
	go func() {
		defer close(im.done)
		defer func() { _ = w.Close() }()
		im.watch(ctx, w)
	}()
	return nil
}

// Stop stops watching and waits for an in-flight import to finish.
func (im *Importer) Stop() {
	if im.cancel != nil {
		im.cancel()
		<-im.done
	}
}

func (im *Importer) watch(ctx context.Context, w *fsnotify.Watcher) {
	name := filepath.Clean(im.path)
	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != name || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(im.debounce)
			} else {
				timer.Reset(im.debounce)
			}
			fire = timer.C
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			im.logger.Warn("catalog watch error", zap.Error(err))
		case <-fire:
			fire = nil
			_, _ = im.Import(ctx)
		}
	}
}
