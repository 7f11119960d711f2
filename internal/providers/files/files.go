// Package files searches file names below a set of root directories and
// keeps the result current while the search is open.
package files

import (
	"context"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/kvaesitso/kvs/internal/search"
	"go.uber.org/zap"
)

// Options configures a Repository.
type Options struct {
	Roots      []string
	MaxDepth   int
	MaxResults int
	// Debounce coalesces bursts of file system events into one re-scan.
	Debounce time.Duration
}

// Repository matches file names case-insensitively.
type Repository struct {
	opts   Options
	logger *zap.Logger
}

// New creates a Repository.
func New(opts Options, logger *zap.Logger) *Repository {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = 6
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = 10
	}
	if opts.Debounce <= 0 {
		opts.Debounce = 200 * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	opts.Roots = statRoots(opts.Roots)
	return &Repository{opts: opts, logger: logger}
}

// Search implements search.Repository. A blank query yields an empty list.
// After the first scan the roots and the directories holding matches are
// watched; any change triggers a re-scan.
func (r *Repository) Search(ctx context.Context, query string, _ bool, emit func([]search.File)) error {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		emit(nil)
		return nil
	}

	found, err := r.scan(ctx, q)
	if err != nil {
		return err
	}
	emit(found)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		r.logger.Warn("file watch unavailable", zap.Error(err))
		return nil
	}
	defer func() { _ = w.Close() }()
	r.watch(w, found)

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
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if isHidden(filepath.Base(ev.Name)) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(r.opts.Debounce)
			} else {
				timer.Reset(r.opts.Debounce)
			}
			fire = timer.C
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			r.logger.Debug("file watch error", zap.Error(err))
		case <-fire:
			fire = nil
			next, err := r.scan(ctx, q)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				r.logger.Warn("file rescan failed", zap.Error(err))
				continue
			}
			if !sameFiles(found, next) {
				found = next
				emit(found)
				r.watch(w, found)
			}
		}
	}
}

// watch adds the roots and each match's parent directory to w.
func (r *Repository) watch(w *fsnotify.Watcher, found []search.File) {
	dirs := slices.Clone(r.opts.Roots)
	for _, f := range found {
		dirs = append(dirs, filepath.Dir(f.Path))
	}
	slices.Sort(dirs)
	for _, d := range slices.Compact(dirs) {
		if slices.Contains(w.WatchList(), d) {
			continue
		}
		if err := w.Add(d); err != nil {
			r.logger.Debug("watch dir failed", zap.String("dir", d), zap.Error(err))
		}
	}
}

// scan walks the roots down to MaxDepth and collects up to
// MaxResults matches, best matches first.
func (r *Repository) scan(ctx context.Context, q string) ([]search.File, error) {
	var found []search.File
	for _, root := range r.opts.Roots {
		root = filepath.Clean(root)
		base := strings.Count(root, string(filepath.Separator))
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if err != nil {
				if d != nil && d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if path == root {
				return nil
			}
			name := d.Name()
			if isHidden(name) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if strings.Contains(strings.ToLower(name), q) {
				if f, ok := toFile(path, d); ok {
					found = append(found, f)
				}
			}
			if d.IsDir() && strings.Count(path, string(filepath.Separator))-base >= r.opts.MaxDepth {
				return filepath.SkipDir
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	slices.SortStableFunc(found, func(a, b search.File) int {
		if c := score(a.Label, q) - score(b.Label, q); c != 0 {
			return c
		}
		return strings.Compare(a.Path, b.Path)
	})
	if len(found) > r.opts.MaxResults {
		found = found[:r.opts.MaxResults]
	}
	return found, nil
}

func toFile(path string, d fs.DirEntry) (search.File, bool) {
	info, err := d.Info()
	if err != nil {
		return search.File{}, false
	}
	f := search.File{
		Path:      path,
		Label:     d.Name(),
		ModTime:   info.ModTime(),
		Directory: d.IsDir(),
	}
	if d.IsDir() {
		f.MimeType = "inode/directory"
	} else {
		f.Size = info.Size()
		f.MimeType = mime.TypeByExtension(filepath.Ext(path))
		if i := strings.IndexByte(f.MimeType, ';'); i >= 0 {
			f.MimeType = f.MimeType[:i]
		}
	}
	return f, true
}

// score is 0 for an exact name, 1 for a prefix match, 2 otherwise.
func score(name, q string) int {
	name = strings.ToLower(name)
	switch {
	case name == q || strings.TrimSuffix(name, filepath.Ext(name)) == q:
		return 0
	case strings.HasPrefix(name, q):
		return 1
	}
	return 2
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

func sameFiles(a, b []search.File) bool {
	return slices.EqualFunc(a, b, func(x, y search.File) bool {
		return x.Path == y.Path && x.Size == y.Size && x.ModTime.Equal(y.ModTime)
	})
}

// statRoots drops roots that do not exist.
func statRoots(roots []string) []string {
	out := make([]string, 0, len(roots))
	for _, r := range roots {
		if st, err := os.Stat(r); err == nil && st.IsDir() {
			out = append(out, r)
		}
	}
	return out
}
