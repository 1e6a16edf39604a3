// Package builder embeds a folder of images into an index.Store.
package builder

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/viant/imgsim/embed"
	"github.com/viant/imgsim/index"
	"github.com/viant/imgsim/vector"
)

// Extensions lists the lower-cased file extensions Scan picks up.
var Extensions = []string{".jpg", ".jpeg", ".png", ".bmp", ".webp"}

// Skip records an image left out of a build.
type Skip struct {
	Label  string `json:"label"`
	Reason string `json:"reason"`
}

// Report summarizes a build.
type Report struct {
	BuildID   string        `json:"build_id"`
	Provider  string        `json:"provider"`
	Attempted int           `json:"attempted"`
	Succeeded int           `json:"succeeded"`
	Skipped   []Skip        `json:"skipped"`
	Started   time.Time     `json:"started"`
	Duration  time.Duration `json:"duration"`
}

type options struct {
	workers int
	logger  *slog.Logger
}

// Option configures Build.
type Option func(*options)

// WithWorkers bounds the number of concurrent embedding calls.
func WithWorkers(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithLogger sets the logger used for per-image failures and the summary.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// Scan walks root recursively and returns the image files under it in
// lexical order.
func Scan(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errors.Wrapf(index.ErrNotFound, "dataset %s", root)
		}
		return nil, errors.Wrapf(index.ErrIO, "stat %s: %v", root, err)
	}
	if !info.IsDir() {
		return nil, errors.Wrapf(index.ErrInvalidArgument, "dataset %s is not a directory", root)
	}
	var paths []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && isImage(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(index.ErrIO, "scan %s: %v", root, err)
	}
	return paths, nil
}

func isImage(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

type item struct {
	path  string
	label string
	vec   []float32
	err   error
}

// Build embeds every path with p and assembles a store whose labels are the
// paths relative to root in forward-slash form. Items are ordered by label
// before embedding, so rebuilding an unchanged dataset yields the same label
// order. Images that fail to embed are skipped and listed in the report.
// The report is returned even when the build fails.
func Build(ctx context.Context, root string, paths []string, p embed.Provider, opts ...Option) (*index.Store, *Report, error) {
	o := &options{workers: 4, logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}
	report := &Report{
		BuildID:   uuid.NewString(),
		Provider:  p.ID(),
		Attempted: len(paths),
		Skipped:   []Skip{},
		Started:   time.Now().UTC(),
	}
	defer func() { report.Duration = time.Since(report.Started) }()

	items := make([]*item, 0, len(paths))
	for _, path := range paths {
		label, err := labelFor(root, path)
		if err != nil {
			report.skip(o.logger, path, err.Error())
			continue
		}
		items = append(items, &item{path: path, label: label})
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].label < items[j].label })

	g := &errgroup.Group{}
	g.SetLimit(o.workers)
	for _, it := range items {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			it.vec, it.err = embed.File(ctx, p, it.path)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, report, err
	}

	labels := make([]string, 0, len(items))
	rows := make([][]float32, 0, len(items))
	dim := 0
	for _, it := range items {
		vec, reason := accept(it, dim)
		if reason != "" {
			report.skip(o.logger, it.label, reason)
			continue
		}
		if dim == 0 {
			dim = len(vec)
		}
		labels = append(labels, it.label)
		rows = append(rows, vec)
	}
	report.Succeeded = len(rows)
	if len(rows) == 0 {
		return nil, report, errors.Wrapf(index.ErrEmptyIndex, "no image under %s could be embedded", root)
	}
	store, err := index.FromRows(labels, rows, index.Meta{
		BuildID:   report.BuildID,
		Provider:  report.Provider,
		CreatedAt: report.Started,
	})
	if err != nil {
		return nil, report, err
	}
	o.logger.Info("index built",
		"build", report.BuildID,
		"provider", report.Provider,
		"attempted", report.Attempted,
		"succeeded", report.Succeeded,
		"skipped", len(report.Skipped),
		"dim", dim)
	return store, report, nil
}

// accept returns the vector to store for it, or the reason it is skipped.
func accept(it *item, dim int) ([]float32, string) {
	switch {
	case it.err != nil:
		return nil, it.err.Error()
	case len(it.vec) == 0:
		return nil, "empty vector"
	case dim != 0 && len(it.vec) != dim:
		return nil, fmt.Sprintf("dimension %d differs from %d", len(it.vec), dim)
	}
	if vector.IsUnit(it.vec) {
		return it.vec, ""
	}
	m := vector.Magnitude(it.vec)
	if m == 0 {
		return nil, "zero vector"
	}
	if math.IsNaN(float64(m)) || math.IsInf(float64(m), 0) {
		return nil, "non-finite vector"
	}
	v, err := vector.Normalize(it.vec)
	if err != nil {
		return nil, err.Error()
	}
	return v, ""
}

func labelFor(root, path string) (string, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

func (r *Report) skip(logger *slog.Logger, label, reason string) {
	logger.Warn("skipping image", "label", label, "reason", reason)
	r.Skipped = append(r.Skipped, Skip{Label: label, Reason: reason})
}
