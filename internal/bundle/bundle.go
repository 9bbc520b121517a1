// Package bundle builds the per-target extension packages: for every target
// it copies the source tree to dist/<target>, writes the merged manifest and
// zips the result to dist/<target>.zip.
package bundle

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/romdo/extpack/internal/config"
	"github.com/romdo/extpack/internal/fsext"
	"github.com/romdo/extpack/internal/manifest"
)

// AllTargets selects every configured target.
const AllTargets = "all"

// ManifestFile is the name of the merged manifest in each target directory.
const ManifestFile = "manifest.json"

var ErrUnknownTarget = errors.New("unknown target")

// Result describes one built target.
type Result struct {
	Target    string
	DistDir   string
	ZipPath   string
	SizeBytes int64
}

type Builder struct {
	cfg *config.Config
	log *zap.Logger
}

func NewBuilder(cfg *config.Config, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Builder{cfg: cfg, log: logger}
}

// Targets returns the configured target names.
func (b *Builder) Targets() []string {
	return slices.Clone(b.cfg.Targets)
}

// Resolve maps a command line argument to the targets to build: "" and
// "all" select every target, a configured name selects itself.
func (b *Builder) Resolve(arg string) ([]string, error) {
	if arg == "" || arg == AllTargets {
		return b.Targets(), nil
	}
	if slices.Contains(b.cfg.Targets, arg) {
		return []string{arg}, nil
	}

	return nil, errors.Wrapf(ErrUnknownTarget,
		"%s (valid targets: %s)", arg, strings.Join(b.cfg.Targets, ", "))
}

// Preflight checks the inputs shared by every target.
func (b *Builder) Preflight() error {
	if _, err := os.Stat(b.cfg.Package); err != nil {
		return errors.Wrapf(manifest.ErrMissingFile,
			"cannot locate package.json at %s", b.cfg.Package)
	}
	info, err := os.Stat(b.cfg.Manifests)
	if err != nil || !info.IsDir() {
		return errors.Wrapf(manifest.ErrMissingFile,
			"manifests directory not found: %s", b.cfg.Manifests)
	}

	return nil
}

// BuildAll builds targets in parallel. Results are in the order of targets.
// The first failure cancels the builds that have not started yet.
func (b *Builder) BuildAll(ctx context.Context, targets []string) ([]Result, error) {
	if err := b.Preflight(); err != nil {
		return nil, err
	}

	results := make([]Result, len(targets))
	g, ctx := errgroup.WithContext(ctx)
	for i, target := range targets {
		g.Go(func() error {
			res, err := b.Build(ctx, target)
			if err != nil {
				return errors.Wrapf(err, "[%s]", target)
			}
			results[i] = res

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

// Build produces dist/<target>/ and dist/<target>.zip.
func (b *Builder) Build(ctx context.Context, target string) (Result, error) {
	if !slices.Contains(b.cfg.Targets, target) {
		return Result{}, errors.Wrap(ErrUnknownTarget, target)
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	log := b.log.With(zap.String("target", target))
	distDir := filepath.Join(b.cfg.Dist, target)

	if err := os.RemoveAll(distDir); err != nil {
		return Result{}, errors.Wrap(err, "clean output directory")
	}
	if err := os.MkdirAll(distDir, 0o755); err != nil {
		return Result{}, errors.Wrap(err, "create output directory")
	}

	merged, err := manifest.Load(b.cfg.Manifests, b.cfg.Package, target)
	if err != nil {
		return Result{}, err
	}

	if err := copyTree(b.cfg.Src, distDir, b.cfg.Exclude); err != nil {
		return Result{}, err
	}

	// Written after copying so nothing from the source tree can replace it.
	if err := fsext.WriteFileAtomic(
		filepath.Join(distDir, ManifestFile), merged, 0o644,
	); err != nil {
		return Result{}, errors.Wrap(err, "write manifest")
	}
	log.Info("copied files and wrote manifest", zap.String("dir", distDir))

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	zipPath := filepath.Join(b.cfg.Dist, target+".zip")
	size, err := zipDir(distDir, zipPath)
	if err != nil {
		return Result{}, err
	}
	log.Info("zipped",
		zap.String("path", zipPath),
		zap.String("size", humanize.Bytes(uint64(size))),
	)

	return Result{
		Target:    target,
		DistDir:   distDir,
		ZipPath:   zipPath,
		SizeBytes: size,
	}, nil
}
