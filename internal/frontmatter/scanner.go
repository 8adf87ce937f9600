package frontmatter

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/JakeFAU/ogcards/internal/logging"
	"github.com/JakeFAU/ogcards/internal/metrics"
)

// Stats summarizes one scan.
type Stats struct {
	Files    int
	Jobs     int
	Excluded int
	Failed   int
}

// Scanner walks a posts directory and collects render jobs.
type Scanner struct {
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewScanner returns a Scanner. Both arguments may be nil.
func NewScanner(logger *zap.Logger, m *metrics.Metrics) *Scanner {
	return &Scanner{
		logger:  logging.OrNop(logger),
		metrics: m,
	}
}

// Scan returns the jobs for every eligible post under root, in lexical
// depth-first order. Per-file problems are logged and skipped; the walk stops
// early only if ctx is canceled.
func (s *Scanner) Scan(ctx context.Context, root string) []Job {
	jobs, stats := s.scan(ctx, root)
	s.logger.Info("frontmatter scan finished",
		zap.String("root", root),
		zap.Int("files", stats.Files),
		zap.Int("jobs", stats.Jobs),
		zap.Int("excluded", stats.Excluded),
		zap.Int("failed", stats.Failed),
	)
	return jobs
}

func (s *Scanner) scan(ctx context.Context, root string) ([]Job, Stats) {
	var (
		jobs  []Job
		stats Stats
	)
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			s.logger.Warn("failed to walk directory entry", zap.String("path", path), zap.Error(err))
			return nil
		}
		if !d.Type().IsRegular() || !isMarkdown(d.Name()) {
			return nil
		}

		stats.Files++
		job, decision, err := s.readJob(path)
		switch {
		case err != nil:
			stats.Failed++
			s.metrics.ObserveScan(metrics.ScanFailed)
			s.logger.Error("failed to read frontmatter", zap.String("path", path), zap.Error(err))
		case decision != Include:
			stats.Excluded++
			s.metrics.ObserveScan(metrics.ScanExcluded)
			s.logger.Debug("post excluded", zap.String("path", path), zap.Stringer("reason", decision))
		default:
			stats.Jobs++
			s.metrics.ObserveScan(metrics.ScanIncluded)
			jobs = append(jobs, job)
		}
		return nil
	})
	if walkErr != nil {
		s.logger.Warn("frontmatter scan interrupted", zap.String("root", root), zap.Error(walkErr))
	}
	return jobs, stats
}

func (s *Scanner) readJob(path string) (Job, Decision, error) {
	contents, err := os.ReadFile(path) //nolint:gosec // paths come from walking the posts dir
	if err != nil {
		return Job{}, Include, errors.Wrap(err, "read file")
	}
	meta, decision, err := Parse(string(contents))
	if err != nil || decision != Include {
		return Job{}, decision, err
	}
	return Job{
		Title:       meta.Title,
		Description: meta.Description,
		OutputPath:  ImagePath(path),
		Source:      path,
	}, Include, nil
}
