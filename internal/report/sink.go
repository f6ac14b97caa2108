package report

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/custodia-labs/tally/internal/core/ports/driven"
)

// Ensure FileSink implements the interface.
var _ driven.ReportSink = (*FileSink)(nil)

// FileSink writes report artifacts into a directory. An existing file is
// never overwritten; a numeric suffix is added instead.
type FileSink struct {
	fs  afero.Fs
	dir string
}

// NewFileSink creates a sink rooted at dir on fs.
func NewFileSink(fs afero.Fs, dir string) *FileSink {
	return &FileSink{fs: fs, dir: dir}
}

// Write stores data as name inside the sink directory and returns the path.
func (s *FileSink) Write(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}

	name = filepath.Base(name)
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	path := filepath.Join(s.dir, name)
	for i := 1; ; i++ {
		exists, err := afero.Exists(s.fs, path)
		if err != nil {
			return "", err
		}
		if !exists {
			break
		}
		path = filepath.Join(s.dir, fmt.Sprintf("%s-%d%s", stem, i, ext))
	}

	if err := afero.WriteFile(s.fs, path, data, 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}

// Name returns the suggested artifact name for a run finished at t.
func Name(t time.Time, ext string) string {
	return fmt.Sprintf("analysis_report_%d%s", t.Unix(), ext)
}

// OSFileSink is a FileSink on the operating system filesystem.
func OSFileSink(dir string) *FileSink {
	return NewFileSink(afero.NewOsFs(), dir)
}
