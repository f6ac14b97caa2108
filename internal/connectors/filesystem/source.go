// Package filesystem reads documents from a local drop directory and
// watches it for new files.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/afero"

	"github.com/custodia-labs/tally/internal/core/domain"
	"github.com/custodia-labs/tally/internal/core/ports/driven"
)

// ProcessedDir is the subdirectory acknowledged files are moved into.
const ProcessedDir = ".processed"

// Ensure Source implements the interfaces.
var (
	_ driven.FileSource     = (*Source)(nil)
	_ driven.DocumentLoader = (*Source)(nil)
	_ driven.PendingLister  = (*Source)(nil)
)

// Source lists the regular, non-hidden files at the top level of a
// directory. Acknowledged files are moved into ProcessedDir so they are
// not listed again. With archiving off, files stay in place and are only
// hidden for the life of the Source. Source ids are file paths.
type Source struct {
	fs      afero.Fs
	dir     string
	archive bool

	mu    sync.Mutex
	acked map[string]bool
}

// NewSource creates an archiving source over dir.
func NewSource(fsys afero.Fs, dir string) *Source {
	return &Source{fs: fsys, dir: filepath.Clean(dir), archive: true, acked: make(map[string]bool)}
}

// SetArchive turns moving acknowledged files into ProcessedDir on or off.
func (s *Source) SetArchive(on bool) {
	s.archive = on
}

// NewOSSource creates a source over a directory on the local disk.
func NewOSSource(dir string) *Source {
	return NewSource(afero.NewOsFs(), dir)
}

// Dir returns the watched directory.
func (s *Source) Dir() string {
	return s.dir
}

// ListPending returns every pending document in name order.
func (s *Source) ListPending(ctx context.Context) ([]domain.Document, error) {
	ids, err := s.PendingIDs(ctx)
	if err != nil {
		return nil, err
	}
	docs := make([]domain.Document, 0, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		doc, err := s.Load(ctx, id)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, nil
}

// PendingIDs returns the paths of every pending file in name order.
func (s *Source) PendingIDs(ctx context.Context) ([]string, error) {
	entries, err := afero.ReadDir(s.fs, s.dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", s.dir, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var ids []string
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := filepath.Join(s.dir, e.Name())
		if !e.Mode().IsRegular() || isHidden(e.Name()) || s.isAcked(path) {
			continue
		}
		ids = append(ids, path)
	}
	return ids, nil
}

// Load reads one document. The id must name a file inside the directory.
func (s *Source) Load(_ context.Context, sourceID string) (*domain.Document, error) {
	path, err := s.resolve(sourceID)
	if err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(s.fs, path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, sourceID)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", sourceID, err)
	}
	return &domain.Document{
		SourceID: path,
		Filename: filepath.Base(path),
		MIMEHint: mimetype.Detect(data).String(),
		Content:  data,
	}, nil
}

// Ack moves the file into ProcessedDir, or only remembers it when
// archiving is off. A file already gone is not an error.
func (s *Source) Ack(_ context.Context, sourceID string) error {
	path, err := s.resolve(sourceID)
	if err != nil {
		return err
	}
	if !s.archive {
		s.mu.Lock()
		s.acked[path] = true
		s.mu.Unlock()
		return nil
	}
	if ok, _ := afero.Exists(s.fs, path); !ok {
		return nil
	}

	done := filepath.Join(s.dir, ProcessedDir)
	if err := s.fs.MkdirAll(done, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", done, err)
	}
	target := filepath.Join(done, filepath.Base(path))
	if ok, _ := afero.Exists(s.fs, target); ok {
		ext := filepath.Ext(target)
		target = fmt.Sprintf("%s-%d%s", strings.TrimSuffix(target, ext), time.Now().UnixNano(), ext)
	}
	if err := s.fs.Rename(path, target); err != nil {
		return fmt.Errorf("move %s: %w", sourceID, err)
	}
	return nil
}

func (s *Source) isAcked(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.acked[path]
}

// resolve accepts a bare name or a path and keeps it inside the directory.
func (s *Source) resolve(sourceID string) (string, error) {
	path := ResolvePath(sourceID)
	if !filepath.IsAbs(path) && !strings.HasPrefix(filepath.Clean(path), s.dir+string(filepath.Separator)) {
		path = filepath.Join(s.dir, path)
	}
	path = filepath.Clean(path)
	if filepath.Dir(path) != s.dir {
		return "", fmt.Errorf("%w: %s is outside %s", domain.ErrInvalidInput, sourceID, s.dir)
	}
	return path, nil
}

// isHidden reports whether a file name starts with a dot.
func isHidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}
