// Package drive lists and downloads documents from a Google Drive folder.
package drive

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"google.golang.org/api/drive/v3"

	"github.com/custodia-labs/tally/internal/connectors/google"
	"github.com/custodia-labs/tally/internal/core/domain"
	"github.com/custodia-labs/tally/internal/core/ports/driven"
	"github.com/custodia-labs/tally/internal/logger"
)

// ProcessedProperty is the app property set on acknowledged files.
const ProcessedProperty = "tally_processed"

// Ensure Source implements the interfaces.
var (
	_ driven.FileSource     = (*Source)(nil)
	_ driven.DocumentLoader = (*Source)(nil)
	_ driven.PendingLister  = (*Source)(nil)
)

// Source is a Drive folder. Source ids are Drive file ids.
type Source struct {
	svc     *drive.Service
	cfg     Config
	limiter *google.RateLimiter

	mu    sync.Mutex
	acked map[string]bool
}

// NewSource creates a source. A nil limiter uses the Drive defaults.
func NewSource(svc *drive.Service, cfg Config, limiter *google.RateLimiter) *Source {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 100
	}
	if limiter == nil {
		limiter = google.NewRateLimiter(0, 0)
	}
	return &Source{svc: svc, cfg: cfg, limiter: limiter, acked: make(map[string]bool)}
}

// ListPending downloads every supported, unprocessed file in the folder.
// A file that fails to download is logged and skipped.
func (s *Source) ListPending(ctx context.Context) ([]domain.Document, error) {
	files, err := s.pendingFiles(ctx)
	if err != nil {
		return nil, err
	}

	var docs []domain.Document
	for _, f := range files {
		doc, err := s.download(ctx, f)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Warn("skipping drive file %s: %v", f.Name, err)
			continue
		}
		docs = append(docs, *doc)
	}
	return docs, nil
}

// PendingIDs lists the ids of supported, unprocessed files without
// downloading them.
func (s *Source) PendingIDs(ctx context.Context) ([]string, error) {
	files, err := s.pendingFiles(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(files))
	for _, f := range files {
		ids = append(ids, f.Id)
	}
	return ids, nil
}

// pendingFiles lists the folder and keeps supported, unprocessed files.
func (s *Source) pendingFiles(ctx context.Context) ([]*drive.File, error) {
	if s.cfg.FolderID == "" {
		return nil, fmt.Errorf("%w: drive folder id is empty", domain.ErrInvalidConfig)
	}

	query := fmt.Sprintf("'%s' in parents and trashed = false and mimeType != '%s'", s.cfg.FolderID, MimeTypeFolder)
	var files []*drive.File
	pageToken := ""
	for {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		call := s.svc.Files.List().
			Q(query).
			PageSize(s.cfg.PageSize).
			OrderBy("name").
			Fields("nextPageToken", "files("+fileFields+")").
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		resp, err := call.Do()
		if err != nil {
			s.noteRateLimit(err)
			return nil, fmt.Errorf("list folder %s: %w", s.cfg.FolderID, google.WrapError(err))
		}
		for _, f := range resp.Files {
			if supported(f) && !s.processed(f) {
				files = append(files, f)
			}
		}
		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}
	return files, nil
}

// Load downloads one file by id.
func (s *Source) Load(ctx context.Context, fileID string) (*domain.Document, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	f, err := s.svc.Files.Get(fileID).Fields(fileFields).Context(ctx).Do()
	if err != nil {
		s.noteRateLimit(err)
		return nil, fmt.Errorf("get %s: %w", fileID, google.WrapError(err))
	}
	if !supported(f) {
		return nil, fmt.Errorf("%w: %s (%s)", domain.ErrUnsupportedFormat, f.Name, f.MimeType)
	}
	return s.download(ctx, f)
}

// Ack remembers the file and, when configured, tags it on Drive. A failed
// tag is logged; the in-process record still hides the file.
func (s *Source) Ack(ctx context.Context, fileID string) error {
	s.mu.Lock()
	s.acked[fileID] = true
	s.mu.Unlock()

	if !s.cfg.MarkProcessed {
		return nil
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	update := &drive.File{AppProperties: map[string]string{ProcessedProperty: "true"}}
	if _, err := s.svc.Files.Update(fileID, update).Fields("id").Context(ctx).Do(); err != nil {
		s.noteRateLimit(err)
		err = google.WrapError(err)
		if errors.Is(err, domain.ErrServiceAuth) {
			logger.Debug("cannot tag drive file %s, remembering it locally: %v", fileID, err)
			return nil
		}
		return fmt.Errorf("tag %s: %w", fileID, err)
	}
	return nil
}

func (s *Source) download(ctx context.Context, f *drive.File) (*domain.Document, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	data, mimeHint, err := fetchContent(ctx, s.svc, f)
	if err != nil {
		return nil, err
	}
	return &domain.Document{
		SourceID: f.Id,
		Filename: exportName(f),
		MIMEHint: mimeHint,
		Content:  data,
	}, nil
}

func (s *Source) processed(f *drive.File) bool {
	if f.AppProperties[ProcessedProperty] == "true" {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.acked[f.Id]
}

func (s *Source) noteRateLimit(err error) {
	if google.IsRateLimited(err) {
		s.limiter.RecordRateLimitError(0)
	}
}
