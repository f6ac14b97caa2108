package drive

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"google.golang.org/api/drive/v3"

	"github.com/custodia-labs/tally/internal/connectors/google"
)

// Google Workspace MIME types.
const (
	MimeTypeGoogleDoc = "application/vnd.google-apps.document"
	MimeTypeFolder    = "application/vnd.google-apps.folder"
	mimeTypeWorkspace = "application/vnd.google-apps."
)

// ExportMimeDocx is the format Google Docs are exported in.
const ExportMimeDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// MaxFileSize is the largest file downloaded (50MB).
const MaxFileSize = 50 << 20

const fileFields = "id, name, mimeType, size, appProperties"

// supported reports whether file can be analysed. Google Docs are
// exported to docx; other Workspace types and folders are skipped.
func supported(file *drive.File) bool {
	switch {
	case file.MimeType == MimeTypeGoogleDoc:
		return true
	case strings.HasPrefix(file.MimeType, mimeTypeWorkspace):
		return false
	case file.Size > MaxFileSize:
		return false
	}
	return true
}

// exportName gives exported Google Docs a .docx name.
func exportName(file *drive.File) string {
	if file.MimeType == MimeTypeGoogleDoc && !strings.HasSuffix(strings.ToLower(file.Name), ".docx") {
		return file.Name + ".docx"
	}
	return file.Name
}

// fetchContent downloads a file, exporting Google Docs to docx.
// It returns the bytes and the MIME hint for the extractor registry.
func fetchContent(ctx context.Context, svc *drive.Service, file *drive.File) ([]byte, string, error) {
	var (
		resp *http.Response
		err  error
	)
	mimeHint := file.MimeType
	if file.MimeType == MimeTypeGoogleDoc {
		resp, err = svc.Files.Export(file.Id, ExportMimeDocx).Context(ctx).Download()
		mimeHint = ExportMimeDocx
	} else {
		resp, err = svc.Files.Get(file.Id).Context(ctx).Download()
	}
	if err != nil {
		return nil, "", fmt.Errorf("download %s: %w", file.Name, google.WrapError(err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxFileSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", file.Name, err)
	}
	if len(data) > MaxFileSize {
		return nil, "", fmt.Errorf("%s is larger than %d bytes", file.Name, MaxFileSize)
	}
	return data, mimeHint, nil
}
