package google

import (
	"context"

	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// NewDriveService creates a Google Drive API service using ts.
// Extra options are appended, which lets tests point it at a fake server.
func NewDriveService(ctx context.Context, ts oauth2.TokenSource, opts ...option.ClientOption) (*drive.Service, error) {
	return drive.NewService(ctx, append([]option.ClientOption{option.WithTokenSource(ts)}, opts...)...)
}
