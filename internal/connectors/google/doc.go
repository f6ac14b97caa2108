// Package google provides shared infrastructure for the Google Drive file
// source:
//   - Service factory for an authenticated Drive client
//   - Mapping of Google API errors onto the domain service error classes
//   - Rate limiting to respect Drive API quotas
//
// # Usage
//
//	svc, err := google.NewDriveService(ctx, google.StaticTokenSource(token))
//	src := drive.NewSource(svc, folderID, google.NewRateLimiter(8, 10))
//
// # OAuth2 Scopes
//
// Listing and downloading needs https://www.googleapis.com/auth/drive.readonly.
// Marking files as processed needs https://www.googleapis.com/auth/drive.file;
// without it processed files are remembered for the lifetime of the process.
package google
