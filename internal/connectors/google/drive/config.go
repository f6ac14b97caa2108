package drive

// Config holds Google Drive source configuration.
type Config struct {
	// FolderID is the folder whose direct children are listed.
	FolderID string

	// PageSize is the page size for list requests.
	PageSize int64

	// MarkProcessed records acknowledged files as an app property so other
	// processes skip them too. Needs the drive.file scope.
	MarkProcessed bool
}

// DefaultConfig returns the default configuration for folderID.
func DefaultConfig(folderID string) Config {
	return Config{FolderID: folderID, PageSize: 100, MarkProcessed: true}
}
