package index

import "github.com/starford/dupegraph/internal/parser"

// ResourceIndex defines the interface for resource indexing operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type ResourceIndex interface {
	UpsertResource(r ResourceRow, refs []parser.Reference) error
	DeleteResource(path string) error
	GetChecksum(path string) (string, error)
	GetResource(path string) (*ResourceRow, error)
	FindByName(kind, name string) (*ResourceRow, error)
	ListResources(kind string, limit, offset int) ([]ResourceRow, int, error)
	Search(query string, limit int) ([]SearchResult, error)
	Users(kind, name string) ([]User, error)
	AllPaths() (map[string]struct{}, error)
	AllChecksums() (map[string]string, error)
	Close() error
}

// Verify *DB satisfies ResourceIndex at compile time.
var _ ResourceIndex = (*DB)(nil)
