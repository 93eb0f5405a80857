package records

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Record statuses. A record carries the outcome of one parse run; anything
// other than StatusOK has no Result and a non-empty Error.
const (
	StatusOK             = "ok"
	StatusMissingContent = "missing_content"
	StatusBadValue       = "bad_value"
	StatusNoMatch        = "no_match"
	StatusError          = "error"
)

// ValidStatuses lists every status a record can have.
var ValidStatuses = map[string]bool{
	StatusOK:             true,
	StatusMissingContent: true,
	StatusBadValue:       true,
	StatusNoMatch:        true,
	StatusError:          true,
}

// Record is the persisted outcome of a single statblock parse.
type Record struct {
	// Identity
	ID     string `json:"id"`     // UUID v4, also the run ID in logs
	Source string `json:"source"` // Input origin: file name, "stdin", "http"

	// Schema provenance
	SchemaVersion string `json:"schema_version"` // Schema formatVersion
	SchemaRev     string `json:"schema_rev"`     // Git commit or file hash of the schema, if known

	// Outcome
	Status string         `json:"status"`           // One of the Status* constants
	Name   string         `json:"name,omitempty"`   // First parsed record's name field
	Result map[string]any `json:"result,omitempty"` // Parser output on success
	Error  string         `json:"error,omitempty"`  // Parse error text on failure

	// Input
	InputHash  string `json:"input_hash"`  // SHA-256 of the normalized input
	InputLines int    `json:"input_lines"` // Number of non-empty input lines

	// Timing
	ParsedAt time.Time     `json:"parsed_at"` // When the parse finished
	Duration time.Duration `json:"duration"`  // Parse wall time
}

// Query defines filter parameters for querying records.
type Query struct {
	// IDs restricts the query to these record IDs
	IDs []string `json:"ids,omitempty"`

	// Time range on ParsedAt
	StartTime *time.Time `json:"start_time,omitempty"` // Inclusive start time
	EndTime   *time.Time `json:"end_time,omitempty"`   // Inclusive end time

	// Filters
	Status        string `json:"status,omitempty"`         // Exact status
	Name          string `json:"name,omitempty"`           // Case-insensitive substring of Name
	Source        string `json:"source,omitempty"`         // Exact source
	SchemaVersion string `json:"schema_version,omitempty"` // Exact schema version

	// Pagination
	Limit  int `json:"limit,omitempty"`  // Max records to return (0 = backend default)
	Offset int `json:"offset,omitempty"` // Skip N records

	// SortOrder is "asc" or "desc" (default) on ParsedAt
	SortOrder string `json:"sort_order,omitempty"`
}

// Storage defines the interface for record storage backends.
// Implementations must be safe for concurrent use.
type Storage interface {
	// Store persists a record. Storing an existing ID fails.
	Store(ctx context.Context, record *Record) error

	// Get returns one record by ID, or ErrRecordNotFound.
	Get(ctx context.Context, id string) (*Record, error)

	// Query retrieves records matching the filters, newest first unless
	// SortOrder is "asc". Returns an empty slice if nothing matches.
	Query(ctx context.Context, query *Query) ([]*Record, error)

	// Count returns the number of records matching the filters. Limit and
	// Offset are ignored.
	Count(ctx context.Context, query *Query) (int64, error)

	// Delete removes records matching the filters and returns how many
	// were removed. Limit and Offset are ignored.
	Delete(ctx context.Context, query *Query) (int64, error)

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases any resources held by the storage backend.
	Close() error
}

// maxHashSize bounds how much input is hashed.
const maxHashSize = 1024 * 1024

// HashInput returns the hex SHA-256 of the input text, hashing at most the
// first megabyte. Returns an empty string for empty input.
func HashInput(text string) string {
	if text == "" {
		return ""
	}
	content := []byte(text)
	if len(content) > maxHashSize {
		content = content[:maxHashSize]
	}
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
