// Package constants provides shared constants used throughout the aibands codebase.
package constants

// File permission constants define standard Unix file permissions
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x)
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644
)

// Layout constants
const (
	// DateLayout is the calendar-date format used for dateAdded and dateUpdated.
	DateLayout = "2006-01-02"

	// DefaultSrcDir holds one JSON file per artist, relative to the repo root.
	DefaultSrcDir = "src"

	// DefaultDistDir receives the combined catalog.
	DefaultDistDir = "dist"

	// DefaultSchemaFile is the artist schema, relative to the repo root.
	DefaultSchemaFile = "artist.schema.json"

	// CombinedFileName is the name of the combined catalog written by build.
	CombinedFileName = "ai-bands.json"

	// LockFileName serializes import runs against one corpus directory.
	LockFileName = ".aibands.lock"

	// RecordExt is the extension of corpus record files.
	RecordExt = ".json"
)

// Record field names the engine reads or stamps.
const (
	FieldID          = "id"
	FieldName        = "name"
	FieldTags        = "tags"
	FieldDateAdded   = "dateAdded"
	FieldDateUpdated = "dateUpdated"
)

// Provenance tags.
const (
	// TagExternal marks a record created from an external list.
	TagExternal = "external"

	// TagExternalModified marks a first-party record changed by an external list.
	TagExternalModified = "external-modified"
)

// ProvenanceTags lists every reserved provenance tag.
var ProvenanceTags = []string{TagExternal, TagExternalModified}

// IsProvenanceTag reports whether tag is a reserved provenance tag.
func IsProvenanceTag(tag string) bool {
	return tag == TagExternal || tag == TagExternalModified
}

// Identifier constants
const (
	// FallbackID is the slug base used when a name slugifies to nothing.
	FallbackID = "imported-artist"

	// SuffixBytes is the number of random bytes appended (hex) to colliding ids.
	SuffixBytes = 6

	// SpotifyArtistURL prefixes bare Spotify artist ids from feeds.
	SpotifyArtistURL = "https://open.spotify.com/artist/"
)

// CLI constants
const (
	// EnvPrefix prefixes every configuration environment variable.
	EnvPrefix = "AIBANDS"

	// ConfigName is the config file name searched in the working and home directories.
	ConfigName = ".aibands"

	// DefaultLedgerFile is the run journal, relative to the repo root.
	DefaultLedgerFile = ".aibands/ledger.db"

	// DefaultHistoryLimit bounds the runs listed by history.
	DefaultHistoryLimit = 20
)
