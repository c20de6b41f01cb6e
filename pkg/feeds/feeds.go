// Package feeds decodes external artist lists that have already been
// downloaded. Every decoded record is stamped with the external provenance
// tag and the feed's own source tag.
//
// A malformed row or item is skipped and reported; a feed whose overall
// shape is not the expected one fails with errors.ErrFormatChanged.
package feeds

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/romiem/ai-bands/pkg/constants"
	"github.com/romiem/ai-bands/pkg/errors"
	"github.com/romiem/ai-bands/pkg/logging"
	"github.com/romiem/ai-bands/pkg/records"
)

// Format identifies a feed layout.
type Format string

// Supported formats.
const (
	// FormatCSV is a header row naming the artist and id columns, then one
	// "name,spotify id" row per artist.
	FormatCSV Format = "csv"
	// FormatTrashbin is a JSON object whose "artists" keys are Spotify URIs
	// ("spotify:artist:<id>").
	FormatTrashbin Format = "trashbin"
	// FormatRecords is a JSON or YAML list of artist records.
	FormatRecords Format = "records"
)

// Formats lists the supported formats.
func Formats() []Format {
	return []Format{FormatCSV, FormatTrashbin, FormatRecords}
}

// ParseFormat resolves a format name.
func ParseFormat(name string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(name)))
	switch f {
	case FormatCSV, FormatTrashbin, FormatRecords:
		return f, nil
	case "json", "yaml", "yml":
		return FormatRecords, nil
	}
	return "", &errors.ValidationError{Field: "format", Value: name, Message: "unsupported feed format"}
}

// Feed describes a named external list.
type Feed struct {
	Name   string
	Format Format
	// Tag is stamped on every record next to the external tag.
	Tag string
}

// Known lists the external lists the catalog imports from.
var Known = map[string]Feed{
	"cennoxx": {
		Name:   "cennoxx",
		Format: FormatCSV,
		Tag:    "CennoxX/spotify-ai-blocker",
	},
	"eye-wave": {
		Name:   "eye-wave",
		Format: FormatTrashbin,
		Tag:    "eye-wave/spotify-ai-blocklist",
	},
}

// Lookup returns a known feed by name.
func Lookup(name string) (Feed, error) {
	f, ok := Known[strings.ToLower(name)]
	if !ok {
		names := make([]string, 0, len(Known))
		for n := range Known {
			names = append(names, n)
		}
		sort.Strings(names)
		return Feed{}, &errors.NotFoundError{Resource: "feed", ID: fmt.Sprintf("%s (known: %s)", name, strings.Join(names, ", "))}
	}
	return f, nil
}

// Batch is a decoded feed.
type Batch struct {
	Source  string
	Records []records.Record
	// Skipped holds one ParseError per dropped row or item.
	Skipped []error
}

// Decode reads a feed from r. source names the input in errors and logs.
func Decode(ctx context.Context, feed Feed, source string, r io.Reader) (*Batch, error) {
	ctx = logging.WithSource(ctx, source)
	logger := logging.FromContext(ctx).With().Str("format", string(feed.Format)).Logger()

	var (
		batch *Batch
		err   error
	)
	switch feed.Format {
	case FormatCSV:
		batch, err = decodeCSV(source, r)
	case FormatTrashbin:
		batch, err = decodeTrashbin(source, r)
	case FormatRecords:
		batch, err = decodeRecords(source, r)
	default:
		return nil, &errors.ValidationError{Field: "format", Value: feed.Format, Message: "unsupported feed format"}
	}
	if err != nil {
		return nil, err
	}

	tags := []string{constants.TagExternal}
	if feed.Tag != "" {
		tags = append(tags, feed.Tag)
	}
	for _, rec := range batch.Records {
		rec.SetTags(records.UnionTags(rec.Tags(), tags))
	}

	for _, skipped := range batch.Skipped {
		logger.Warn().Err(skipped).Msg("Skipping malformed feed entry")
	}
	logger.Debug().Int("records", len(batch.Records)).Int("skipped", len(batch.Skipped)).Msg("Decoded feed")
	return batch, nil
}

func formatChanged(source, detail string) error {
	return fmt.Errorf("%w: %s: %s", errors.ErrFormatChanged, source, detail)
}

func spotifyURL(id string) string {
	return constants.SpotifyArtistURL + id
}
