package feeds

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/romiem/ai-bands/pkg/errors"
	"github.com/romiem/ai-bands/pkg/records"
)

type trashbin struct {
	Artists yaml.MapSlice `yaml:"artists"`
}

// decodeTrashbin keeps the feed's key order.
func decodeTrashbin(source string, r io.Reader) (*Batch, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.WrapIO("read", source, err)
	}
	var doc trashbin
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.WrapParse("json", source, err)
	}

	batch := &Batch{Source: source}
	for i, item := range doc.Artists {
		key, _ := item.Key.(string)
		parts := strings.Split(key, ":")
		if len(parts) != 3 || parts[0] != "spotify" || parts[1] != "artist" || parts[2] == "" {
			batch.Skipped = append(batch.Skipped, errors.NewParseError("json", source, i+1,
				fmt.Sprintf("unexpected artist key %q", key), nil))
			continue
		}
		rec := records.Record{"spotify": spotifyURL(parts[2])}
		if details, ok := item.Value.(map[string]any); ok {
			if name, ok := details["name"].(string); ok && strings.TrimSpace(name) != "" {
				rec["name"] = strings.TrimSpace(name)
			}
		}
		batch.Records = append(batch.Records, rec)
	}

	if len(batch.Records) == 0 {
		return nil, formatChanged(source, "no spotify artist ids found")
	}
	return batch, nil
}

// decodeRecords reads a JSON or YAML list of records.
func decodeRecords(source string, r io.Reader) (*Batch, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.WrapIO("read", source, err)
	}
	var items []any
	if err := yaml.Unmarshal(data, &items); err != nil {
		return nil, formatChanged(source, "expected a list of artist records")
	}

	batch := &Batch{Source: source}
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			batch.Skipped = append(batch.Skipped, errors.NewParseError("records", source, i+1, "item is not an object", nil))
			continue
		}
		if msg := unsupported(obj); msg != "" {
			batch.Skipped = append(batch.Skipped, errors.NewParseError("records", source, i+1, msg, nil))
			continue
		}
		batch.Records = append(batch.Records, records.Normalize(obj))
	}
	return batch, nil
}

// unsupported describes the first field, in key order, holding something
// other than null, a string or a list of strings.
func unsupported(obj map[string]any) string {
	fields := make([]string, 0, len(obj))
	for field := range obj {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	for _, field := range fields {
		switch v := obj[field].(type) {
		case nil, string, []string:
		case []any:
			for n, item := range v {
				if _, ok := item.(string); !ok {
					return fmt.Sprintf("field %s item %d is not a string", field, n+1)
				}
			}
		default:
			return fmt.Sprintf("field %s has an unsupported value type", field)
		}
	}
	return ""
}
