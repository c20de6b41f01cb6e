package feeds

import (
	"encoding/csv"
	stderrors "errors"
	"io"
	"strings"

	"github.com/romiem/ai-bands/pkg/errors"
	"github.com/romiem/ai-bands/pkg/records"
)

func decodeCSV(source string, r io.Reader) (*Batch, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if stderrors.Is(err, io.EOF) {
		return nil, formatChanged(source, "empty csv")
	}
	if err != nil {
		return nil, errors.WrapParse("csv", source, err)
	}
	if len(header) < 2 ||
		!strings.Contains(strings.ToLower(header[0]), "artist") ||
		!strings.Contains(strings.ToLower(header[1]), "id") {
		return nil, formatChanged(source, "expected header \"artist,id\"")
	}

	batch := &Batch{Source: source}
	for {
		row, err := cr.Read()
		if stderrors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if stderrors.As(err, &pe) {
				batch.Skipped = append(batch.Skipped, errors.NewParseError("csv", source, pe.Line, pe.Err.Error(), err))
				continue
			}
			return nil, errors.WrapIO("read", source, err)
		}
		line, _ := cr.FieldPos(0)
		if len(row) < 2 {
			batch.Skipped = append(batch.Skipped, errors.NewParseError("csv", source, line, "expected 2 columns", nil))
			continue
		}

		name, id := strings.TrimSpace(row[0]), strings.TrimSpace(row[1])
		if id == "" {
			batch.Skipped = append(batch.Skipped, errors.NewParseError("csv", source, line, "missing artist id", nil))
			continue
		}
		batch.Records = append(batch.Records, records.Record{
			"name":    name,
			"spotify": spotifyURL(id),
		})
	}
	return batch, nil
}
