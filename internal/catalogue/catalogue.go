// Package catalogue reads external earthquake catalogues into normalized
// events. Supported formats are GeoJSON feature collections (USGS and
// GeoNet style), a QuakeML subset, and delimited CSV exports.
//
// Readers are tolerant: a malformed record is skipped and reported, never
// fatal for the whole file. Only an unreadable or structurally broken file
// fails the read.
package catalogue

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/seismo-tools/quakemerge/internal/model"
)

// Result is a parsed catalogue: the events that survived validation and one
// error per skipped record.
type Result struct {
	Events  []model.Event
	Skipped []error
}

// ReadFile parses a catalogue file, picking the format from the extension.
// The file's base name (without extension) becomes the catalogue ID.
func ReadFile(ctx context.Context, path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "catalogue: open %s", path)
	}
	defer f.Close()

	id := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	var result *Result
	switch strings.ToLower(filepath.Ext(path)) {
	case ".geojson", ".json":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, eris.Wrapf(err, "catalogue: read %s", path)
		}
		result, err = ReadGeoJSON(data, id)
		if err != nil {
			return nil, err
		}
	case ".xml", ".quakeml", ".qml":
		result, err = ReadQuakeML(ctx, f, id)
		if err != nil {
			return nil, err
		}
	case ".csv":
		result, err = ReadCSV(f, id)
		if err != nil {
			return nil, err
		}
	default:
		return nil, eris.Errorf("catalogue: unsupported format %q", filepath.Ext(path))
	}

	zap.L().Info("catalogue: file loaded",
		zap.String("path", path),
		zap.Int("events", len(result.Events)),
		zap.Int("skipped", len(result.Skipped)),
	)
	return result, nil
}

// accept validates an event and appends it to the result, or records why it
// was skipped.
func (r *Result) accept(ev model.Event) {
	if err := Validate(&ev); err != nil {
		r.Skipped = append(r.Skipped, err)
		return
	}
	r.Events = append(r.Events, ev)
}
