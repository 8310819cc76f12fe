package catalogue

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/seismo-tools/quakemerge/internal/model"
)

// csvColumns maps recognized header names to canonical field keys. GeoNet
// exports use publicid/origintime, USGS exports use id/time.
var csvColumns = map[string]string{
	"publicid":         "id",
	"id":               "id",
	"eventid":          "id",
	"origintime":       "time",
	"time":             "time",
	"latitude":         "lat",
	"lat":              "lat",
	"longitude":        "lon",
	"lon":              "lon",
	"long":             "lon",
	"depth":            "depth",
	"magnitude":        "mag",
	"mag":              "mag",
	"magnitudetype":    "magtype",
	"magtype":          "magtype",
	"source":           "source",
	"agency":           "source",
	"net":              "source",
	"modificationtime": "updated",
	"updated":          "updated",
}

// ReadCSV parses a delimited catalogue export. The first row must be a
// header; unknown columns are ignored, rows missing required columns are
// skipped with an error.
func ReadCSV(r io.Reader, catalogueID string) (*Result, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, eris.Wrap(err, "catalogue: read csv header")
	}
	fields := make(map[string]int)
	for i, name := range header {
		if key, ok := csvColumns[strings.ToLower(strings.TrimSpace(name))]; ok {
			if _, seen := fields[key]; !seen {
				fields[key] = i
			}
		}
	}
	for _, required := range []string{"id", "lat", "lon", "mag"} {
		if _, ok := fields[required]; !ok {
			return nil, eris.Errorf("catalogue: csv header missing %s column", required)
		}
	}

	result := &Result{}
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			return result, nil
		}
		line++
		if err != nil {
			result.Skipped = append(result.Skipped, eris.Wrapf(err, "catalogue: csv line %d", line))
			continue
		}

		ev, err := csvRecord(record, fields, catalogueID)
		if err != nil {
			result.Skipped = append(result.Skipped, eris.Wrapf(err, "catalogue: csv line %d", line))
			continue
		}
		result.accept(ev)
	}
}

func csvRecord(record []string, fields map[string]int, catalogueID string) (model.Event, error) {
	cell := func(key string) string {
		if i, ok := fields[key]; ok && i < len(record) {
			return strings.TrimSpace(record[i])
		}
		return ""
	}

	ev := model.Event{ID: cell("id"), CatalogueID: catalogueID}

	var err error
	if ev.Latitude, err = strconv.ParseFloat(cell("lat"), 64); err != nil {
		return ev, eris.Wrap(err, "parse latitude")
	}
	if ev.Longitude, err = strconv.ParseFloat(cell("lon"), 64); err != nil {
		return ev, eris.Wrap(err, "parse longitude")
	}
	if ev.Magnitude, err = strconv.ParseFloat(cell("mag"), 64); err != nil {
		return ev, eris.Wrap(err, "parse magnitude")
	}
	ev.MagnitudeType = model.MagnitudeType(cell("magtype"))

	if s := cell("depth"); s != "" {
		depth, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return ev, eris.Wrap(err, "parse depth")
		}
		ev.Depth = model.Float(depth)
	}
	if s := cell("time"); s != "" {
		ts, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return ev, eris.Wrap(err, "parse origin time")
		}
		ev.Time = model.Timestamp(ts.UTC())
	}
	if s := cell("updated"); s != "" {
		if ts, err := time.Parse(time.RFC3339, s); err == nil {
			ev.ModifiedAt = model.Timestamp(ts.UTC())
		}
	}

	ev.Source = cell("source")
	if ev.Source == "" {
		ev.Source = catalogueID
	}
	return ev, nil
}
