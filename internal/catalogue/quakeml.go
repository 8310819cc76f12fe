package catalogue

import (
	"context"
	"encoding/xml"
	"io"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/seismo-tools/quakemerge/internal/geodesy"
	"github.com/seismo-tools/quakemerge/internal/model"
)

// kmPerDegree converts QuakeML station distances (degrees) to kilometres.
const kmPerDegree = geodesy.KmPerDegree

// quakeMLEvent is the subset of a QuakeML <event> element this tool reads.
// Values with uncertainties follow the QuakeML RealQuantity shape.
type quakeMLEvent struct {
	PublicID string `xml:"publicID,attr"`
	Origin   struct {
		Time struct {
			Value       string   `xml:"value"`
			Uncertainty *float64 `xml:"uncertainty"`
		} `xml:"time"`
		Latitude  realQuantity `xml:"latitude"`
		Longitude realQuantity `xml:"longitude"`
		Depth     realQuantity `xml:"depth"` // metres
		Quality   struct {
			UsedStationCount *int     `xml:"usedStationCount"`
			UsedPhaseCount   *int     `xml:"usedPhaseCount"`
			AzimuthalGap     *float64 `xml:"azimuthalGap"`
			StandardError    *float64 `xml:"standardError"`
			MinimumDistance  *float64 `xml:"minimumDistance"` // degrees
			MaximumDistance  *float64 `xml:"maximumDistance"` // degrees
		} `xml:"quality"`
		OriginUncertainty struct {
			HorizontalUncertainty *float64 `xml:"horizontalUncertainty"` // metres
		} `xml:"originUncertainty"`
		CreationInfo struct {
			AgencyID string `xml:"agencyID"`
		} `xml:"creationInfo"`
	} `xml:"origin"`
	Magnitude struct {
		Mag  realQuantity `xml:"mag"`
		Type string       `xml:"type"`
	} `xml:"magnitude"`
	FocalMechanism *struct {
		NodalPlanes struct {
			NodalPlane1 struct {
				Strike realQuantity `xml:"strike"`
				Dip    realQuantity `xml:"dip"`
				Rake   realQuantity `xml:"rake"`
			} `xml:"nodalPlane1"`
		} `xml:"nodalPlanes"`
		CreationInfo struct {
			AgencyID string `xml:"agencyID"`
		} `xml:"creationInfo"`
	} `xml:"focalMechanism"`
	CreationInfo struct {
		AgencyID     string `xml:"agencyID"`
		CreationTime string `xml:"creationTime"`
	} `xml:"creationInfo"`
}

type realQuantity struct {
	Value       *float64 `xml:"value"`
	Uncertainty *float64 `xml:"uncertainty"`
}

// ReadQuakeML streams <event> elements out of a QuakeML document. Non-UTF-8
// documents are transcoded via the declared charset.
func ReadQuakeML(ctx context.Context, r io.Reader, catalogueID string) (*Result, error) {
	decoder := xml.NewDecoder(r)
	decoder.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		enc, err := htmlindex.Get(charset)
		if err != nil {
			return nil, eris.Wrapf(err, "catalogue: unsupported charset %q", charset)
		}
		return enc.NewDecoder().Reader(input), nil
	}

	result := &Result{}
	for {
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "catalogue: quakeml read cancelled")
		}

		tok, err := decoder.Token()
		if err == io.EOF {
			return result, nil
		}
		if err != nil {
			return nil, eris.Wrap(err, "catalogue: read quakeml token")
		}

		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "event" {
			continue
		}

		var raw quakeMLEvent
		if err := decoder.DecodeElement(&raw, &se); err != nil {
			result.Skipped = append(result.Skipped, eris.Wrap(err, "catalogue: decode quakeml event"))
			continue
		}
		result.accept(quakeMLToEvent(&raw, catalogueID))
	}
}

func quakeMLToEvent(raw *quakeMLEvent, catalogueID string) model.Event {
	ev := model.Event{
		ID:          shortPublicID(raw.PublicID),
		CatalogueID: catalogueID,
	}

	if raw.Origin.Latitude.Value != nil {
		ev.Latitude = *raw.Origin.Latitude.Value
	}
	if raw.Origin.Longitude.Value != nil {
		ev.Longitude = *raw.Origin.Longitude.Value
	}
	if raw.Origin.Depth.Value != nil {
		ev.Depth = model.Float(*raw.Origin.Depth.Value / 1000)
	}
	if raw.Origin.Depth.Uncertainty != nil {
		ev.Uncertainty.Depth = model.Float(*raw.Origin.Depth.Uncertainty / 1000)
	}
	if raw.Origin.OriginUncertainty.HorizontalUncertainty != nil {
		ev.Uncertainty.Horizontal = model.Float(*raw.Origin.OriginUncertainty.HorizontalUncertainty / 1000)
	}
	if raw.Origin.Time.Value != "" {
		if ts, err := time.Parse(time.RFC3339, raw.Origin.Time.Value); err == nil {
			ev.Time = model.Timestamp(ts.UTC())
		}
	}
	ev.Uncertainty.Time = raw.Origin.Time.Uncertainty

	if raw.Magnitude.Mag.Value != nil {
		ev.Magnitude = *raw.Magnitude.Mag.Value
	}
	ev.MagnitudeType = model.MagnitudeType(strings.TrimSpace(raw.Magnitude.Type))
	ev.Uncertainty.Magnitude = raw.Magnitude.Mag.Uncertainty

	q := raw.Origin.Quality
	ev.Quality.UsedStationCount = q.UsedStationCount
	ev.Quality.UsedPhaseCount = q.UsedPhaseCount
	ev.Quality.AzimuthalGap = q.AzimuthalGap
	ev.Quality.StandardError = q.StandardError
	if q.MinimumDistance != nil {
		ev.Quality.MinimumDistance = model.Float(*q.MinimumDistance * kmPerDegree)
	}
	if q.MaximumDistance != nil {
		ev.Quality.MaximumDistance = model.Float(*q.MaximumDistance * kmPerDegree)
	}

	ev.Source = raw.Origin.CreationInfo.AgencyID
	if ev.Source == "" {
		ev.Source = raw.CreationInfo.AgencyID
	}
	if ev.Source == "" {
		ev.Source = catalogueID
	}

	if fm := raw.FocalMechanism; fm != nil &&
		fm.NodalPlanes.NodalPlane1.Strike.Value != nil &&
		fm.NodalPlanes.NodalPlane1.Dip.Value != nil &&
		fm.NodalPlanes.NodalPlane1.Rake.Value != nil {
		ev.Mechanism = &model.FocalMechanism{
			Strike: *fm.NodalPlanes.NodalPlane1.Strike.Value,
			Dip:    *fm.NodalPlanes.NodalPlane1.Dip.Value,
			Rake:   *fm.NodalPlanes.NodalPlane1.Rake.Value,
			Source: fm.CreationInfo.AgencyID,
		}
	}

	if raw.CreationInfo.CreationTime != "" {
		if ts, err := time.Parse(time.RFC3339, raw.CreationInfo.CreationTime); err == nil {
			ev.ModifiedAt = model.Timestamp(ts.UTC())
		}
	}
	return ev
}

// shortPublicID strips the QuakeML resource-identifier prefix, keeping the
// catalogue-local event ID.
func shortPublicID(publicID string) string {
	if i := strings.LastIndexAny(publicID, "/:"); i >= 0 && i+1 < len(publicID) {
		return publicID[i+1:]
	}
	return publicID
}
