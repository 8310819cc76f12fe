package authority

import (
	"strings"

	shp "github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
)

// LoadRegionsShapefile reads polygon shapes from a shapefile into regions,
// named from the given attribute field (commonly "NAME"). Non-polygon shapes
// are skipped. Only the first ring of each shape is used as the region
// shell; island parts and holes are ignored, which is adequate for the
// coarse network-coverage regions this is used for.
func LoadRegionsShapefile(path, nameField string) ([]*Region, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "authority: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	nameIdx := -1
	for i, f := range reader.Fields() {
		if strings.EqualFold(strings.TrimRight(string(f.Name[:]), "\x00"), nameField) {
			nameIdx = i
			break
		}
	}

	var regions []*Region
	skipped := 0
	for reader.Next() {
		_, shape := reader.Shape()
		polyShape, ok := shape.(*shp.Polygon)
		if !ok || len(polyShape.Points) == 0 {
			skipped++
			continue
		}

		end := len(polyShape.Points)
		if polyShape.NumParts > 1 {
			end = int(polyShape.Parts[1])
		}

		coords := make([]geom.Coord, 0, end)
		for _, pt := range polyShape.Points[:end] {
			coords = append(coords, geom.Coord{pt.X, pt.Y})
		}

		polygon := geom.NewPolygon(geom.XY)
		if _, err := polygon.SetCoords([][]geom.Coord{coords}); err != nil {
			skipped++
			continue
		}

		name := ""
		if nameIdx >= 0 {
			name = strings.TrimSpace(reader.Attribute(nameIdx))
		}
		regions = append(regions, NewRegion(name, polygon))
	}

	zap.L().Info("authority: loaded shapefile regions",
		zap.String("path", path),
		zap.Int("regions", len(regions)),
		zap.Int("skipped", skipped),
	)
	return regions, nil
}
