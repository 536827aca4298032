package loader

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	geojson "github.com/paulmach/go.geojson"

	"github.com/okian/ladder/internal/domain/model"
)

// shapeNamespace seeds ids for features that carry none, so the same file
// always yields the same ids.
var shapeNamespace = uuid.MustParse("6f1c9b8e-2f0d-4b8e-9a57-0c1d7e0b9a11")

var (
	nameFallbacks = []string{"name", "NAME", "ADMIN", "admin", "name_long", "NAME_LONG"}
	idFallbacks   = []string{"id", "ISO_A3", "iso_a3", "ADM0_A3"}
)

// ParseShapes decodes a GeoJSON FeatureCollection. The region name is taken
// from nameProp, then from common property names. Geometry is kept as the
// decoded *geojson.Geometry and never inspected.
func ParseShapes(data []byte, nameProp string) ([]model.ShapeFeature, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("%w: geojson: %w", ErrMalformed, err)
	}
	ids := make([]string, len(fc.Features))
	reserved := make(map[string]struct{}, len(fc.Features))
	for i, f := range fc.Features {
		if f == nil {
			continue
		}
		ids[i] = featureID(f)
		reserved[ids[i]] = struct{}{}
	}

	out := make([]model.ShapeFeature, 0, len(fc.Features))
	taken := make(map[string]struct{}, len(fc.Features))
	next := make(map[string]int)
	for i, f := range fc.Features {
		if f == nil {
			continue
		}
		name := propertyString(f.Properties, append([]string{nameProp}, nameFallbacks...))
		id := ids[i]
		if id == "" {
			id = uuid.NewSHA1(shapeNamespace, []byte(name+"#"+strconv.Itoa(i))).String()
		}
		// Some public catalogs reuse "-99" for disputed regions. Repeats get
		// the first free numeric suffix that no feature in the file claims.
		if _, dup := taken[id]; dup {
			base := id
			for {
				next[base]++
				id = base + "-" + strconv.Itoa(next[base])
				_, used := taken[id]
				_, claimed := reserved[id]
				if !used && !claimed {
					break
				}
			}
		}
		taken[id] = struct{}{}
		out = append(out, model.ShapeFeature{ID: id, Name: name, Geometry: f.Geometry})
	}
	return out, nil
}

func featureID(f *geojson.Feature) string {
	switch v := f.ID.(type) {
	case string:
		if v != "" {
			return v
		}
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	}
	return propertyString(f.Properties, idFallbacks)
}

func propertyString(props map[string]interface{}, keys []string) string {
	for _, k := range keys {
		if k == "" {
			continue
		}
		if s, ok := props[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// EncodeShapes renders features back to a FeatureCollection with id and
// name properties. Extra properties per feature id are merged in.
func EncodeShapes(features []model.ShapeFeature, extra map[string]map[string]interface{}) ([]byte, error) {
	fc := geojson.NewFeatureCollection()
	for _, sf := range features {
		geom, _ := sf.Geometry.(*geojson.Geometry)
		f := geojson.NewFeature(geom)
		f.ID = sf.ID
		f.SetProperty("id", sf.ID)
		f.SetProperty("name", sf.Name)
		for k, v := range extra[sf.ID] {
			f.SetProperty(k, v)
		}
		fc.AddFeature(f)
	}
	return fc.MarshalJSON()
}
