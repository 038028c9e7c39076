package geomap

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"medservice-console/internal/model"
)

// FeatureCollection 可定位的机构转为 GeoJSON 点要素
func FeatureCollection(locations []model.FacilityLocation) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, l := range locations {
		if !l.HasCoordinates() {
			continue
		}
		f := geojson.NewFeature(orb.Point{l.Longitude, l.Latitude})
		f.ID = l.ID
		f.Properties["name"] = l.Name
		f.Properties["city"] = l.City
		f.Properties["type"] = l.Type
		f.Properties["address"] = l.Address
		f.Properties["device_count"] = len(l.Devices)
		fc.Append(f)
	}
	return fc
}
