package param

import (
	"fmt"
	"slices"
)

// Registry maps column labels to accessors.
type Registry struct {
	accessors map[string]Accessor
	order     []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{accessors: make(map[string]Accessor)}
}

// Register adds or replaces the accessor for label.
func (r *Registry) Register(label string, a Accessor) {
	if _, ok := r.accessors[label]; !ok {
		r.order = append(r.order, label)
	}
	r.accessors[label] = a
}

// Lookup returns the accessor registered for label.
func (r *Registry) Lookup(label string) (Accessor, bool) {
	a, ok := r.accessors[label]
	return a, ok
}

// Labels returns the registered labels in registration order.
func (r *Registry) Labels() []string { return slices.Clone(r.order) }

// ColumnError reports an invalid column request.
type ColumnError struct {
	Column string
	Reason string
}

func (e *ColumnError) Error() string {
	return fmt.Sprintf("column %q: %s", e.Column, e.Reason)
}

// Resolve builds a Resolver for the requested columns. Labels the registry
// does not know are read as raw keys. Every required column must also be
// requested. With no columns the resolver passes observations through.
func (r *Registry) Resolve(columns, required []string) (*Resolver, error) {
	res := &Resolver{required: make(map[string]bool, len(required))}
	seen := make(map[string]bool, len(columns))
	keySeen := make(map[string]bool)
	for _, name := range columns {
		if name == "" {
			return nil, &ColumnError{Column: name, Reason: "empty column name"}
		}
		if seen[name] {
			return nil, &ColumnError{Column: name, Reason: "requested more than once"}
		}
		seen[name] = true
		a, ok := r.Lookup(name)
		if !ok {
			a = Raw(name)
		}
		res.columns = append(res.columns, column{name: name, acc: a})
		for _, k := range a.Keys() {
			if !keySeen[k] {
				keySeen[k] = true
				res.keys = append(res.keys, k)
			}
		}
	}
	for _, name := range required {
		if !seen[name] {
			return nil, &ColumnError{Column: name, Reason: "required but not requested"}
		}
		res.required[name] = true
	}
	return res, nil
}

// NewDefaultRegistry returns a registry with station, time, position and
// common surface parameters.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	for _, c := range []Computed{Datetime(), WMOStationID(), WIGOSID(), Position(), CRS()} {
		r.Register(c.Label, c)
	}
	r.Register("station_id", Fallback{
		Label: "station_id",
		Accessors: []Accessor{
			WIGOSID(),
			WMOStationID(),
			Simple{Key: "shipOrMobileLandStationIdentifier", Dtype: String},
		},
	})
	r.Register("station_name", Simple{Key: "stationOrSiteName", Label: "station_name", Dtype: String})
	r.Register("lat", Simple{Key: "latitude", Label: "lat", Dtype: Float})
	r.Register("lon", Simple{Key: "longitude", Label: "lon", Dtype: Float})
	r.Register("elevation", Fallback{
		Label: "elevation",
		Accessors: []Accessor{
			Simple{Key: "heightOfStationGroundAboveMeanSeaLevel", Dtype: Float},
			Simple{Key: "heightOfStation", Dtype: Float},
		},
	})

	surface := []struct {
		label, key, units string
		period            bool
	}{
		{"t2m", "airTemperature", "K", false},
		{"td2m", "dewpointTemperature", "K", false},
		{"rh2m", "relativeHumidity", "%", false},
		{"ws", "windSpeed", "m/s", false},
		{"wdir", "windDirection", "deg", false},
		{"tmax", "maximumTemperatureAtHeightAndOverPeriodSpecified", "K", true},
		{"tmin", "minimumTemperatureAtHeightAndOverPeriodSpecified", "K", true},
		{"tp", "totalPrecipitationOrTotalWaterEquivalent", "kg m-2", true},
	}
	for _, p := range surface {
		q := Qualified{
			Inner:    Simple{Key: p.key, Label: p.label, Dtype: Float, Units: p.units},
			CoordKey: KeySensorHeight,
		}
		if p.period {
			q.PeriodKey = KeyTimePeriod
		}
		r.Register(p.label, q)
	}
	r.Register("mslp", Simple{Key: "pressureReducedToMeanSeaLevel", Label: "mslp", Dtype: Float, Units: "Pa"})
	r.Register("pres", Simple{Key: "nonCoordinatePressure", Label: "pres", Dtype: Float, Units: "Pa"})
	r.Register("vis", Simple{Key: "horizontalVisibility", Label: "vis", Dtype: Float, Units: "m"})
	r.Register("cloud_cover", Simple{Key: "cloudCoverTotal", Label: "cloud_cover", Dtype: Float, Units: "%"})
	return r
}
