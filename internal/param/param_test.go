package param

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/storm-data-bufr/internal/domain"
	"github.com/couchcryptid/storm-data-bufr/internal/table"
)

func obsOf(kv ...any) *domain.Observation {
	o := domain.NewObservation(len(kv) / 2)
	for i := 0; i < len(kv); i += 2 {
		o.Set(kv[i].(string), kv[i+1])
	}
	return o
}

func unitsCtx(units map[string]string) Context {
	return Context{Units: func(name string) string { return units[name] }}
}

func TestCoerce(t *testing.T) {
	tests := []struct {
		name    string
		in      any
		dt      Dtype
		want    any
		wantErr bool
	}{
		{"nil stays nil", nil, Float, nil, false},
		{"any is identity", "x", Any, "x", false},
		{"int to float", int64(3), Float, 3.0, false},
		{"numeric string to float", " 2.5 ", Float, 2.5, false},
		{"text to float fails", "abc", Float, nil, true},
		{"integral float to int", 12.0, Int, int64(12), false},
		{"fractional float to int fails", 12.5, Int, nil, true},
		{"float to string", 1.5, String, "1.5", false},
		{"rfc3339 to time", "2024-04-26T12:00:00Z", Time, time.Date(2024, 4, 26, 12, 0, 0, 0, time.UTC), false},
		{"number to time fails", 5.0, Time, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Coerce(tt.in, tt.dt)
			if tt.wantErr {
				var ce *domain.ConversionError
				require.ErrorAs(t, err, &ce)
				assert.Equal(t, string(tt.dt), ce.Target)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDtype(t *testing.T) {
	d, err := ParseDtype(" Float ")
	require.NoError(t, err)
	assert.Equal(t, Float, d)
	_, err = ParseDtype("complex")
	assert.Error(t, err)
}

func TestUnitTable(t *testing.T) {
	v, err := DefaultUnits.Convert(280.15, "K", "degC")
	require.NoError(t, err)
	assert.InDelta(t, 7.0, v, 1e-9)

	v, err = DefaultUnits.Convert(7, "C", "K")
	require.NoError(t, err)
	assert.InDelta(t, 280.15, v, 1e-9)

	v, err = DefaultUnits.Convert(101325, "Pa", "hPa")
	require.NoError(t, err)
	assert.InDelta(t, 1013.25, v, 1e-9)

	v, err = DefaultUnits.Convert(42, "m", "m")
	require.NoError(t, err)
	assert.Equal(t, 42.0, v)

	_, err = DefaultUnits.Convert(1, "K", "m")
	assert.Error(t, err)
}

func TestSimple(t *testing.T) {
	ctx := unitsCtx(map[string]string{"airTemperature": "K", "stationOrSiteName": ""})

	t.Run("copies the raw value", func(t *testing.T) {
		r, err := Raw("stationOrSiteName").Collect(obsOf("stationOrSiteName", "DE BILT"), ctx)
		require.NoError(t, err)
		assert.Equal(t, Result{{Name: "stationOrSiteName", Value: "DE BILT"}}, r)
	})

	t.Run("absent key yields nothing", func(t *testing.T) {
		r, err := Raw("x").Collect(obsOf("y", 1), ctx)
		require.NoError(t, err)
		assert.Empty(t, r)
	})

	t.Run("failed coercion keeps the raw value", func(t *testing.T) {
		s := Simple{Key: "k", Dtype: Float}
		r, err := s.Collect(obsOf("k", "n/a"), ctx)
		require.NoError(t, err)
		assert.Equal(t, "n/a", r[0].Value)
	})

	t.Run("converts units and adds a units column", func(t *testing.T) {
		s := Simple{Key: "airTemperature", Label: "t2m", Dtype: Float, Units: "degC"}
		r, err := s.Collect(obsOf("airTemperature", 280.15), ctx)
		require.NoError(t, err)
		require.Len(t, r, 2)
		assert.Equal(t, "t2m", r[0].Name)
		assert.InDelta(t, 7.0, r[0].Value, 1e-9)
		assert.Equal(t, table.Cell{Name: "t2m_units", Value: "degC"}, r[1])
	})

	t.Run("unknown conversion reports source units", func(t *testing.T) {
		s := Simple{Key: "airTemperature", Label: "t2m", Units: "m"}
		r, err := s.Collect(obsOf("airTemperature", 280.15), ctx)
		require.NoError(t, err)
		assert.Equal(t, Result{{Name: "t2m", Value: 280.15}, {Name: "t2m_units", Value: "K"}}, r)
	})

	t.Run("missing value keeps units column", func(t *testing.T) {
		s := Simple{Key: "airTemperature", Label: "t2m", Units: "K"}
		r, err := s.Collect(obsOf("airTemperature", nil), ctx)
		require.NoError(t, err)
		assert.Equal(t, Result{{Name: "t2m", Value: nil}, {Name: "t2m_units", Value: "K"}}, r)
		assert.False(t, hasData(r), "a units column alone is not data")
	})

	t.Run("reads rank-qualified observations", func(t *testing.T) {
		r, err := Raw("latitude").Collect(obsOf("#1#latitude", 52.1), ctx)
		require.NoError(t, err)
		assert.Equal(t, Result{{Name: "latitude", Value: 52.1}}, r)
	})
}

func TestDatetime(t *testing.T) {
	dt := Datetime()

	t.Run("assembles the instant", func(t *testing.T) {
		obs := obsOf("year", int64(2024), "month", int64(4), "day", int64(26), "hour", int64(12), "minute", int64(30))
		r, err := dt.Collect(obs, Context{})
		require.NoError(t, err)
		assert.Equal(t, Result{{Name: LabelDatetime, Value: time.Date(2024, 4, 26, 12, 30, 0, 0, time.UTC)}}, r)
	})

	t.Run("missing hour gives nil", func(t *testing.T) {
		obs := obsOf("year", int64(2024), "month", int64(4), "day", int64(26), "hour", nil)
		r, err := dt.Collect(obs, Context{})
		require.NoError(t, err)
		assert.Equal(t, Result{{Name: LabelDatetime, Value: nil}}, r)
	})

	t.Run("raise on missing", func(t *testing.T) {
		obs := obsOf("year", int64(2024), "month", int64(4), "day", nil)
		_, err := dt.Collect(obs, Context{RaiseOnMissing: true})
		assert.ErrorIs(t, err, domain.ErrAllValuesMissing)
		assert.ErrorIs(t, err, errMissingInput)
	})

	t.Run("invalid date", func(t *testing.T) {
		obs := obsOf("year", 2024, "month", 2, "day", 30, "hour", 0)
		r, err := dt.Collect(obs, Context{})
		require.NoError(t, err)
		assert.Nil(t, r[0].Value)
	})

	t.Run("no inputs present", func(t *testing.T) {
		r, err := dt.Collect(obsOf("latitude", 1.0), Context{})
		require.NoError(t, err)
		assert.Empty(t, r)

		raising := Datetime()
		raising.RaiseOnMissing = true
		_, err = raising.Collect(obsOf("latitude", 1.0), Context{})
		assert.ErrorIs(t, err, domain.ErrAllValuesMissing)
	})

	t.Run("fractional seconds", func(t *testing.T) {
		obs := obsOf("year", 2024, "month", 1, "day", 1, "hour", 0, "minute", 0, "second", 5.7)
		r, err := dt.Collect(obs, Context{})
		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 5, 0, time.UTC), r[0].Value)
	})
}

func TestComputedBuiltins(t *testing.T) {
	tests := []struct {
		name string
		acc  Computed
		obs  *domain.Observation
		want any
	}{
		{"wmo station id", WMOStationID(), obsOf("blockNumber", int64(6), "stationNumber", int64(260)), int64(6260)},
		{"wmo station id missing station", WMOStationID(), obsOf("blockNumber", int64(6), "stationNumber", nil), nil},
		{"wigos id", WIGOSID(), obsOf(
			"wigosIdentifierSeries", int64(0),
			"wigosIssuerOfIdentifier", int64(20000),
			"wigosIssueNumber", int64(0),
			"wigosLocalIdentifierCharacter", "06260  ",
		), "0-20000-0-06260"},
		{"wigos id missing local", WIGOSID(), obsOf("wigosIdentifierSeries", int64(0)), nil},
		{"position with height", Position(), obsOf(
			"latitude", 52.1, "longitude", 5.18, "heightOfStationGroundAboveMeanSeaLevel", 1.9,
		), []any{5.18, 52.1, 1.9}},
		{"position without height", Position(), obsOf("latitude", 52.1, "longitude", 5.18), []any{5.18, 52.1, nil}},
		{"crs", CRS(), obsOf("coordinateReferenceSystem", int64(1)), "EPSG:4258"},
		{"crs unknown code", CRS(), obsOf("coordinateReferenceSystem", int64(9)), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := tt.acc.Collect(tt.obs, Context{})
			require.NoError(t, err)
			require.Len(t, r, 1)
			assert.Equal(t, tt.acc.Label, r[0].Name)
			if diff := cmp.Diff(tt.want, r[0].Value); diff != "" {
				t.Errorf("value mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestQualified(t *testing.T) {
	tp := Qualified{
		Inner:     Simple{Key: "totalPrecipitationOrTotalWaterEquivalent", Label: "tp", Units: "kg m-2"},
		CoordKey:  KeySensorHeight,
		PeriodKey: KeyTimePeriod,
	}
	ctx := unitsCtx(map[string]string{
		"totalPrecipitationOrTotalWaterEquivalent": "kg m-2",
		KeyTimePeriod: "h",
	})

	assert.Equal(t, []string{"totalPrecipitationOrTotalWaterEquivalent", KeySensorHeight, KeyTimePeriod}, tp.Keys())
	assert.Equal(t, []string{"tp"}, tp.Labels())

	t.Run("period and level", func(t *testing.T) {
		obs := obsOf(KeySensorHeight, 1.5, KeyTimePeriod, int64(-6), "totalPrecipitationOrTotalWaterEquivalent", 0.4)
		r, err := tp.Collect(obs, ctx)
		require.NoError(t, err)
		want := Result{
			{Name: "tp_6h", Value: 0.4},
			{Name: "tp_6h_units", Value: "kg m-2"},
			{Name: "tp_6h_level", Value: 1.5},
		}
		assert.Equal(t, want, r)
	})

	t.Run("minutes", func(t *testing.T) {
		obs := obsOf(KeyTimePeriod, int64(-10), "totalPrecipitationOrTotalWaterEquivalent", 0.1)
		r, err := tp.Collect(obs, unitsCtx(map[string]string{KeyTimePeriod: "min"}))
		require.NoError(t, err)
		assert.Equal(t, "tp_10min", r[0].Name)
	})

	t.Run("no qualifiers", func(t *testing.T) {
		r, err := tp.Collect(obsOf("totalPrecipitationOrTotalWaterEquivalent", 2.0), ctx)
		require.NoError(t, err)
		assert.Equal(t, Result{{Name: "tp", Value: 2.0}, {Name: "tp_units", Value: "kg m-2"}}, r)
	})

	t.Run("absent measurement", func(t *testing.T) {
		r, err := tp.Collect(obsOf(KeyTimePeriod, int64(-6)), ctx)
		require.NoError(t, err)
		assert.Empty(t, r)
	})
}

func TestFallback(t *testing.T) {
	f := Fallback{
		Label: "elevation",
		Accessors: []Accessor{
			Simple{Key: "heightOfStationGroundAboveMeanSeaLevel", Units: "m"},
			Simple{Key: "heightOfStation"},
		},
	}
	assert.Equal(t, []string{"heightOfStationGroundAboveMeanSeaLevel", "heightOfStation"}, f.Keys())
	assert.Equal(t, []string{"elevation"}, f.Labels())

	r, err := f.Collect(obsOf("heightOfStationGroundAboveMeanSeaLevel", nil, "heightOfStation", 12.0), Context{})
	require.NoError(t, err)
	assert.Equal(t, Result{{Name: "elevation", Value: 12.0}}, r)

	r, err = f.Collect(obsOf("heightOfStationGroundAboveMeanSeaLevel", 3.0), unitsCtx(map[string]string{"heightOfStationGroundAboveMeanSeaLevel": "m"}))
	require.NoError(t, err)
	assert.Equal(t, Result{{Name: "elevation", Value: 3.0}, {Name: "elevation_units", Value: "m"}}, r)

	r, err = f.Collect(obsOf("other", 1), Context{})
	require.NoError(t, err)
	assert.Empty(t, r)
}

func TestFallback_SkipsRaisingAccessors(t *testing.T) {
	f := Fallback{Label: "station_id", Accessors: []Accessor{WIGOSID(), WMOStationID()}}
	ctx := Context{RaiseOnMissing: true}

	r, err := f.Collect(obsOf("blockNumber", 6, "stationNumber", 260), ctx)
	require.NoError(t, err)
	assert.Equal(t, Result{{Name: "station_id", Value: int64(6260)}}, r)

	_, err = f.Collect(obsOf("latitude", 1.0), ctx)
	assert.ErrorIs(t, err, domain.ErrAllValuesMissing)
}

func TestRegistry_Resolve(t *testing.T) {
	reg := NewDefaultRegistry()

	t.Run("unknown labels read raw keys", func(t *testing.T) {
		res, err := reg.Resolve([]string{"WMO_station_id", "stationOrSiteName"}, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"WMO_station_id", "stationOrSiteName"}, res.Columns())
		assert.Equal(t, []string{"blockNumber", "stationNumber", "stationOrSiteName"}, res.Keys())
	})

	t.Run("shared keys are listed once", func(t *testing.T) {
		res, err := reg.Resolve([]string{"station_id", "WMO_station_id"}, nil)
		require.NoError(t, err)
		keys := res.Keys()
		assert.Len(t, keys, 7)
		assert.Equal(t, "blockNumber", keys[4])
	})

	t.Run("required must be requested", func(t *testing.T) {
		_, err := reg.Resolve([]string{"t2m"}, []string{"lat"})
		var ce *ColumnError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, "lat", ce.Column)
	})

	t.Run("duplicate column", func(t *testing.T) {
		_, err := reg.Resolve([]string{"lat", "lat"}, nil)
		var ce *ColumnError
		assert.ErrorAs(t, err, &ce)
	})

	t.Run("empty column name", func(t *testing.T) {
		_, err := reg.Resolve([]string{""}, nil)
		assert.Error(t, err)
	})
}

func TestResolver_Resolve(t *testing.T) {
	reg := NewDefaultRegistry()
	res, err := reg.Resolve([]string{"WMO_station_id", "lat", "t2m"}, []string{"lat"})
	require.NoError(t, err)
	ctx := unitsCtx(map[string]string{"airTemperature": "K"})

	t.Run("full row", func(t *testing.T) {
		obs := obsOf("blockNumber", 6, "stationNumber", 260, "latitude", 52.1, KeySensorHeight, 1.5, "airTemperature", 280.15)
		row, err := res.Resolve(obs, ctx)
		require.NoError(t, err)
		want := table.Row{
			{Name: "WMO_station_id", Value: int64(6260)},
			{Name: "lat", Value: 52.1},
			{Name: "t2m", Value: 280.15},
			{Name: "t2m_units", Value: "K"},
			{Name: "t2m_level", Value: 1.5},
		}
		if diff := cmp.Diff(want, row); diff != "" {
			t.Errorf("row mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("optional column missing", func(t *testing.T) {
		row, err := res.Resolve(obsOf("latitude", 52.1), ctx)
		require.NoError(t, err)
		assert.Equal(t, table.Row{{Name: "WMO_station_id"}, {Name: "lat", Value: 52.1}, {Name: "t2m"}}, row)
	})

	t.Run("required column missing drops the row", func(t *testing.T) {
		row, err := res.Resolve(obsOf("blockNumber", 6, "stationNumber", 260, "latitude", nil), ctx)
		require.NoError(t, err)
		assert.Nil(t, row)
	})

	t.Run("nothing resolved drops the row", func(t *testing.T) {
		open, err := reg.Resolve([]string{"lat", "lon"}, nil)
		require.NoError(t, err)
		row, err := open.Resolve(obsOf("airTemperature", 280.0), ctx)
		require.NoError(t, err)
		assert.Nil(t, row)
	})

	t.Run("raise propagates", func(t *testing.T) {
		strict, err := reg.Resolve([]string{"data_datetime"}, nil)
		require.NoError(t, err)
		_, err = strict.Resolve(obsOf("latitude", 1.0), Context{RaiseOnMissing: true})
		assert.ErrorIs(t, err, domain.ErrAllValuesMissing)
	})

	t.Run("passthrough", func(t *testing.T) {
		all, err := reg.Resolve(nil, nil)
		require.NoError(t, err)
		assert.True(t, all.Passthrough())
		assert.Nil(t, all.Keys())
		row, err := all.Resolve(obsOf("a", 1, "b", nil), ctx)
		require.NoError(t, err)
		assert.Equal(t, table.Row{{Name: "a", Value: 1}, {Name: "b"}}, row)
	})
}

func TestRegistry_LoadYAML(t *testing.T) {
	doc := `
parameters:
  - label: precip
    keys: [totalPrecipitationPast24Hours, totalPrecipitationOrTotalWaterEquivalent]
    dtype: float
    period: timePeriod
  - label: t2m
    key: airTemperature
    units: degC
  - label: station
    computed: wmo_station_id
`
	reg := NewDefaultRegistry()
	require.NoError(t, reg.LoadYAML(strings.NewReader(doc)))

	a, ok := reg.Lookup("precip")
	require.True(t, ok)
	assert.IsType(t, Fallback{}, a)
	r, err := a.Collect(obsOf(KeyTimePeriod, -24, "totalPrecipitationOrTotalWaterEquivalent", 3.5), Context{})
	require.NoError(t, err)
	assert.Equal(t, Result{{Name: "precip_24h", Value: 3.5}}, r)

	a, ok = reg.Lookup("t2m")
	require.True(t, ok)
	assert.Equal(t, Simple{Key: "airTemperature", Label: "t2m", Units: "degC"}, a)

	a, ok = reg.Lookup("station")
	require.True(t, ok)
	assert.Equal(t, []string{"station"}, a.Labels())

	labels := reg.Labels()
	assert.Equal(t, "station", labels[len(labels)-1])
}

func TestRegistry_LoadYAML_Invalid(t *testing.T) {
	tests := map[string]string{
		"missing label":    "parameters:\n  - key: x\n",
		"missing key":      "parameters:\n  - label: x\n",
		"bad dtype":        "parameters:\n  - label: x\n    key: x\n    dtype: complex\n",
		"unknown computed": "parameters:\n  - label: x\n    computed: nope\n",
		"computed keys":    "parameters:\n  - label: x\n    computed: crs\n    key: y\n",
		"unknown field":    "parameters:\n  - label: x\n    key: x\n    colour: red\n",
		"not yaml":         "parameters: [",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			reg := NewRegistry()
			doc := "parameters:\n  - label: ok\n    key: ok\n" + strings.TrimPrefix(doc, "parameters:\n")
			err := reg.LoadYAML(strings.NewReader(doc))
			require.Error(t, err)
			_, ok := reg.Lookup("ok")
			assert.False(t, ok, "nothing is registered when a definition is invalid")
		})
	}
}

func TestRegistry_LoadYAML_Empty(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.LoadYAML(strings.NewReader("")))
	assert.Empty(t, reg.Labels())
}

func TestConversionErrorUnwrap(t *testing.T) {
	_, err := Coerce("x", Float)
	assert.True(t, errors.Is(err, errUnsupported))
}
