// Package bufrtest builds synthetic decoded messages shaped like real SYNOP
// and TEMP reports. Tests, the mock generator and the integration suite share
// these fixtures.
package bufrtest

import (
	"fmt"
	"math"
	"time"

	"github.com/couchcryptid/storm-data-bufr/internal/bufr"
)

// Station is one surface report.
type Station struct {
	Block     int
	Number    int
	Name      string
	Lat       float64
	Lon       float64
	Elevation float64
	// Observed values; NaN encodes a missing value.
	AirTemperature float64 // K
	Dewpoint       float64 // K
	WindSpeed      float64 // m/s
	Precip1h       float64 // kg m-2
}

// Local returns the WIGOS local identifier, the zero-padded WMO index.
func (s Station) Local() string { return fmt.Sprintf("%02d%03d", s.Block, s.Number) }

// WSI returns the station's WIGOS identifier.
func (s Station) WSI() string { return "0-20000-0-" + s.Local() }

// WMOID returns block*1000 + station number.
func (s Station) WMOID() int64 { return int64(s.Block*1000 + s.Number) }

// Stations is a fixed set of Dutch synoptic stations.
var Stations = []Station{
	{Block: 6, Number: 260, Name: "DE BILT", Lat: 52.1, Lon: 5.18, Elevation: 1.9, AirTemperature: 285.35, Dewpoint: 281.05, WindSpeed: 3.1, Precip1h: 0.0},
	{Block: 6, Number: 280, Name: "GRONINGEN/EELDE", Lat: 53.12, Lon: 6.58, Elevation: 3.5, AirTemperature: 283.95, Dewpoint: 280.45, WindSpeed: 4.6, Precip1h: 0.4},
	{Block: 6, Number: 290, Name: "TWENTHE", Lat: 52.27, Lon: 6.89, Elevation: 34.8, AirTemperature: 284.75, Dewpoint: math.NaN(), WindSpeed: 2.2, Precip1h: 1.2},
	{Block: 6, Number: 310, Name: "VLISSINGEN", Lat: 51.44, Lon: 3.6, Elevation: 8, AirTemperature: math.NaN(), Dewpoint: math.NaN(), WindSpeed: 7.9, Precip1h: math.NaN()},
	{Block: 6, Number: 380, Name: "MAASTRICHT", Lat: 50.91, Lon: 5.77, Elevation: 114.3, AirTemperature: 286.15, Dewpoint: 279.85, WindSpeed: 1.5, Precip1h: 0.0},
}

// Level is one pressure level of an upper-air sounding.
type Level struct {
	Pressure       float64 // Pa
	AirTemperature float64 // K
	Dewpoint       float64 // K
	WindSpeed      float64 // m/s
}

// Levels is a short sounding.
var Levels = []Level{
	{Pressure: 100000, AirTemperature: 288.1, Dewpoint: 284.2, WindSpeed: 4},
	{Pressure: 85000, AirTemperature: 279.5, Dewpoint: 275.3, WindSpeed: 11},
	{Pressure: 70000, AirTemperature: 270.4, Dewpoint: 261.7, WindSpeed: 15},
	{Pressure: 50000, AirTemperature: 252.1, Dewpoint: math.NaN(), WindSpeed: 24},
}

// SynopSequence is the unexpanded descriptor of the surface template.
const SynopSequence = 307080

// TempSequence is the unexpanded descriptor of the sounding template.
const TempSequence = 309052

func header(m *bufr.MapMessage, category, subsets int, compressed bool, descriptor int) *bufr.MapMessage {
	c := int64(0)
	if compressed {
		c = 1
	}
	return m.
		SetHeader("edition", int64(4)).
		SetHeader("masterTableNumber", int64(0)).
		SetHeader("dataCategory", int64(category)).
		SetHeader("numberOfSubsets", int64(subsets)).
		SetHeader("compressedData", c).
		SetHeader("unexpandedDescriptors", []any{int64(descriptor)})
}

func value(f float64) any {
	if math.IsNaN(f) {
		return bufr.MissingDouble
	}
	return f
}

// column collects one value per station; identical values collapse to a
// scalar the way compressing encoders store constant fields.
func column(stations []Station, fn func(Station) any) any {
	vals := make([]any, len(stations))
	same := true
	for i, s := range stations {
		vals[i] = fn(s)
		if vals[i] != vals[0] {
			same = false
		}
	}
	if same && len(vals) > 0 {
		return vals[0]
	}
	return vals
}

type field struct {
	name  string
	code  string
	units string
	value func(Station) any
}

func surfaceFields(at time.Time) []field {
	return []field{
		{"wigosIdentifierSeries", "001125", "", func(Station) any { return int64(0) }},
		{"wigosIssuerOfIdentifier", "001126", "", func(Station) any { return int64(20000) }},
		{"wigosIssueNumber", "001127", "", func(Station) any { return int64(0) }},
		{"wigosLocalIdentifierCharacter", "001128", "CCITT IA5", func(s Station) any { return s.Local() }},
		{"blockNumber", "001001", "", func(s Station) any { return int64(s.Block) }},
		{"stationNumber", "001002", "", func(s Station) any { return int64(s.Number) }},
		{"stationOrSiteName", "001015", "CCITT IA5", func(s Station) any { return fmt.Sprintf("%-20s", s.Name) }},
		{"year", "004001", "a", func(Station) any { return int64(at.Year()) }},
		{"month", "004002", "mon", func(Station) any { return int64(at.Month()) }},
		{"day", "004003", "d", func(Station) any { return int64(at.Day()) }},
		{"hour", "004004", "h", func(Station) any { return int64(at.Hour()) }},
		{"minute", "004005", "min", func(Station) any { return int64(at.Minute()) }},
		{"latitude", "005001", "deg", func(s Station) any { return s.Lat }},
		{"longitude", "006001", "deg", func(s Station) any { return s.Lon }},
		{"heightOfStationGroundAboveMeanSeaLevel", "007030", "m", func(s Station) any { return s.Elevation }},
		{"heightOfSensorAboveLocalGroundOrDeckOfMarinePlatform", "007032", "m", func(Station) any { return 2.0 }},
		{"airTemperature", "012101", "K", func(s Station) any { return value(s.AirTemperature) }},
		{"dewpointTemperature", "012103", "K", func(s Station) any { return value(s.Dewpoint) }},
		{"heightOfSensorAboveLocalGroundOrDeckOfMarinePlatform", "007032", "m", func(Station) any { return 10.0 }},
		{"windSpeed", "011002", "m/s", func(s Station) any { return value(s.WindSpeed) }},
		{"timePeriod", "004024", "h", func(Station) any { return int64(-1) }},
		{"totalPrecipitationOrTotalWaterEquivalent", "013011", "kg m-2", func(s Station) any { return value(s.Precip1h) }},
	}
}

// rankedKeys numbers repeated names the way decoders do: #1#, #2#, ...
func rankedKeys(fields []field) []string {
	seen := make(map[string]int, len(fields))
	keys := make([]string, len(fields))
	for i, f := range fields {
		seen[f.name]++
		keys[i] = fmt.Sprintf("#%d#%s", seen[f.name], f.name)
	}
	return keys
}

// Synop returns a compressed multi-subset surface message, one subset per
// station.
func Synop(at time.Time, stations []Station) *bufr.MapMessage {
	m := header(bufr.NewMapMessage(), 0, len(stations), true, SynopSequence)
	fields := surfaceFields(at)
	for i, key := range rankedKeys(fields) {
		f := fields[i]
		m.Add(key, column(stations, f.value), f.code, f.units)
	}
	return m
}

// SynopUncompressed returns the same report with one key block per station,
// each block opened by a subsetNumber marker.
func SynopUncompressed(at time.Time, stations []Station) *bufr.MapMessage {
	m := header(bufr.NewMapMessage(), 0, len(stations), false, SynopSequence)
	fields := surfaceFields(at)
	ranks := make(map[string]int)
	for i, s := range stations {
		m.Add(fmt.Sprintf("#%d#subsetNumber", i+1), int64(i+1), nil, "")
		for _, f := range fields {
			ranks[f.name]++
			m.Add(fmt.Sprintf("#%d#%s", ranks[f.name], f.name), f.value(s), f.code, f.units)
		}
	}
	return m
}

// Temp returns a single-subset sounding whose levels follow a delayed
// replication factor.
func Temp(at time.Time, s Station, levels []Level) *bufr.MapMessage {
	m := header(bufr.NewMapMessage(), 2, 1, false, TempSequence)
	for _, f := range surfaceFields(at)[:15] {
		m.Add("#1#"+f.name, f.value(s), f.code, f.units)
	}
	m.Add("#1#delayedDescriptorReplicationFactor", int64(len(levels)), "031002", "")
	for i, l := range levels {
		r := i + 1
		m.Add(fmt.Sprintf("#%d#pressure", r), l.Pressure, "007004", "Pa")
		m.Add(fmt.Sprintf("#%d#airTemperature", r), value(l.AirTemperature), "012101", "K")
		m.Add(fmt.Sprintf("#%d#dewpointTemperature", r), value(l.Dewpoint), "012103", "K")
		m.Add(fmt.Sprintf("#%d#windSpeed", r), value(l.WindSpeed), "011002", "m/s")
	}
	return m
}
