package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/storm-data-bufr/internal/bufr"
	"github.com/couchcryptid/storm-data-bufr/internal/domain"
	"github.com/couchcryptid/storm-data-bufr/internal/filter"
	"github.com/couchcryptid/storm-data-bufr/internal/observability"
	"github.com/couchcryptid/storm-data-bufr/internal/param"
	"github.com/couchcryptid/storm-data-bufr/internal/table"
)

func compressedMessage() *bufr.MapMessage {
	return bufr.NewMapMessage().
		SetHeader("edition", int64(4)).
		SetHeader("numberOfSubsets", int64(2)).
		SetHeader("compressedData", int64(1)).
		Add("#1#pressure", []any{int64(100), int64(90)}, "007004", "Pa").
		Add("#1#temperature", []any{300.0, bufr.MissingDouble}, "012101", "K")
}

func synopMessage(stations ...int64) *bufr.MapMessage {
	if len(stations) == 0 {
		stations = []int64{260, 280}
	}
	locals := make([]any, len(stations))
	numbers := make([]any, len(stations))
	for i, s := range stations {
		locals[i] = fmt.Sprintf("%05d", 6000+s)
		numbers[i] = s
	}
	return bufr.NewMapMessage().
		SetHeader("edition", int64(4)).
		SetHeader("masterTableNumber", int64(0)).
		SetHeader("dataCategory", int64(0)).
		SetHeader("numberOfSubsets", int64(len(stations))).
		SetHeader("compressedData", int64(1)).
		SetHeader("unexpandedDescriptors", []any{int64(307080)}).
		Add("#1#wigosIdentifierSeries", int64(0), "001125", "").
		Add("#1#wigosIssuerOfIdentifier", int64(20000), "001126", "").
		Add("#1#wigosIssueNumber", int64(0), "001127", "").
		Add("#1#wigosLocalIdentifierCharacter", locals, "001128", "CCITT IA5").
		Add("#1#blockNumber", int64(6), "001001", "").
		Add("#1#stationNumber", numbers, "001002", "").
		Add("#1#year", int64(2024), "004001", "a").
		Add("#1#month", int64(4), "004002", "mon").
		Add("#1#day", int64(26), "004003", "d").
		Add("#1#hour", int64(12), "004004", "h").
		Add("#1#minute", int64(0), "004005", "min").
		Add("#1#latitude", []any{52.1, 53.12}[:len(stations)], "005001", "deg").
		Add("#1#longitude", []any{5.18, 6.58}[:len(stations)], "006001", "deg").
		Add("#1#heightOfSensorAboveLocalGroundOrDeckOfMarinePlatform", 2.0, "007032", "m").
		Add("#1#airTemperature", []any{280.15, bufr.MissingDouble}[:len(stations)], "012101", "K").
		Add("#1#timePeriod", int64(-1), "004024", "h").
		Add("#1#totalPrecipitationOrTotalWaterEquivalent", []any{0.4, 1.2}[:len(stations)], "013011", "kg m-2")
}

func value(t *testing.T, r table.Row, name string) any {
	t.Helper()
	v, ok := r.Get(name)
	require.True(t, ok, "row has no column %q: %v", name, r.Names())
	return v
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestProcess_CompressedScenario(t *testing.T) {
	e, err := New(Request{Columns: []string{"pressure", "temperature"}})
	require.NoError(t, err)

	rows, err := e.Process(context.Background(), compressedMessage(), 1)
	require.NoError(t, err)

	assert.Equal(t, []table.Row{
		{{Name: "pressure", Value: int64(100)}, {Name: "temperature", Value: 300.0}},
		{{Name: "pressure", Value: int64(90)}, {Name: "temperature"}},
	}, rows)
}

func TestProcess_RangeFilter(t *testing.T) {
	e, err := New(Request{
		Columns: []string{"pressure", "temperature"},
		Filters: map[string]any{"pressure": filter.AtLeast(95)},
	})
	require.NoError(t, err)

	rows, err := e.Process(context.Background(), compressedMessage(), 1)
	require.NoError(t, err)

	require.Len(t, rows, 1)
	assert.Equal(t, int64(100), value(t, rows[0], "pressure"))
}

func TestProcess_Uncompressed(t *testing.T) {
	m := bufr.NewMapMessage().
		SetHeader("edition", int64(4)).
		SetHeader("numberOfSubsets", int64(2)).
		SetHeader("compressedData", int64(0)).
		Add("#1#subsetNumber", int64(1), nil, "").
		Add("#1#blockNumber", int64(6), "001001", "").
		Add("#1#stationNumber", int64(260), "001002", "").
		Add("#1#airTemperature", 280.0, "012101", "K").
		Add("#2#subsetNumber", int64(2), nil, "").
		Add("#2#blockNumber", int64(6), "001001", "").
		Add("#2#stationNumber", int64(280), "001002", "").
		Add("#2#airTemperature", 281.5, "012101", "K")

	e, err := New(Request{Columns: []string{"WMO_station_id", "airTemperature"}})
	require.NoError(t, err)

	rows, err := e.Process(context.Background(), m, 1)
	require.NoError(t, err)

	assert.Equal(t, []table.Row{
		{{Name: "WMO_station_id", Value: int64(6260)}, {Name: "airTemperature", Value: 280.0}},
		{{Name: "WMO_station_id", Value: int64(6280)}, {Name: "airTemperature", Value: 281.5}},
	}, rows)
}

func TestProcess_SynopParameters(t *testing.T) {
	e, err := New(Request{
		Columns:  []string{"WSI", "WMO_station_id", "data_datetime", "lat", "lon", "t2m", "tp"},
		Required: []string{"WSI"},
	})
	require.NoError(t, err)

	rows, err := e.Process(context.Background(), synopMessage(), 1)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	first := rows[0]
	assert.Equal(t, "0-20000-0-06260", value(t, first, "WSI"))
	assert.Equal(t, int64(6260), value(t, first, "WMO_station_id"))
	assert.Equal(t, time.Date(2024, 4, 26, 12, 0, 0, 0, time.UTC), value(t, first, "data_datetime"))
	assert.Equal(t, 52.1, value(t, first, "lat"))
	assert.Equal(t, 5.18, value(t, first, "lon"))
	assert.Equal(t, 280.15, value(t, first, "t2m"))
	assert.Equal(t, "K", value(t, first, "t2m_units"))
	assert.Equal(t, 2.0, value(t, first, "t2m_level"))
	assert.Equal(t, 0.4, value(t, first, "tp_1h"))
	assert.Equal(t, "kg m-2", value(t, first, "tp_1h_units"))

	second := rows[1]
	assert.Equal(t, "0-20000-0-06280", value(t, second, "WSI"))
	assert.Nil(t, value(t, second, "t2m"))
	assert.Equal(t, 1.2, value(t, second, "tp_1h"))
}

func TestProcess_DerivedParameterFilter(t *testing.T) {
	for _, spec := range []any{"0-20000-0-06280", []any{0, 20000, 0, "06280"}} {
		e, err := New(Request{
			Columns: []string{"WMO_station_id"},
			Filters: map[string]any{"WSI": spec},
		})
		require.NoError(t, err)

		rows, err := e.Process(context.Background(), synopMessage(), 1)
		require.NoError(t, err)
		assert.Equal(t, []table.Row{{{Name: "WMO_station_id", Value: int64(6280)}}}, rows)
	}
}

func TestProcess_HeaderFilter(t *testing.T) {
	metrics := observability.NewMetricsForTesting()

	e, err := New(Request{
		Columns: []string{"WMO_station_id"},
		Filters: map[string]any{"dataCategory": 1},
	}, WithMetrics(metrics))
	require.NoError(t, err)

	rows, err := e.Process(context.Background(), synopMessage(), 1)
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Equal(t, 1.0, counterValue(t, metrics.MessagesFiltered))

	e, err = New(Request{
		Columns: []string{"WMO_station_id"},
		Filters: map[string]any{"dataCategory": 0},
	})
	require.NoError(t, err)
	rows, err = e.Process(context.Background(), synopMessage(), 1)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestProcess_ShapeCacheReuse(t *testing.T) {
	metrics := observability.NewMetricsForTesting()
	e, err := New(Request{Columns: []string{"WMO_station_id"}}, WithMetrics(metrics))
	require.NoError(t, err)

	for i, stations := range [][]int64{{260, 280}, {310, 370}} {
		rows, err := e.Process(context.Background(), synopMessage(stations...), i+1)
		require.NoError(t, err)
		assert.Len(t, rows, 2)
	}

	stats := e.ShapeCache().Stats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Equal(t, 1.0, counterValue(t, metrics.ShapeCache.WithLabelValues("hit")))
	assert.Equal(t, 1.0, counterValue(t, metrics.ShapeCache.WithLabelValues("miss")))
	assert.Equal(t, 4.0, counterValue(t, metrics.ObservationsEmitted))
	assert.Equal(t, 4.0, counterValue(t, metrics.Subsets.WithLabelValues("compressed")))
}

func TestProcess_CompressedKeepsDescriptorList(t *testing.T) {
	descriptors := []any{int64(307080), int64(302001)}
	m := compressedMessage().SetHeader("unexpandedDescriptors", descriptors)

	tests := []struct {
		name    string
		columns []string
	}{
		{"all keys", nil},
		{"requested column", []string{"pressure", "unexpandedDescriptors"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := New(Request{Columns: tt.columns})
			require.NoError(t, err)

			rows, err := e.Process(context.Background(), m, 1)
			require.NoError(t, err)

			require.Len(t, rows, 2)
			for i, want := range []int64{100, 90} {
				assert.Equal(t, want, value(t, rows[i], "pressure"))
				assert.Equal(t, descriptors, value(t, rows[i], "unexpandedDescriptors"))
			}
		})
	}
}

func TestProcess_RankedKeys(t *testing.T) {
	e, err := New(Request{RankedKeys: true})
	require.NoError(t, err)
	assert.Nil(t, e.Include())

	rows, err := e.Process(context.Background(), compressedMessage(), 1)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"edition", "numberOfSubsets", "compressedData", "#1#pressure", "#1#temperature"}, rows[0].Names())
}

func TestProcess_CountColumn(t *testing.T) {
	e, err := New(Request{Columns: []string{"count", "pressure"}})
	require.NoError(t, err)

	rows, err := e.Process(context.Background(), compressedMessage(), 7)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 7, value(t, rows[1], "count"))
}

func TestProcess_RaiseOnMissing(t *testing.T) {
	e, err := New(Request{Columns: []string{"data_datetime", "pressure"}, RaiseOnMissing: true})
	require.NoError(t, err)

	_, err = e.Process(context.Background(), compressedMessage(), 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrAllValuesMissing)
}

func TestProcess_CanceledContext(t *testing.T) {
	e, err := New(Request{})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.Process(ctx, compressedMessage(), 1)
	assert.ErrorIs(t, err, context.Canceled)
}

type unpackFailure struct{ *bufr.MapMessage }

func (unpackFailure) Unpack() error { return errors.New("truncated section 4") }

func TestProcess_UnpackError(t *testing.T) {
	e, err := New(Request{})
	require.NoError(t, err)
	_, err = e.Process(context.Background(), unpackFailure{compressedMessage()}, 1)
	assert.ErrorContains(t, err, "truncated section 4")
}

func TestNew_InvalidRequest(t *testing.T) {
	_, err := New(Request{Filters: map[string]any{"pressure": filter.Between(10, 5)}})
	var se *filter.SpecError
	assert.ErrorAs(t, err, &se)

	_, err = New(Request{Columns: []string{"lat"}, Required: []string{"lon"}})
	var ce *param.ColumnError
	assert.ErrorAs(t, err, &ce)
}

func TestNew_IncludeSet(t *testing.T) {
	e, err := New(Request{
		Columns: []string{"WMO_station_id"},
		Filters: map[string]any{"WSI": "0-20000-0-06260", "airTemperature": filter.AtLeast(270), "count": 1},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"airTemperature",
		"blockNumber",
		"stationNumber",
		"subsetNumber",
		"wigosIdentifierSeries",
		"wigosIssueNumber",
		"wigosIssuerOfIdentifier",
		"wigosLocalIdentifierCharacter",
	}, e.Include())
}

func seq(msgs []bufr.Message, pulled *int) iter.Seq2[bufr.Message, error] {
	return func(yield func(bufr.Message, error) bool) {
		for _, m := range msgs {
			*pulled++
			if !yield(m, nil) {
				return
			}
		}
	}
}

func TestReadAll_CountBoundStopsEarly(t *testing.T) {
	e, err := New(Request{
		Columns: []string{"count", "WMO_station_id"},
		Filters: map[string]any{"count": 2},
	})
	require.NoError(t, err)

	msgs := []bufr.Message{synopMessage(260), synopMessage(280), synopMessage(310), synopMessage(370)}
	pulled := 0
	tbl, err := e.ReadAll(context.Background(), seq(msgs, &pulled))
	require.NoError(t, err)

	assert.Equal(t, 2, pulled)
	assert.Equal(t, []string{"count", "WMO_station_id"}, tbl.Columns)
	assert.Equal(t, [][]any{{2, int64(6280)}}, tbl.Rows)
	assert.True(t, e.Done(2))
	assert.False(t, e.Done(1))
}

func TestReadAll_WideSchemaWarns(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	m1 := bufr.NewMapMessage().
		SetHeader("unexpandedDescriptors", []any{int64(1002)}).
		Add("#1#stationNumber", int64(260), "001002", "")
	m2 := bufr.NewMapMessage().
		SetHeader("unexpandedDescriptors", []any{int64(1002), int64(12101)}).
		Add("#1#stationNumber", int64(280), "001002", "").
		Add("#1#airTemperature", 281.0, "012101", "K")

	e, err := New(Request{WideSchema: true}, WithLogger(logger))
	require.NoError(t, err)

	tbl, err := e.ReadAll(context.Background(), seq([]bufr.Message{m1, m2}, new(int)))
	require.NoError(t, err)

	assert.Equal(t, []string{"unexpandedDescriptors", "stationNumber", "airTemperature"}, tbl.Columns)
	assert.Equal(t, [][]any{
		{[]any{int64(1002)}, int64(260), nil},
		{[]any{int64(1002), int64(12101)}, int64(280), 281.0},
	}, tbl.Rows)
	assert.Contains(t, logs.String(), "heterogeneous")
}

func TestReadAll_SourceError(t *testing.T) {
	e, err := New(Request{})
	require.NoError(t, err)
	boom := errors.New("line 3: bad json")
	msgs := func(yield func(bufr.Message, error) bool) {
		yield(nil, boom)
	}
	_, err = e.ReadAll(context.Background(), msgs)
	assert.ErrorIs(t, err, boom)
}
