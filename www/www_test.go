package www

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/angas/fmi-go/database"
	"github.com/angas/fmi-go/fmi"
	"github.com/angas/fmi-go/hours"
	"github.com/angas/fmi-go/www/chartjs"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func newTestDatabase(t *testing.T) *database.Database {
	t.Helper()
	db, err := database.New(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("database.New() unexpected error: %v", err)
	}
	db.SetLogger(discard)
	t.Cleanup(db.Close)
	return db
}

func newTestTemplates(t *testing.T) *TemplateManager {
	t.Helper()
	tm, err := NewTemplateManager(discard, nil)
	if err != nil {
		t.Fatalf("NewTemplateManager() unexpected error: %v", err)
	}
	return tm
}

func value(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: true}
}

func seedObservations(t *testing.T, db *database.Database, station string, from hours.DateHour) {
	t.Helper()
	err := db.SaveObservations(context.Background(), []database.ObservationRow{
		{Station: station, Parameter: "temperature", When: from, Value: value(12.3)},
		{Station: station, Parameter: "wind_direction", When: from, Value: value(90)},
		{Station: station, Parameter: "temperature", When: from.Add(1), Value: value(11.8)},
		{Station: station, Parameter: "wind_direction", When: from.Add(1), Value: sql.NullFloat64{}},
	})
	if err != nil {
		t.Fatalf("SaveObservations() unexpected error: %v", err)
	}
}

func TestToGrid(t *testing.T) {
	dh := hours.DateHour{Date: "2022-09-01", Hour: 10}
	g := toGrid([]cell{
		{When: dh, Parameter: "wind_speed", Value: value(3)},
		{When: dh, Parameter: "temperature", Value: value(10)},
		{When: dh.Add(1), Parameter: "temperature", Value: value(11)},
	})

	if strings.Join(g.Columns, ",") != "temperature,wind_speed" {
		t.Errorf("unexpected columns %v", g.Columns)
	}
	if len(g.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(g.Rows))
	}
	if g.Value(0, "wind_speed").Float64 != 3 || g.Value(0, "temperature").Float64 != 10 {
		t.Errorf("unexpected first row %+v", g.Rows[0])
	}
	if g.Value(1, "wind_speed").Valid {
		t.Errorf("expected missing value to be invalid, got %+v", g.Value(1, "wind_speed"))
	}
	if g.Value(5, "temperature").Valid || g.Value(0, "pressure").Valid {
		t.Error("expected out of range lookups to be invalid")
	}
}

func TestObservationsHandler(t *testing.T) {
	db := newTestDatabase(t)
	seedObservations(t, db, "oulu", hours.FromNow().Sub(3))

	triggered := make(chan struct{}, 1)
	handler := NewObservationsHandler(discard, []string{"helsinki", "oulu"}, db, newTestTemplates(t), func() {
		triggered <- struct{}{}
	})

	t.Run("get", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler(rec, httptest.NewRequest(http.MethodGet, "/observations?station=oulu", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		body := rec.Body.String()
		for _, want := range []string{"<th>temperature</th>", "<th>wind_direction</th>", "12.3", "90.0 E", `class="active">oulu`} {
			if !strings.Contains(body, want) {
				t.Errorf("expected body to contain %q", want)
			}
		}
	})

	t.Run("parameter filter", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler(rec, httptest.NewRequest(http.MethodGet, "/observations?station=oulu&parameter=temperature", nil))
		body := rec.Body.String()
		if !strings.Contains(body, "<th>temperature</th>") || strings.Contains(body, "wind_direction") {
			t.Errorf("expected only temperature, got %s", body)
		}
	})

	t.Run("default station without data", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler(rec, httptest.NewRequest(http.MethodGet, "/observations", nil))
		if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "No data stored for helsinki") {
			t.Errorf("unexpected response %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("unknown station", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler(rec, httptest.NewRequest(http.MethodGet, "/observations?station=tampere", nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("post triggers task", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler(rec, httptest.NewRequest(http.MethodPost, "/observations", nil))
		if rec.Code != http.StatusAccepted {
			t.Errorf("expected 202, got %d", rec.Code)
		}
		select {
		case <-triggered:
		case <-time.After(time.Second):
			t.Error("expected task to run")
		}
	})

	t.Run("method not allowed", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler(rec, httptest.NewRequest(http.MethodDelete, "/observations", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", rec.Code)
		}
	})
}

func TestForecastHandler(t *testing.T) {
	db := newTestDatabase(t)
	now := hours.FromNow()
	err := db.SaveForecast(context.Background(), []database.ForecastRow{
		{Station: "oulu", Model: "harmonie", Parameter: "temperature", When: now.Add(1), Value: value(7.5)},
		{Station: "oulu", Model: "hirlam", Parameter: "temperature", When: now.Add(1), Value: value(6.5)},
	})
	if err != nil {
		t.Fatalf("SaveForecast() unexpected error: %v", err)
	}

	handler := NewForecastHandler(discard, []string{"oulu"}, fmi.ModelHarmonie, db, newTestTemplates(t), func() {})

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/forecast", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "7.5") {
		t.Errorf("unexpected harmonie response %d: %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/forecast?model=hirlam", nil))
	body := rec.Body.String()
	if !strings.Contains(body, "6.5") || strings.Contains(body, "7.5") {
		t.Errorf("expected only hirlam values, got %s", body)
	}
}

func TestLogHandler(t *testing.T) {
	db := newTestDatabase(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		lvl := slog.LevelInfo
		if i == 2 {
			lvl = slog.LevelError
		}
		err := db.SaveLogEntry(ctx, database.LogEntryRow{
			Timestamp: time.Now(),
			Level:     int(lvl),
			Message:   fmt.Sprintf("message %d", i),
			Attrs:     fmt.Sprintf(`[{"station":"station%d"}]`, i),
		})
		if err != nil {
			t.Fatalf("SaveLogEntry() unexpected error: %v", err)
		}
	}

	handler := NewLogHandler(discard, db, newTestTemplates(t))

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/log", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `id="log-entries"`) {
		t.Errorf("unexpected log page %d: %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/log?page=1&pageSize=2", nil))
	body := rec.Body.String()
	if !strings.Contains(body, "message 2") || !strings.Contains(body, "message 1") || strings.Contains(body, "message 0") {
		t.Errorf("unexpected first page %s", body)
	}
	if !strings.Contains(body, "page=2") {
		t.Errorf("expected a link to the next page, got %s", body)
	}

	rec = httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/log?page=1&level=ERROR", nil))
	body = rec.Body.String()
	if !strings.Contains(body, "message 2") || strings.Contains(body, "message 1") {
		t.Errorf("expected only errors, got %s", body)
	}
	if strings.Contains(body, "page=2") {
		t.Errorf("expected no link to a next page, got %s", body)
	}

	rec = httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/log?page=1&q=station0", nil))
	body = rec.Body.String()
	if !strings.Contains(body, "message 0") || strings.Contains(body, "message 1") {
		t.Errorf("expected only station0 entries, got %s", body)
	}

	rec = httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/log?page=1&level=verbose", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown level, got %d", rec.Code)
	}
}

func TestChartHandler(t *testing.T) {
	db := newTestDatabase(t)
	seedObservations(t, db, "oulu", hours.FromNow().Sub(1))

	rec := httptest.NewRecorder()
	NewChartHandler(discard, []string{"oulu"}, fmi.ModelHarmonie, db)(rec, httptest.NewRequest(http.MethodGet, "/chart?right=wind_direction", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var charts []chartjs.Chart
	if err := json.NewDecoder(rec.Body).Decode(&charts); err != nil {
		t.Fatalf("decoding charts: %v", err)
	}
	if len(charts) != 2 {
		t.Fatalf("expected 2 charts, got %d", len(charts))
	}

	obs := charts[0].Data.Datasets
	if obs[0].Label != "temperature" || obs[1].Label != "wind_direction" {
		t.Errorf("unexpected labels %q %q", obs[0].Label, obs[1].Label)
	}
	last := chartjs.NoOfHours - 1
	if obs[0].Data[last] == nil || *obs[0].Data[last] != 11.8 {
		t.Errorf("expected the current hour to be last, got %v", obs[0].Data[last])
	}
	if obs[0].Data[last-1] == nil || *obs[0].Data[last-1] != 12.3 {
		t.Errorf("expected previous hour value, got %v", obs[0].Data[last-1])
	}
	if obs[1].Data[last] != nil {
		t.Errorf("expected missing value to be null, got %v", *obs[1].Data[last])
	}
}

type fakeProvider struct {
	table fmi.Table
	err   error
	obs   fmi.ObservationQuery
	fc    fmi.ForecastQuery
}

func (f *fakeProvider) GetObservations(_ context.Context, q fmi.ObservationQuery) (fmi.Table, error) {
	f.obs = q
	return f.table, f.err
}

func (f *fakeProvider) GetForecast(_ context.Context, q fmi.ForecastQuery) (fmi.Table, error) {
	f.fc = q
	return f.table, f.err
}

func TestApiObservationsHandler(t *testing.T) {
	t0 := time.Date(2022, 9, 1, 0, 0, 0, 0, time.UTC)
	provider := &fakeProvider{table: fmi.Table{
		Columns: []string{"temperature", "humidity"},
		Rows:    []fmi.Row{{Time: t0, Values: []float64{14.2, math.NaN()}}},
	}}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/observations?place=Oulu&parameter=temperature,humidity&start=2022-09-01&hours=1", nil)
	NewApiObservationsHandler(discard, provider)(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	want := `{"columns":["temperature","humidity"],"rows":[{"time":"2022-09-01T00:00:00Z","values":[14.2,null]}]}`
	if got := strings.TrimSpace(rec.Body.String()); got != want {
		t.Errorf("unexpected body\n got: %s\nwant: %s", got, want)
	}

	q := provider.obs
	if q.Location.Place != "Oulu" || q.StartDate != "2022-09-01" || q.Hours != 1 || len(q.Parameters) != 2 {
		t.Errorf("unexpected query %+v", q)
	}
}

func TestApiForecastHandler(t *testing.T) {
	provider := &fakeProvider{}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/forecast?fmisid=101799&parameter=temperature&parameter=wind_speed&model=hirlam", nil)
	NewApiForecastHandler(discard, provider)(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	q := provider.fc
	if q.Location.Fmisid != "101799" || q.Model != fmi.ModelHirlam || strings.Join(q.Parameters, ",") != "temperature,wind_speed" {
		t.Errorf("unexpected query %+v", q)
	}
}

func TestApiErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("wrapped: %w", fmi.ErrMissingLocation), http.StatusBadRequest},
		{fmi.ErrUnknownParameter, http.StatusBadRequest},
		{fmi.ErrOverdeterminedWindow, http.StatusBadRequest},
		{fmt.Errorf("query: %w", &fmi.ServiceError{StatusCode: 400, Code: "OperationParsingFailed"}), http.StatusBadGateway},
		{context.DeadlineExceeded, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := apiErrorStatus(tt.err); got != tt.want {
			t.Errorf("apiErrorStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}

	rec := httptest.NewRecorder()
	NewApiObservationsHandler(discard, &fakeProvider{err: fmi.ErrNoTimeWindow})(rec, httptest.NewRequest(http.MethodGet, "/api/observations", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestRealTimeManager(t *testing.T) {
	db := newTestDatabase(t)
	from := hours.FromNow().Sub(3)
	seedObservations(t, db, "oulu", from)

	rtd, err := NewRealTimeManager(db, []string{"helsinki", "oulu"}).Get(context.Background())
	if err != nil {
		t.Fatalf("Get() unexpected error: %v", err)
	}
	if len(rtd.Stations) != 2 {
		t.Fatalf("expected 2 stations, got %d", len(rtd.Stations))
	}
	if rtd.Stations[0].Age.IsValid() || len(rtd.Stations[0].Values) != 0 {
		t.Errorf("expected no data for helsinki, got %+v", rtd.Stations[0])
	}

	oulu := rtd.Stations[1]
	if age := oulu.Age.ValueOrDefault(-1); age != 2 {
		t.Errorf("expected newest value 2 hours old, got %d", age)
	}
	if len(oulu.Values) != 2 {
		t.Fatalf("expected 2 values, got %+v", oulu.Values)
	}
	// The newest wind direction is missing, the one before is used
	if oulu.Values[1].Parameter != "wind_direction" || oulu.Values[1].When != from || oulu.Values[1].Value.Value() != 90 {
		t.Errorf("unexpected wind direction %+v", oulu.Values[1])
	}

	tm := newTestTemplates(t)
	buf, err := tm.Execute("latest.html", rtd)
	if err != nil {
		t.Fatalf("Execute() unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "2 h ago") || !strings.Contains(buf.String(), "11.8") {
		t.Errorf("unexpected latest rendering %s", buf.String())
	}
}

func TestSysInfoHandler(t *testing.T) {
	db := newTestDatabase(t)
	info := SysInfo{Version: "1.2.3", StartedAt: time.Now(), Database: "fmi.db", Stations: []string{"a", "b"}}
	handler := NewSysInfoHandler(discard, db, newTestTemplates(t), info)

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/sys_info", nil))
	body := rec.Body.String()
	if rec.Code != http.StatusOK || !strings.Contains(body, "1.2.3") || !strings.Contains(body, "a, b") {
		t.Errorf("unexpected response %d: %s", rec.Code, body)
	}
	if !strings.Contains(body, "nothing yet") || strings.Contains(body, "Not configured") {
		t.Errorf("expected no stored stations, got %s", body)
	}

	seedObservations(t, db, "a", hours.FromNow())
	seedObservations(t, db, "removed", hours.FromNow())

	rec = httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/sys_info", nil))
	body = rec.Body.String()
	if !strings.Contains(body, "a, removed") {
		t.Errorf("expected stored stations, got %s", body)
	}
	if !strings.Contains(body, `Not configured</dt><dd class="warn">removed</dd>`) {
		t.Errorf("expected removed station to be flagged, got %s", body)
	}
}

func TestStaticFiles(t *testing.T) {
	rec := httptest.NewRecorder()
	staticFilesHandler(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "FMI weather") {
		t.Errorf("unexpected index %d", rec.Code)
	}
}
