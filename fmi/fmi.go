package fmi

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
	now     func() time.Time
}

func New(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = BASE_URL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "?"),
		http:    &http.Client{Timeout: timeout},
		logger:  slog.Default().With(slog.String("module", "fmi")),
		now:     time.Now,
	}
}

func (c *Client) SetLogger(logger *slog.Logger) {
	c.logger = logger
}

var defaultClient = New(BASE_URL, 30*time.Second)

// GetObservations loads past observations using the default client.
func GetObservations(ctx context.Context, q ObservationQuery) (Table, error) {
	return defaultClient.GetObservations(ctx, q)
}

// GetForecast loads a forecast using the default client.
func GetForecast(ctx context.Context, q ForecastQuery) (Table, error) {
	return defaultClient.GetForecast(ctx, q)
}

// GetObservations loads hourly observations for a place or station. Windows
// longer than MaxHoursPerQuery are loaded one calendar month at a time.
func (c *Client) GetObservations(ctx context.Context, q ObservationQuery) (Table, error) {
	if q.IsZero() {
		return Table{}, ErrMissingLocation
	}
	columns, codes, err := resolveParameters(q.Parameters, KindObservation)
	if err != nil {
		return Table{}, err
	}

	w, err := ObservationWindow(q.StartDate, q.EndDate, q.Hours, c.now())
	if err != nil {
		return Table{}, err
	}

	var result Table
	for _, chunk := range MonthChunks(w) {
		t, err := c.query(ctx, observationQueryID, KindObservation, q.Location, columns, codes, chunk)
		if err != nil {
			return Table{}, err
		}
		if result, err = result.Append(t); err != nil {
			return Table{}, err
		}
	}
	if len(result.Columns) == 0 {
		result.Columns = columns
	}

	return result, nil
}

// GetForecast loads a point forecast from now on. By default the whole
// forecast of the model is returned.
func (c *Client) GetForecast(ctx context.Context, q ForecastQuery) (Table, error) {
	if q.IsZero() {
		return Table{}, ErrMissingLocation
	}
	columns, codes, err := resolveParameters(q.Parameters, KindForecast)
	if err != nil {
		return Table{}, err
	}
	queryID, err := q.Model.queryID()
	if err != nil {
		return Table{}, err
	}

	w, err := ForecastWindow(q.Model, q.Hours, c.now())
	if err != nil {
		return Table{}, err
	}

	return c.query(ctx, queryID, KindForecast, q.Location, columns, codes, w)
}

func (c *Client) query(ctx context.Context, queryID string, kind QueryKind, loc Location, columns, codes []string, w Window) (Table, error) {
	params := url.Values{}
	params.Set(loc.param())
	params.Set("parameters", strings.Join(codes, ","))
	params.Set("starttime", w.Start.UTC().Format(time.RFC3339))
	params.Set("endtime", w.End.UTC().Format(time.RFC3339))

	fc, err := c.doQuery(ctx, queryID, params)
	if err != nil {
		return Table{}, err
	}

	codeByColumn := make(map[string]string, len(columns))
	for _, col := range columns {
		// Already validated by resolveParameters
		codeByColumn[col], _ = ParameterCode(col, kind)
	}

	t, err := toTable(fc, columns, codeByColumn, w)
	if err != nil {
		return Table{}, fmt.Errorf("reading FMI response of %s for %s: %w", queryID, loc, err)
	}
	return t, nil
}

// doQuery runs a stored query, see
// https://opendata.fmi.fi/wfs?service=WFS&version=2.0.0&request=describeStoredQueries
// for the queries and their parameters.
func (c *Client) doQuery(ctx context.Context, queryID string, params url.Values) (*featureCollection, error) {
	params.Set("service", "WFS")
	params.Set("version", "2.0.0")
	params.Set("request", "getFeature")
	params.Set("storedquery_id", queryID)
	u := c.baseURL + "?" + params.Encode()

	c.logger.Info("fetching data from FMI...", slog.String("url", u))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create FMI request: %w", err)
	}
	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error getting FMI %s: %w", queryID, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading FMI response body: %w", err)
	}

	if res.StatusCode != http.StatusOK {
		return nil, serviceError(res.StatusCode, body)
	}

	if isExceptionReport(body) {
		return nil, serviceError(res.StatusCode, body)
	}

	var fc featureCollection
	if err := xml.Unmarshal(body, &fc); err != nil {
		return nil, fmt.Errorf("error unmarshaling FMI xml: %w", err)
	}

	if fc.NumberReturned != len(fc.Members) {
		c.logger.Warn("FMI returned a different number of elements than announced",
			slog.String("query", queryID), slog.Int("numberReturned", fc.NumberReturned), slog.Int("elements", len(fc.Members)))
	} else {
		c.logger.Debug("FMI query done", slog.String("query", queryID), slog.Int("elements", len(fc.Members)))
	}

	return &fc, nil
}

func isExceptionReport(body []byte) bool {
	head := body
	if len(head) > 512 {
		head = head[:512]
	}
	return bytes.Contains(head, []byte("ExceptionReport"))
}

func serviceError(status int, body []byte) error {
	se := &ServiceError{StatusCode: status}
	var report exceptionReport
	if err := xml.Unmarshal(body, &report); err == nil {
		for _, e := range report.Exceptions {
			if se.Code == "" {
				se.Code = e.Code
			}
			for _, text := range e.Texts {
				se.Texts = append(se.Texts, strings.TrimSpace(text))
			}
		}
	}
	if se.Code == "" && len(se.Texts) == 0 {
		if text := strings.TrimSpace(string(body)); text != "" && len(text) < 256 {
			se.Texts = []string{text}
		}
	}
	return se
}
