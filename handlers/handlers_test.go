package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/you/subway/models"
	"github.com/you/subway/repository"
	"github.com/you/subway/service"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	store, err := repository.NewSQLiteDB(filepath.Join(t.TempDir(), "subway.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.EnsureSchema(context.Background()))

	logger := zaptest.NewLogger(t)
	stationRepo := repository.NewSQLiteStationRepository(store)
	lineRepo := repository.NewSQLiteLineRepository(store)

	return NewRouter(RouterOptions{
		Stations:       service.NewStationService(stationRepo, logger),
		Lines:          service.NewLineService(lineRepo, stationRepo, logger),
		DB:             store,
		Logger:         logger,
		AllowedOrigins: []string{"http://localhost:5173"},
	})
}

func do(t *testing.T, h http.Handler, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func createStation(t *testing.T, h http.Handler, name string) models.Station {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/stations", models.StationRequest{Name: name})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	st := decode[models.Station](t, rec)
	assert.Equal(t, fmt.Sprintf("/stations/%d", st.ID), rec.Header().Get("Location"))
	return st
}

func stationNames(stations []models.Station) []string {
	names := make([]string, len(stations))
	for i, st := range stations {
		names[i] = st.Name
	}
	return names
}

func assertErrorCode(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())
	assert.Equal(t, code, decode[ErrorResponse](t, rec).Code)
}

func TestLineSectionLifecycle(t *testing.T) {
	h := newTestRouter(t)

	dang := createStation(t, h, "당고개역")
	isu := createStation(t, h, "이수역")
	sadang := createStation(t, h, "사당역")
	dongjak := createStation(t, h, "동작역")

	rec := do(t, h, http.MethodPost, "/lines", models.LineRequest{
		Name: "4호선", Color: "blue", UpStationID: dang.ID, DownStationID: isu.ID, Distance: 10,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	line := decode[models.LineResponse](t, rec)
	linePath := fmt.Sprintf("/lines/%d", line.ID)
	assert.Equal(t, linePath, rec.Header().Get("Location"))
	assert.Equal(t, []string{"당고개역", "이수역"}, stationNames(line.Stations))

	// Extend the down terminus.
	rec = do(t, h, http.MethodPost, linePath+"/sections", models.SectionRequest{
		UpStationID: isu.ID, DownStationID: sadang.ID, Distance: 5,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	line = decode[models.LineResponse](t, rec)
	assert.Equal(t, []string{"당고개역", "이수역", "사당역"}, stationNames(line.Stations))
	assert.Equal(t, 15, line.Distance)

	// Rejections leave the line as it was.
	assertErrorCode(t, do(t, h, http.MethodPost, linePath+"/sections", models.SectionRequest{
		UpStationID: dang.ID, DownStationID: sadang.ID, Distance: 3,
	}), http.StatusBadRequest, "ALREADY_SECTION")
	assertErrorCode(t, do(t, h, http.MethodPost, linePath+"/sections", models.SectionRequest{
		UpStationID: dang.ID, DownStationID: dongjak.ID, Distance: 10,
	}), http.StatusBadRequest, "INVALID_DISTANCE")
	assertErrorCode(t, do(t, h, http.MethodPost, linePath+"/sections", models.SectionRequest{
		UpStationID: isu.ID, DownStationID: isu.ID, Distance: 1,
	}), http.StatusBadRequest, "INVALID_SECTION")
	assertErrorCode(t, do(t, h, http.MethodPost, linePath+"/sections", models.SectionRequest{
		UpStationID: dang.ID, DownStationID: 9999, Distance: 1,
	}), http.StatusNotFound, "NOT_FOUND")

	// Split from the up side.
	rec = do(t, h, http.MethodPost, linePath+"/sections", models.SectionRequest{
		UpStationID: dang.ID, DownStationID: dongjak.ID, Distance: 4,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	line = decode[models.LineResponse](t, rec)
	assert.Equal(t, []string{"당고개역", "동작역", "이수역", "사당역"}, stationNames(line.Stations))
	assert.Equal(t, 15, line.Distance)

	// Remove an interior station; its sections merge.
	rec = do(t, h, http.MethodDelete, fmt.Sprintf("%s/sections?stationId=%d", linePath, isu.ID), nil)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodGet, linePath, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	line = decode[models.LineResponse](t, rec)
	assert.Equal(t, []string{"당고개역", "동작역", "사당역"}, stationNames(line.Stations))
	assert.Equal(t, 15, line.Distance)
	require.Len(t, line.Sections, 2)
	assert.Equal(t, 11, line.Sections[1].Distance)

	assertErrorCode(t, do(t, h, http.MethodDelete, fmt.Sprintf("%s/sections?stationId=%d", linePath, isu.ID), nil),
		http.StatusBadRequest, "STATION_NOT_ON_LINE")

	// Remove the up terminus, then the last removal is refused.
	rec = do(t, h, http.MethodDelete, fmt.Sprintf("%s/sections?stationId=%d", linePath, dang.ID), nil)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
	assertErrorCode(t, do(t, h, http.MethodDelete, fmt.Sprintf("%s/sections?stationId=%d", linePath, sadang.ID), nil),
		http.StatusBadRequest, "ONLY_SECTION")

	rec = do(t, h, http.MethodGet, linePath, nil)
	line = decode[models.LineResponse](t, rec)
	assert.Equal(t, []string{"동작역", "사당역"}, stationNames(line.Stations))

	// Stations on a line cannot be deleted; free ones can.
	assertErrorCode(t, do(t, h, http.MethodDelete, fmt.Sprintf("/stations/%d", sadang.ID), nil),
		http.StatusConflict, "STATION_IN_USE")
	rec = do(t, h, http.MethodDelete, fmt.Sprintf("/stations/%d", isu.ID), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
}

func TestLineCRUD(t *testing.T) {
	h := newTestRouter(t)
	up := createStation(t, h, "강남역")
	down := createStation(t, h, "양재역")

	rec := do(t, h, http.MethodPost, "/lines", models.LineRequest{
		Name: "신분당선", Color: "red", UpStationID: up.ID, DownStationID: down.ID, Distance: 7,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[models.LineResponse](t, rec)
	linePath := fmt.Sprintf("/lines/%d", created.ID)

	rec = do(t, h, http.MethodPut, linePath, models.ModifyLineRequest{Name: "신분당선 연장"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/lines", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	all := decode[GetLinesResponse](t, rec)
	require.Equal(t, 1, all.Count)
	assert.Equal(t, "신분당선 연장", all.Lines[0].Name)
	assert.Equal(t, "red", all.Lines[0].Color)

	rec = do(t, h, http.MethodDelete, linePath, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assertErrorCode(t, do(t, h, http.MethodGet, linePath, nil), http.StatusNotFound, "NOT_FOUND")

	// With the line gone its stations are free again.
	rec = do(t, h, http.MethodDelete, fmt.Sprintf("/stations/%d", up.ID), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRequestValidation(t *testing.T) {
	h := newTestRouter(t)

	tests := []struct {
		name   string
		method string
		target string
		body   string
		status int
	}{
		{"malformed station body", http.MethodPost, "/stations", "{", http.StatusBadRequest},
		{"blank station name", http.MethodPost, "/stations", `{"name":"  "}`, http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/stations", `{"name":"a","extra":1}`, http.StatusBadRequest},
		{"line missing color", http.MethodPost, "/lines", `{"name":"1호선","upStationId":1,"downStationId":2,"distance":1}`, http.StatusBadRequest},
		{"non-numeric line id", http.MethodGet, "/lines/abc", "", http.StatusBadRequest},
		{"negative station id", http.MethodDelete, "/stations/-1", "", http.StatusBadRequest},
		{"missing stationId", http.MethodDelete, "/lines/1/sections", "", http.StatusBadRequest},
		{"non-numeric stationId", http.MethodDelete, "/lines/1/sections?stationId=x", "", http.StatusBadRequest},
		{"empty modify body", http.MethodPut, "/lines/1", `{}`, http.StatusBadRequest},
		{"remove on unknown line", http.MethodDelete, "/lines/42/sections?stationId=1", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.target, strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		})
	}
}

func TestHealthAndMetrics(t *testing.T) {
	h := newTestRouter(t)

	rec := do(t, h, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	health := decode[HealthResponse](t, rec)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "connected", health.Database)

	do(t, h, http.MethodGet, "/stations", nil)
	rec = do(t, h, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `subway_http_requests_total{method="GET",route="/stations`)
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("database is locked") }

func TestHealth_Unavailable(t *testing.T) {
	rec := httptest.NewRecorder()
	Health(failingPinger{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	health := decode[HealthResponse](t, rec)
	assert.Equal(t, "disconnected", health.Database)
	assert.Equal(t, "database is locked", health.Error)
}

func TestRequestID(t *testing.T) {
	h := newTestRouter(t)

	rec := do(t, h, http.MethodGet, "/healthz", nil)
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
}

func TestWriteError(t *testing.T) {
	logger := zaptest.NewLogger(t)

	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", fmt.Errorf("line 3: %w", models.ErrNotFound), http.StatusNotFound, "NOT_FOUND"},
		{"in use", models.ErrStationInUse, http.StatusConflict, "STATION_IN_USE"},
		{"duplicate", fmt.Errorf("wrapped: %w", models.ErrDuplicateSection), http.StatusBadRequest, "ALREADY_SECTION"},
		{"disconnected", models.ErrDisconnectedSection, http.StatusBadRequest, "CAN_NOT_BE_ADDED_SECTION"},
		{"only section", models.ErrOnlySection, http.StatusBadRequest, "ONLY_SECTION"},
		{"corrupt chain", fmt.Errorf("line 1: %w", models.ErrInvalidChain), http.StatusInternalServerError, "INTERNAL"},
		{"unknown", errors.New("disk full"), http.StatusInternalServerError, "INTERNAL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, httptest.NewRequest(http.MethodGet, "/", nil), logger, tt.err)

			assertErrorCode(t, rec, tt.status, tt.code)
			if tt.status == http.StatusInternalServerError {
				assert.NotContains(t, rec.Body.String(), tt.err.Error())
			}
		})
	}
}

func TestDistanceLimits(t *testing.T) {
	h := newTestRouter(t)
	dang := createStation(t, h, "당고개역")
	isu := createStation(t, h, "이수역")
	sadang := createStation(t, h, "사당역")

	assertErrorCode(t, do(t, h, http.MethodPost, "/lines", models.LineRequest{
		Name: "4호선", Color: "blue", UpStationID: dang.ID, DownStationID: isu.ID, Distance: models.MaxDistance + 1,
	}), http.StatusBadRequest, "INVALID_DISTANCE")

	rec := do(t, h, http.MethodPost, "/lines", models.LineRequest{
		Name: "4호선", Color: "blue", UpStationID: dang.ID, DownStationID: isu.ID, Distance: models.MaxDistance,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	linePath := fmt.Sprintf("/lines/%d", decode[models.LineResponse](t, rec).ID)

	rec = do(t, h, http.MethodPost, linePath+"/sections", models.SectionRequest{
		UpStationID: isu.ID, DownStationID: sadang.ID, Distance: 1,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Merging the two sections would exceed the storable distance.
	assertErrorCode(t, do(t, h, http.MethodDelete, fmt.Sprintf("%s/sections?stationId=%d", linePath, isu.ID), nil),
		http.StatusBadRequest, "INVALID_DISTANCE")

	rec = do(t, h, http.MethodGet, linePath, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	line := decode[models.LineResponse](t, rec)
	assert.Equal(t, []string{"당고개역", "이수역", "사당역"}, stationNames(line.Stations))
}

func TestRoutesListsEveryRoute(t *testing.T) {
	h := newTestRouter(t)

	for _, route := range Routes {
		fields := strings.Fields(route)
		require.Len(t, fields, 2, route)
		target := strings.NewReplacer("{id}", "1", "{stationId}", "1").Replace(fields[1])

		rec := do(t, h, fields[0], target, nil)

		// A 404 from a handler is JSON; chi's unmatched-route 404 is not.
		if rec.Code == http.StatusNotFound {
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"), route)
		}
		assert.NotEqual(t, http.StatusMethodNotAllowed, rec.Code, route)
	}
	assert.Contains(t, Routes, "GET    /healthz")
}
