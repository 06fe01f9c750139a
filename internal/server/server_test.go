package server

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"go.uber.org/zap/zaptest"

	"github.com/KaramelBytes/tidyset-cli/internal/session"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)
}

const sensorsCSV = "sensor,reading,site\n" +
	"s1,1,north\n" +
	"s2,2,south\n" +
	"s3,N/A,north\n" +
	"s4,4,east\n" +
	"s5,100,south\n" +
	"s1,1,north\n"

func newTestServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	cfg.Logger = zaptest.NewLogger(t)
	return New(session.NewStore(nil, cfg.Logger), cfg)
}

func uploadRequest(t *testing.T, name, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
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

func TestHandleHealth(t *testing.T) {
	s := newTestServer(t, Config{})
	rec := serve(s.Handler(), httptest.NewRequest(http.MethodGet, "/api/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	resp := decode[HealthResponse](t, rec)
	assert.Equal(t, "ok", resp.Status)
	assert.False(t, resp.Session)
}

func TestUploadReturnsBaseline(t *testing.T) {
	s := newTestServer(t, Config{})
	rec := serve(s.Handler(), uploadRequest(t, "sensors.csv", sensorsCSV))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		SessionID string `json:"session_id"`
		Stats     struct {
			Rows       int     `json:"total_rows"`
			Columns    int     `json:"total_columns"`
			Missing    int     `json:"missing_values"`
			Duplicates int     `json:"duplicate_rows"`
			Health     float64 `json:"health_score"`
		} `json:"stats"`
		MissingInfo  map[string]struct{ Count int } `json:"missing_info"`
		OutliersInfo map[string]struct{ Count int } `json:"outliers_info"`
		Preview      struct {
			Columns []string         `json:"columns"`
			Data    []map[string]any `json:"data"`
			Indices []int            `json:"indices"`
		} `json:"preview"`
		Visualizations []map[string]any `json:"visualizations"`
		OutlierIndices [][]any          `json:"outlier_indices"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.NotEmpty(t, resp.SessionID)
	assert.Equal(t, 6, resp.Stats.Rows)
	assert.Equal(t, 3, resp.Stats.Columns)
	assert.Equal(t, 1, resp.Stats.Missing)
	assert.Equal(t, 1, resp.Stats.Duplicates)
	assert.Equal(t, 1, resp.MissingInfo["reading"].Count)
	assert.Equal(t, 1, resp.OutliersInfo["reading"].Count)
	assert.Equal(t, []string{"sensor", "reading", "site"}, resp.Preview.Columns)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, resp.Preview.Indices)
	assert.Nil(t, resp.Preview.Data[2]["reading"])
	assert.NotEmpty(t, resp.Visualizations)
	assert.Equal(t, [][]any{{4.0, "reading"}}, resp.OutlierIndices)

	health := serve(s.Handler(), httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.True(t, decode[HealthResponse](t, health).Session)
}

func TestUploadRejections(t *testing.T) {
	s := newTestServer(t, Config{MaxUploadBytes: 512})
	h := s.Handler()

	t.Run("not multipart", func(t *testing.T) {
		rec := serve(h, httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader("x")))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "No file part", decode[ErrorResponse](t, rec).Error)
	})

	t.Run("unsupported extension", func(t *testing.T) {
		rec := serve(h, uploadRequest(t, "data.parquet", "x"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decode[ErrorResponse](t, rec).Error, "data.parquet")
	})

	t.Run("legacy workbook", func(t *testing.T) {
		rec := serve(h, uploadRequest(t, "old.xls", "x"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("too large", func(t *testing.T) {
		rec := serve(h, uploadRequest(t, "big.csv", "a\n"+strings.Repeat("1\n", 2048)))
		assert.Contains(t, []int{http.StatusBadRequest, http.StatusRequestEntityTooLarge}, rec.Code)
	})
}

func TestCleanWithoutUpload(t *testing.T) {
	s := newTestServer(t, Config{})
	rec := serve(s.Handler(), httptest.NewRequest(http.MethodPost, "/clean", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No data loaded", decode[ErrorResponse](t, rec).Error)
}

func TestCleanAfterUpload(t *testing.T) {
	s := newTestServer(t, Config{})
	h := s.Handler()
	require.Equal(t, http.StatusOK, serve(h, uploadRequest(t, "sensors.csv", sensorsCSV)).Code)

	body := `{"imputationMethod":"median","outlierMethod":"mad","removeDuplicates":true}`
	rec := serve(h, httptest.NewRequest(http.MethodPost, "/clean", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Summary map[string]int `json:"summary"`
		Before  struct {
			Rows int `json:"total_rows"`
		} `json:"stats_before"`
		After struct {
			Rows    int `json:"total_rows"`
			Missing int `json:"missing_values"`
		} `json:"stats_after"`
		Preview struct {
			Indices []int `json:"indices"`
		} `json:"preview"`
		Original struct {
			Indices []int `json:"indices"`
		} `json:"original_preview"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, map[string]int{"rows_removed": 1, "missing_fixed": 1, "duplicates_fixed": 1}, resp.Summary)
	assert.Equal(t, 6, resp.Before.Rows)
	assert.Equal(t, 5, resp.After.Rows)
	assert.Zero(t, resp.After.Missing)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, resp.Preview.Indices)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, resp.Original.Indices)
}

func TestCleanUnknownOptionsAndBadBody(t *testing.T) {
	s := newTestServer(t, Config{})
	h := s.Handler()
	require.Equal(t, http.StatusOK, serve(h, uploadRequest(t, "sensors.csv", sensorsCSV)).Code)

	rec := serve(h, httptest.NewRequest(http.MethodPost, "/clean", strings.NewReader(`{"imputationMethod":"magic"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[CleanResponse](t, rec)
	assert.Equal(t, []string{"imputation=magic"}, resp.Ignored)
	assert.Equal(t, 6, resp.StatsAfter.Rows)

	rec = serve(h, httptest.NewRequest(http.MethodPost, "/clean", strings.NewReader(`{`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSessionHeaderMismatch(t *testing.T) {
	s := newTestServer(t, Config{})
	h := s.Handler()
	require.Equal(t, http.StatusOK, serve(h, uploadRequest(t, "sensors.csv", sensorsCSV)).Code)

	req := httptest.NewRequest(http.MethodPost, "/clean", strings.NewReader(`{}`))
	req.Header.Set(SessionHeader, "stale")
	rec := serve(h, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDownloadReport(t *testing.T) {
	s := newTestServer(t, Config{})
	h := s.Handler()

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/download/report", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No data for report", decode[ErrorResponse](t, rec).Error)

	require.Equal(t, http.StatusOK, serve(h, uploadRequest(t, "sensors.csv", sensorsCSV)).Code)
	clean := `{"imputationMethod":"median","outlierMethod":"none","removeDuplicates":false}`
	require.Equal(t, http.StatusOK, serve(h, httptest.NewRequest(http.MethodPost, "/clean", strings.NewReader(clean))).Code)

	rec = serve(h, httptest.NewRequest(http.MethodGet, "/download/report?format=md", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="cleaning_report.md"`, rec.Header().Get("Content-Disposition"))
	md := rec.Body.String()
	assert.Contains(t, md, "# Data Cleaning Report")
	assert.Contains(t, md, "sensors.csv")
	assert.Contains(t, md, "Applied median imputation.")

	rec = serve(h, httptest.NewRequest(http.MethodGet, "/download/report", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/html"))
	assert.Contains(t, rec.Body.String(), "<h1")

	rec = serve(h, httptest.NewRequest(http.MethodGet, "/download/report?format=pdf", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReset(t *testing.T) {
	s := newTestServer(t, Config{})
	h := s.Handler()
	require.Equal(t, http.StatusOK, serve(h, uploadRequest(t, "sensors.csv", sensorsCSV)).Code)

	rec := serve(h, httptest.NewRequest(http.MethodPost, "/reset", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Session reset", decode[MessageResponse](t, rec).Message)

	rec = serve(h, httptest.NewRequest(http.MethodGet, "/download/report", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	s := newTestServer(t, Config{})
	rec := serve(s.Handler(), httptest.NewRequest(http.MethodGet, "/upload", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCORSMiddleware(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := CORSMiddleware(inner, "http://localhost:5173")

	t.Run("allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/clean", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		rec := serve(h, req)
		assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), SessionHeader)
	})

	t.Run("other origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/clean", nil)
		req.Header.Set("Origin", "http://evil.example")
		rec := serve(h, req)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/upload", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		rec := serve(h, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}

func TestListenAndServeShutsDown(t *testing.T) {
	s := newTestServer(t, Config{Addr: "127.0.0.1:0"})
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- s.ListenAndServe(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestRespondUnencodableValue(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	s := New(nil, Config{Logger: zap.New(core)})

	rec := httptest.NewRecorder()
	s.respond(rec, map[string]float64{"v": math.Inf(1)})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"failed to encode response"}`, rec.Body.String())
	assert.Equal(t, 1, logs.FilterMessage("encode response").Len())
}
