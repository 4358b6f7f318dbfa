package server

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudfiles/webapp/internal/db/dbtest"
	"github.com/cloudfiles/webapp/internal/file"
	"github.com/cloudfiles/webapp/internal/health"
	"github.com/cloudfiles/webapp/internal/middleware"
	"github.com/cloudfiles/webapp/internal/storage"
)

const publicBase = "http://localhost:9000/webapp-files"

type testServer struct {
	*httptest.Server
	objects afero.Fs
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	conn := dbtest.SQLite(t)
	mem := afero.NewMemMapFs()

	fileSvc := file.NewService(file.NewSQLiteRepository(conn), storage.NewFSStorage(mem, publicBase), logger)
	healthSvc := health.NewService(health.NewSQLiteRepository(conn), logger)

	srv := httptest.NewServer(NewRouter(Handlers{
		File:   file.NewHandler(fileSvc, 1<<20),
		Health: health.NewHandler(healthSvc),
	}, logger))
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, objects: mem}
}

func (s *testServer) do(t *testing.T, method, path string, body string) *http.Response {
	t.Helper()
	var req *http.Request
	var err error
	if body == "" {
		req, err = http.NewRequest(method, s.URL+path, nil)
	} else {
		req, err = http.NewRequest(method, s.URL+path, strings.NewReader(body))
	}
	require.NoError(t, err)
	resp, err := s.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (s *testServer) upload(t *testing.T, name, data string) *http.Response {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	w, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = w.Write([]byte(data))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := s.Client().Post(s.URL+"/v1/file", mw.FormDataContentType(), body)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

type fileBody struct {
	FileName   string `json:"file_name"`
	ID         string `json:"id"`
	URL        string `json:"url"`
	UploadDate string `json:"upload_date"`
}

func decode(t *testing.T, resp *http.Response) fileBody {
	t.Helper()
	var out fileBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	var buf bytes.Buffer
	_, err := buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return buf.String()
}

func TestFileLifecycle(t *testing.T) {
	s := newTestServer(t)

	resp := s.upload(t, "a.txt", "0123456789")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, middleware.CacheControl, resp.Header.Get("Cache-Control"))
	created := decode(t, resp)
	assert.Equal(t, "a.txt", created.FileName)
	assert.NotEmpty(t, created.ID)

	key := strings.TrimPrefix(created.URL, publicBase+"/")
	data, err := afero.ReadFile(s.objects, key)
	require.NoError(t, err)
	assert.Equal(t, "0123456789", string(data))

	resp = s.do(t, http.MethodGet, "/v1/file/"+created.ID, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, middleware.CacheControl, resp.Header.Get("Cache-Control"))
	got := decode(t, resp)
	assert.Equal(t, created.URL, got.URL)
	assert.Equal(t, created.FileName, got.FileName)
	assert.Equal(t, created.UploadDate, got.UploadDate)

	resp = s.do(t, http.MethodDelete, "/v1/file/"+created.ID, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	exists, err := afero.Exists(s.objects, key)
	require.NoError(t, err)
	assert.False(t, exists)

	resp = s.do(t, http.MethodGet, "/v1/file/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestBoundaryRejections(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{name: "query on upload", method: http.MethodPost, path: "/v1/file?x=1", want: http.StatusBadRequest},
		{name: "query on get", method: http.MethodGet, path: "/v1/file/abc?x=1", want: http.StatusBadRequest},
		{name: "query on delete", method: http.MethodDelete, path: "/v1/file/abc?x=1", want: http.StatusBadRequest},
		{name: "query on unsupported method", method: http.MethodPatch, path: "/v1/file?x=1", want: http.StatusBadRequest},
		{name: "body on get", method: http.MethodGet, path: "/v1/file/abc", body: `{"a":1}`, want: http.StatusBadRequest},
		{name: "body on delete", method: http.MethodDelete, path: "/v1/file/abc", body: `{"a":1}`, want: http.StatusBadRequest},
		{name: "put", method: http.MethodPut, path: "/v1/file/abc", want: http.StatusMethodNotAllowed},
		{name: "healthz query", method: http.MethodGet, path: "/healthz?x=1", want: http.StatusBadRequest},
		{name: "healthz body", method: http.MethodGet, path: "/healthz", body: "x", want: http.StatusBadRequest},
		{name: "healthz post", method: http.MethodPost, path: "/healthz", want: http.StatusMethodNotAllowed},
		{name: "unknown route", method: http.MethodGet, path: "/v2/file", want: http.StatusNotFound},
		{name: "unknown file route", method: http.MethodGet, path: "/v1/files", want: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := s.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, resp.StatusCode)
			assert.Empty(t, readBody(t, resp))
		})
	}
}

func TestPreflightFollowsBoundaryRules(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		path string
		want int
	}{
		{path: "/v1/file?x=1", want: http.StatusBadRequest},
		{path: "/healthz?x=1", want: http.StatusBadRequest},
		{path: "/healthz", want: http.StatusMethodNotAllowed},
		{path: "/v1/file/abc", want: http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodOptions, s.URL+tt.path, nil)
			require.NoError(t, err)
			req.Header.Set("Origin", "http://app.example.com")
			req.Header.Set("Access-Control-Request-Method", http.MethodGet)

			resp, err := s.Client().Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.want, resp.StatusCode)
			assert.Empty(t, readBody(t, resp))
		})
	}
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)

	resp := s.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, middleware.CacheControl, resp.Header.Get("Cache-Control"))
	assert.Empty(t, readBody(t, resp))
}

func TestHealthzDatabaseOutage(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	conn := dbtest.SQLite(t)
	require.NoError(t, conn.Close())

	router := NewRouter(Handlers{
		File:   file.NewHandler(file.NewService(file.NewSQLiteRepository(conn), storage.NewFSStorage(afero.NewMemMapFs(), publicBase), logger), 1<<20),
		Health: health.NewHandler(health.NewService(health.NewSQLiteRepository(conn), logger)),
	}, logger)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestMetricsAndDocs(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodGet, "/healthz", "")

	resp := s.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), `webapp_http_requests_total{method="GET",route="/healthz",status="200"}`)

	resp = s.do(t, http.MethodGet, "/swagger/doc.json", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "/v1/file/{id}")
}
