package file

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type formPart struct {
	field    string
	filename string
	data     string
}

// multipartBody encodes parts as a multipart form. Parts without a filename become plain fields.
func multipartBody(t *testing.T, parts ...formPart) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for _, p := range parts {
		if p.filename == "" {
			require.NoError(t, mw.WriteField(p.field, p.data))
			continue
		}
		w, err := mw.CreateFormFile(p.field, p.filename)
		require.NoError(t, err)
		_, err = w.Write([]byte(p.data))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return body, mw.FormDataContentType()
}

func newTestRouter(t *testing.T, maxUpload int64) (http.Handler, *fixture) {
	t.Helper()
	f := newFixture(t)
	h := NewHandler(f.svc, maxUpload)

	r := chi.NewRouter()
	r.Post("/v1/file", h.Upload)
	r.Get("/v1/file/{id}", h.Get)
	r.Delete("/v1/file/{id}", h.Delete)
	return r, f
}

func upload(t *testing.T, router http.Handler, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/file", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandlerUploadGetDelete(t *testing.T) {
	router, _ := newTestRouter(t, 1<<20)

	body, ct := multipartBody(t, formPart{field: "file", filename: "a.txt", data: "0123456789"})
	rec := upload(t, router, body, ct)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var created fileResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "a.txt", created.FileName)
	assert.True(t, strings.HasPrefix(created.URL, publicBase+"/"))
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2}$`, created.UploadDate)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/file/"+created.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var got fileResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, created, got)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/v1/file/"+created.ID, nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/file/"+created.ID, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"message":"File not found"}`, rec.Body.String())
}

func TestHandlerUploadRejectsBadForms(t *testing.T) {
	tests := []struct {
		name  string
		parts []formPart
	}{
		{name: "no parts"},
		{name: "text field only", parts: []formPart{{field: "file", data: "not a file"}}},
		{name: "wrong field", parts: []formPart{{field: "upload", filename: "a.txt", data: "x"}}},
		{name: "two files", parts: []formPart{
			{field: "file", filename: "a.txt", data: "x"},
			{field: "file", filename: "b.txt", data: "y"},
		}},
		{name: "extra file field", parts: []formPart{
			{field: "file", filename: "a.txt", data: "x"},
			{field: "other", filename: "b.txt", data: "y"},
		}},
		{name: "empty file", parts: []formPart{{field: "file", filename: "a.txt"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, f := newTestRouter(t, 1<<20)

			body, ct := multipartBody(t, tt.parts...)
			rec := upload(t, router, body, ct)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Zero(t, f.store.puts)
			assert.Zero(t, f.repo.creates)
		})
	}
}

func TestHandlerUploadNotMultipart(t *testing.T) {
	router, f := newTestRouter(t, 1<<20)

	rec := upload(t, router, bytes.NewBufferString(`{"file":"a.txt"}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, f.store.puts)
}

func TestHandlerUploadTooLarge(t *testing.T) {
	router, f := newTestRouter(t, 16)

	body, ct := multipartBody(t, formPart{field: "file", filename: "a.txt", data: strings.Repeat("x", 32)})
	rec := upload(t, router, body, ct)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	body, ct = multipartBody(t, formPart{field: "file", filename: "a.txt", data: strings.Repeat("x", 2<<20)})
	rec = upload(t, router, body, ct)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	assert.Zero(t, f.store.puts)
}

func TestHandlerGetAndDeleteUnknown(t *testing.T) {
	router, _ := newTestRouter(t, 1<<20)

	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		for _, id := range []string{uuid.NewString(), "nope"} {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(method, "/v1/file/"+id, nil))
			assert.Equal(t, http.StatusNotFound, rec.Code, "%s %s", method, id)
		}
	}
}

func TestHandlerStoreFailureIsGeneric(t *testing.T) {
	router, f := newTestRouter(t, 1<<20)
	f.store.putErr = assert.AnError

	body, ct := multipartBody(t, formPart{field: "file", filename: "a.txt", data: "x"})
	rec := upload(t, router, body, ct)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"message":"Error uploading file"}`, rec.Body.String())
}
