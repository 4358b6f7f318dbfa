package file

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cloudfiles/webapp/internal/response"
)

const (
	// formField is the only multipart file field accepted on upload.
	formField = "file"
	// multipartMemory is held in memory before form parts spill to temp files.
	multipartMemory = 32 << 20
	// multipartOverhead allows for boundaries and part headers around the payload.
	multipartOverhead = 1 << 20
)

// Handler holds HTTP handlers for file endpoints.
type Handler struct {
	svc       *Service
	maxUpload int64
}

// NewHandler creates a new file Handler accepting payloads up to maxUpload bytes.
func NewHandler(svc *Service, maxUpload int64) *Handler {
	return &Handler{svc: svc, maxUpload: maxUpload}
}

type fileResponse struct {
	FileName   string `json:"file_name"   example:"a.txt"`
	ID         string `json:"id"          example:"d290f1ee-6c54-4b01-90e6-d701748f0851"`
	URL        string `json:"url"         example:"http://localhost:9000/webapp-files/6f1c2a9e-4a7b-4b55-9d0e-1b2f3c4d5e6f.txt"`
	UploadDate string `json:"upload_date" example:"2026-10-18"`
}

func newFileResponse(rec *Record) fileResponse {
	return fileResponse{
		FileName:   rec.FileName,
		ID:         rec.ID,
		URL:        rec.URL,
		UploadDate: rec.UploadDay(),
	}
}

// Upload godoc
//
//	@Summary		Upload a file
//	@Description	Stores the file in the object store and records its metadata. The form must carry exactly one file in the "file" field.
//	@Tags			files
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file	formData	file	true	"File to upload"
//	@Success		201		{object}	fileResponse
//	@Failure		400		{object}	response.ErrorBody
//	@Failure		413		{object}	response.ErrorBody
//	@Failure		500		{object}	response.ErrorBody
//	@Router			/v1/file [post]
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+multipartOverhead)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.TooLarge(w, "File too large")
			return
		}
		response.BadRequest(w, "Malformed multipart request")
		return
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck

	fields := r.MultipartForm.File
	parts := fields[formField]
	if len(parts) == 0 {
		response.BadRequest(w, "No file uploaded")
		return
	}
	if len(parts) > 1 || len(fields) > 1 {
		response.BadRequest(w, "Unexpected file field")
		return
	}
	if parts[0].Size > h.maxUpload {
		response.TooLarge(w, "File too large")
		return
	}

	data, err := readPart(parts[0])
	if err != nil {
		response.BadRequest(w, "Malformed multipart request")
		return
	}

	rec, err := h.svc.Create(r.Context(), Upload{
		Name:        parts[0].Filename,
		ContentType: parts[0].Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		if errors.Is(err, ErrInvalidRequest) {
			response.BadRequest(w, "No file uploaded")
			return
		}
		response.InternalError(w, "Error uploading file")
		return
	}

	response.Created(w, newFileResponse(rec))
}

// Get godoc
//
//	@Summary		Get file metadata
//	@Description	Returns the name, URL and upload date of a stored file.
//	@Tags			files
//	@Produce		json
//	@Param			id	path		string	true	"File ID"
//	@Success		200	{object}	fileResponse
//	@Failure		404	{object}	response.ErrorBody
//	@Failure		500	{object}	response.ErrorBody
//	@Router			/v1/file/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(w, "File not found")
			return
		}
		response.InternalError(w, "Error retrieving file")
		return
	}

	response.OK(w, newFileResponse(rec))
}

// Delete godoc
//
//	@Summary		Delete a file
//	@Description	Removes the stored object, then its metadata record.
//	@Tags			files
//	@Param			id	path	string	true	"File ID"
//	@Success		204
//	@Failure		404	{object}	response.ErrorBody
//	@Failure		500	{object}	response.ErrorBody
//	@Router			/v1/file/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(w, "File not found")
			return
		}
		response.InternalError(w, "Error deleting file")
		return
	}

	response.NoContent(w)
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open form file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read form file: %w", err)
	}
	return data, nil
}
