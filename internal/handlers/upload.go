package handlers

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/socialnet/apiserver/internal/services"
	"github.com/socialnet/apiserver/types"
	"go.uber.org/zap"
)

const (
	formFieldFile      = "file"
	maxUploadFiles     = 10
	maxMultipartMemory = 32 << 20
)

// UploadHandler accepts media files and stores them in object storage.
type UploadHandler struct {
	mediaService *services.MediaService
	maxBytes     int64
	log          *zap.Logger
}

func NewUploadHandler(mediaService *services.MediaService, maxBytes int64, log *zap.Logger) *UploadHandler {
	if maxBytes <= 0 {
		maxBytes = 32 << 20
	}
	return &UploadHandler{mediaService: mediaService, maxBytes: maxBytes, log: log}
}

// UploadRouter registers the upload route on the given router.
func UploadRouter(r chi.Router, handler *UploadHandler) {
	r.With(RequireAuth).Post("/", handler.Upload)
}

func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes*maxUploadFiles+1<<20)
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, errFileTooLarge.Error())
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	files, err := h.readFiles(r.MultipartForm)
	if err != nil {
		if errors.Is(err, errFileTooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	uploaded, err := h.mediaService.Upload(r.Context(), files)
	if err != nil {
		if len(uploaded) > 0 {
			h.log.Warn("partial upload left in storage",
				zap.Int("stored", len(uploaded)),
				zap.Int("requested", len(files)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		}
		writeServiceError(w, r, h.log, err, "failed to upload file")
		return
	}

	writeJSON(w, http.StatusOK, UploadResponse{
		Message:  "File uploaded successfully",
		URL:      uploaded[0].URL,
		PublicID: uploaded[0].PublicID,
		Uploads:  uploaded,
	})
}

func (h *UploadHandler) readFiles(form *multipart.Form) ([]services.MediaFile, error) {
	if form == nil || len(form.File[formFieldFile]) == 0 {
		return nil, services.ErrNoMedia
	}
	headers := form.File[formFieldFile]
	if len(headers) > maxUploadFiles {
		return nil, fmt.Errorf("at most %d files per upload", maxUploadFiles)
	}

	files := make([]services.MediaFile, 0, len(headers))
	for _, header := range headers {
		file, err := header.Open()
		if err != nil {
			return nil, errors.New("failed to read upload")
		}
		data, err := readFileLimited(file, h.maxBytes)
		_ = file.Close()
		if err != nil {
			return nil, err
		}
		files = append(files, services.MediaFile{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Data:        data,
		})
	}
	return files, nil
}

type UploadResponse struct {
	Message  string        `json:"message"`
	URL      string        `json:"url"`
	PublicID string        `json:"publicId"`
	Uploads  []types.Media `json:"uploads"`
}
