package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/socialnet/apiserver/internal/services"
	"go.uber.org/zap"
)

const (
	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 100
)

type contextKey string

const contextSubjectKey contextKey = "sub"

var errFileTooLarge = errors.New("uploaded file too large")

// ErrorResponse is a simple error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}

// MessageResponse acknowledges a write that returns nothing else.
type MessageResponse struct {
	Message string `json:"message"`
}

// viewerFromContext returns the authenticated user id, or "" for anonymous
// requests.
func viewerFromContext(ctx context.Context) string {
	subject, _ := ctx.Value(contextSubjectKey).(string)
	return subject
}

func withViewer(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, contextSubjectKey, userID)
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: clientMessage(message)})
}

// clientMessage upper-cases the first letter of an error string for the
// response body. Go error values stay lower case.
func clientMessage(message string) string {
	r, size := utf8.DecodeRuneInString(message)
	if r == utf8.RuneError || unicode.IsUpper(r) {
		return message
	}
	return string(unicode.ToUpper(r)) + message[size:]
}

// writeServiceError maps service sentinels to HTTP responses. Anything it does
// not recognise is logged and reported as a 500 with the fallback message.
func writeServiceError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error, fallback string) {
	switch {
	case errors.Is(err, services.ErrMissingFields),
		errors.Is(err, services.ErrMissingCredentials),
		errors.Is(err, services.ErrEmailInUse),
		errors.Is(err, services.ErrUsernameTaken),
		errors.Is(err, services.ErrInvalidProfile),
		errors.Is(err, services.ErrSelfFollow),
		errors.Is(err, services.ErrEmptyPost),
		errors.Is(err, services.ErrEmptyComment),
		errors.Is(err, services.ErrNoMedia):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrNoSuchUser),
		errors.Is(err, services.ErrInvalidPassword):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, services.ErrUnauthenticated),
		errors.Is(err, services.ErrForbidden):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrFollowTargetNotFound),
		errors.Is(err, services.ErrPostNotFound),
		errors.Is(err, services.ErrCommentNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		log.Error(fallback,
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, fallback)
	}
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errors.New("invalid request")
	}
	return nil
}

func parsePagination(r *http.Request) (page, limit, offset int, err error) {
	page = defaultPage
	limit = defaultLimit

	if raw := strings.TrimSpace(r.URL.Query().Get("page")); raw != "" {
		page, err = strconv.Atoi(raw)
		if err != nil || page < 1 {
			return 0, 0, 0, errors.New("invalid page")
		}
	}

	rawLimit := strings.TrimSpace(r.URL.Query().Get("limit"))
	if rawLimit == "" {
		rawLimit = strings.TrimSpace(r.URL.Query().Get("per_page"))
	}
	if rawLimit != "" {
		limit, err = strconv.Atoi(rawLimit)
		if err != nil || limit < 1 {
			return 0, 0, 0, errors.New("invalid limit")
		}
	}

	if limit > maxLimit {
		limit = maxLimit
	}
	if page-1 > math.MaxInt/limit {
		return 0, 0, 0, errors.New("invalid page")
	}

	offset = (page - 1) * limit
	return page, limit, offset, nil
}

func readFileLimited(reader io.Reader, limit int64) ([]byte, error) {
	limited := io.LimitReader(reader, limit+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, errors.New("failed to read upload")
	}
	if int64(len(data)) > limit {
		return nil, errFileTooLarge
	}
	return data, nil
}

// Healthz reports that the process is serving.
func Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
