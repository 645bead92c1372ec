package handler

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/docscan/docscan-backend/internal/docprocessing/domain"
	"github.com/docscan/docscan-backend/internal/docprocessing/service"
	apperrors "github.com/docscan/docscan-backend/pkg/errors"
	"github.com/docscan/docscan-backend/pkg/httputil"
	"github.com/docscan/docscan-backend/pkg/logger"
)

const (
	maxUploadSize = 20 << 20 // 20MB
	maxDecodeBody = 4 << 10
)

// DecodeRequest is the body of POST /documents/mrz/decode
type DecodeRequest struct {
	Lines []string `json:"lines" validate:"required,min=2,max=3,dive,max=64,mrzline"`
}

// Handler handles HTTP requests for document extraction
type Handler struct {
	service *service.Service
	log     *logger.Logger
}

// NewHandler creates a new document extraction handler
func NewHandler(svc *service.Service, log *logger.Logger) *Handler {
	return &Handler{
		service: svc,
		log:     log,
	}
}

// Routes registers the document and country routes on r.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/documents", func(r chi.Router) {
		r.Post("/mrz/decode", h.Decode)
		r.Post("/extract", h.Extract)
		r.Get("/extract/{jobId}", h.GetResult)
	})
	r.Get("/countries/{code}", h.GetCountry)
}

// Decode handles POST /documents/mrz/decode
// Body: {"lines": ["<line 1>", "<line 2>"]} with two TD3 or three TD1 lines.
func (h *Handler) Decode(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxDecodeBody)

	var req DecodeRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	result, err := h.service.DecodeLines(r.Context(), req.Lines)
	if err != nil {
		h.fail(w, r, err, "mrz decode failed")
		return
	}

	httputil.JSON(w, http.StatusOK, result)
}

// Extract handles POST /documents/extract
// Accepts multipart form with:
// - file: the document image, or MRZ text for document_type mrz_text
// - document_type: one of passport, id_card, mrz_text
// - consent_timestamp: RFC 3339 timestamp of consent
func (h *Handler) Extract(w http.ResponseWriter, r *http.Request) {
	// Limit request size
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			httputil.Error(w, apperrors.PayloadTooLarge(maxErr.Limit))
			return
		}
		httputil.Error(w, apperrors.BadRequest("invalid multipart form"))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	docType := domain.DocumentType(r.FormValue("document_type"))
	if !docType.Valid() {
		httputil.Error(w, apperrors.Validation(map[string]string{
			"document_type": "must be one of: " + documentTypeList(),
		}))
		return
	}

	consentTimestamp, err := time.Parse(time.RFC3339, r.FormValue("consent_timestamp"))
	if err != nil {
		httputil.Error(w, apperrors.Validation(map[string]string{
			"consent_timestamp": "must be an RFC 3339 timestamp",
		}))
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		httputil.Error(w, apperrors.Validation(map[string]string{
			"file": "this field is required",
		}))
		return
	}
	defer file.Close()

	// Read file into memory (never to disk)
	data, err := io.ReadAll(file)
	if err != nil {
		h.fail(w, r, err, "failed to read uploaded file")
		return
	}

	// data is zeroed by the service
	job, err := h.service.StartExtraction(r.Context(), data, docType, consentTimestamp, httputil.GetUserID(r.Context()))
	if err != nil {
		h.fail(w, r, err, "extraction failed")
		return
	}

	httputil.Accepted(w, job)
}

// GetResult handles GET /documents/extract/{jobId}
// Returns the extraction job status and results
func (h *Handler) GetResult(w http.ResponseWriter, r *http.Request) {
	job, err := h.service.GetJob(chi.URLParam(r, "jobId"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, job)
}

// GetCountry handles GET /countries/{code}
// Unknown codes resolve to themselves.
func (h *Handler) GetCountry(w http.ResponseWriter, r *http.Request) {
	country := h.service.ResolveCountry(chi.URLParam(r, "code"))
	if country.Code == "" {
		httputil.Error(w, apperrors.BadRequest("country code must contain letters"))
		return
	}

	httputil.JSON(w, http.StatusOK, country)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, msg string) {
	if apperrors.HTTPStatus(err) >= http.StatusInternalServerError {
		h.log.WithRequestID(httputil.GetRequestID(r.Context())).Error().Err(err).Msg(msg)
	}
	httputil.Error(w, err)
}

func documentTypeList() string {
	names := make([]string, len(domain.DocumentTypes))
	for i, t := range domain.DocumentTypes {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}
