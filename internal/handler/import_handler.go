package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/octobees/localpros/api/internal/middleware"
	"github.com/octobees/localpros/api/internal/rowsource"
	"github.com/octobees/localpros/api/internal/service"
)

// FileImporter reconciles an uploaded file into the directory.
type FileImporter interface {
	ImportFile(ctx context.Context, kind service.ImportKind, format rowsource.Format, r io.Reader, onRow func(row int)) (service.ImportResult, error)
}

// ImportHandler handles backoffice file imports.
type ImportHandler struct {
	importer FileImporter
	maxBytes int64
	now      func() time.Time
}

// NewImportHandler wires a handler that rejects uploads larger than maxBytes.
func NewImportHandler(importer FileImporter, maxBytes int64) *ImportHandler {
	return &ImportHandler{importer: importer, maxBytes: maxBytes, now: time.Now}
}

// ImportEnvelope identifies one import run.
type ImportEnvelope struct {
	ID         string               `json:"id"`
	Type       string               `json:"type"`
	Attributes service.ImportResult `json:"attributes"`
}

// ImportCompanies handles POST /api/backoffice/v1/import_companies requests.
func (h *ImportHandler) ImportCompanies(c echo.Context) error {
	return h.importFile(c, service.ImportCompanies)
}

// ImportReviews handles POST /api/backoffice/v1/import_reviews requests.
func (h *ImportHandler) ImportReviews(c echo.Context) error {
	return h.importFile(c, service.ImportReviews)
}

// ImportGalleries handles POST /api/backoffice/v1/import_galleries requests.
func (h *ImportHandler) ImportGalleries(c echo.Context) error {
	return h.importFile(c, service.ImportGalleries)
}

func (h *ImportHandler) importFile(c echo.Context, kind service.ImportKind) error {
	fail := func(status int, code, title, message string) error {
		return Fail(c, status, APIError{Code: code, Service: kind.ServiceName(), Title: title, Message: message})
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return fail(http.StatusBadRequest, "MISSING_FILE", "Missing File", "No file provided")
	}
	if h.maxBytes > 0 && fileHeader.Size > h.maxBytes {
		return fail(http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "File Size Exceeded",
			fmt.Sprintf("The uploaded file exceeds the maximum allowed size of %s.", humanSize(h.maxBytes)))
	}
	format, ok := rowsource.DetectFormat(fileHeader.Filename, fileHeader.Header.Get(echo.HeaderContentType))
	if !ok {
		return fail(http.StatusBadRequest, "INVALID_FILE_FORMAT", "Invalid File Format",
			"The uploaded file is not a valid CSV file. Please upload a CSV file with the correct format.")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return fail(http.StatusBadRequest, "MISSING_FILE", "Missing File", "unable to open file")
	}
	defer file.Close()

	log := middleware.Logger(c).With(zap.String("kind", string(kind)), zap.String("file", fileHeader.Filename))
	result, err := h.importer.ImportFile(c.Request().Context(), kind, format, file, nil)
	if err != nil {
		var formatErr *service.FormatError
		if errors.As(err, &formatErr) {
			log.Info("import rejected", zap.Error(err))
			return fail(http.StatusBadRequest, "INVALID_FILE_FORMAT", "Invalid File Format", formatErr.Error())
		}
		log.Error("import failed", zap.Error(err))
		return Error(c, http.StatusInternalServerError, "failed to process file")
	}

	return Success(c, http.StatusOK, result.Message, ImportEnvelope{
		ID:         h.importID(),
		Type:       "import_" + string(kind),
		Attributes: result,
	})
}

// importID renders imp_<unix>_<6 hex>.
func (h *ImportHandler) importID() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return fmt.Sprintf("imp_%d_%s", h.now().Unix(), suffix)
}

func humanSize(n int64) string {
	const mb = 1 << 20
	if n%mb == 0 {
		return fmt.Sprintf("%dMB", n/mb)
	}
	return fmt.Sprintf("%d bytes", n)
}
