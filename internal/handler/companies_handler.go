package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/octobees/localpros/api/internal/dto"
	"github.com/octobees/localpros/api/internal/entity"
	"github.com/octobees/localpros/api/internal/middleware"
	"github.com/octobees/localpros/api/internal/service"
)

// CompanyProfiles serves company detail pages.
type CompanyProfiles interface {
	Detail(ctx context.Context, id string) (entity.CompanyDetail, error)
	ServiceCategories(ctx context.Context) ([]entity.ServiceCategory, error)
	Reviews(ctx context.Context, companyID string, filter dto.ReviewFilter, page dto.PageRequest) (service.ReviewPage, error)
	Gallery(ctx context.Context, companyID string, page dto.PageRequest) (service.GalleryPage, error)
	DeleteReview(ctx context.Context, id int64) error
}

// CompaniesHandler exposes company profile endpoints.
type CompaniesHandler struct {
	service CompanyProfiles
}

// NewCompaniesHandler creates a new handler instance.
func NewCompaniesHandler(service CompanyProfiles) *CompaniesHandler {
	return &CompaniesHandler{service: service}
}

// ReviewsMeta accompanies a page of reviews.
type ReviewsMeta struct {
	Pagination         dto.Pagination            `json:"pagination"`
	RatingDistribution entity.RatingDistribution `json:"rating_distribution"`
}

type paginationMeta struct {
	Pagination dto.Pagination `json:"pagination"`
}

// Show handles GET /api/v1/companies/:id requests.
func (h *CompaniesHandler) Show(c echo.Context) error {
	detail, err := h.service.Detail(c.Request().Context(), c.Param("id"))
	if err != nil {
		return lookupError(c, err, "Company not found", "failed to load company")
	}
	return Success(c, http.StatusOK, "company retrieved", detail)
}

// Reviews handles GET /api/v1/companies/:id/reviews requests.
func (h *CompaniesHandler) Reviews(c echo.Context) error {
	filter := dto.ReviewFilter{Sort: dto.ParseReviewSort(c.QueryParam("sort"))}
	if raw := strings.TrimSpace(c.QueryParam("min_rating")); raw != "" {
		rating, err := strconv.Atoi(raw)
		if err != nil || rating < entity.MinReviewRating || rating > entity.MaxReviewRating {
			return Error(c, http.StatusBadRequest, "min_rating must be an integer between 1 and 5")
		}
		filter.MinRating = &rating
	}
	page := dto.ClampPage(parseIntDefault(c.QueryParam("page"), dto.DefaultPage), parseIntDefault(c.QueryParam("per_page"), dto.DefaultPerPage))

	result, err := h.service.Reviews(c.Request().Context(), c.Param("id"), filter, page)
	if err != nil {
		return lookupError(c, err, "Company not found", "failed to list reviews")
	}
	reviews := result.Reviews
	if reviews == nil {
		reviews = []entity.Review{}
	}
	return SuccessWithMeta(c, http.StatusOK, "reviews retrieved", reviews, ReviewsMeta{
		Pagination:         result.Pagination,
		RatingDistribution: result.Distribution,
	})
}

// Gallery handles GET /api/v1/companies/:id/gallery_images requests.
func (h *CompaniesHandler) Gallery(c echo.Context) error {
	page := dto.ClampPageWithDefault(
		parseIntDefault(c.QueryParam("page"), dto.DefaultPage),
		parseIntDefault(c.QueryParam("per_page"), service.GalleryDefaultPerPage),
		service.GalleryDefaultPerPage,
	)

	result, err := h.service.Gallery(c.Request().Context(), c.Param("id"), page)
	if err != nil {
		return lookupError(c, err, "Company not found", "failed to list gallery images")
	}
	images := result.Images
	if images == nil {
		images = []entity.GalleryImage{}
	}
	return SuccessWithMeta(c, http.StatusOK, "gallery images retrieved", images, paginationMeta{Pagination: result.Pagination})
}

// ServiceCategories handles GET /api/v1/service_categories requests.
func (h *CompaniesHandler) ServiceCategories(c echo.Context) error {
	categories, err := h.service.ServiceCategories(c.Request().Context())
	if err != nil {
		middleware.Logger(c).Error("list service categories", zap.Error(err))
		return Error(c, http.StatusInternalServerError, "failed to list service categories")
	}
	if categories == nil {
		categories = []entity.ServiceCategory{}
	}
	return Success(c, http.StatusOK, "service categories retrieved", categories)
}

// DeleteReview handles DELETE /api/backoffice/v1/reviews/:id requests.
func (h *CompaniesHandler) DeleteReview(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return Error(c, http.StatusBadRequest, "invalid review id")
	}
	if err := h.service.DeleteReview(c.Request().Context(), id); err != nil {
		return lookupError(c, err, "Review not found", "failed to delete review")
	}
	middleware.Logger(c).Info("review deleted",
		zap.Int64("review_id", id),
		zap.Any("operator", c.Get(middleware.ContextKeyOperatorEmail)),
	)
	return Success(c, http.StatusOK, "review deleted", nil)
}
