package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/anna-farino/RiskAi-sub010/models"
	"github.com/anna-farino/RiskAi-sub010/scraper"
)

// Service is the part of *scraper.Scraper the handlers drive.
type Service interface {
	DiscoverLinks(ctx context.Context, sourceURL string, opts scraper.DiscoverOptions) ([]string, error)
	ExtractArticle(ctx context.Context, articleURL string, known *models.SelectorSet) (*models.ExtractedArticle, error)
	ExtractBatch(ctx context.Context, urls []string, concurrency int, onItem func(models.BatchItem)) []models.BatchItem
}

// asScrapeError unwraps err to a ScrapeError, wrapping anything else as
// an internal error.
func asScrapeError(err error) *models.ScrapeError {
	var se *models.ScrapeError
	if errors.As(err, &se) {
		return se
	}
	return models.NewScrapeError(models.ErrCodeInternal, err.Error(), err)
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, models.NewErrorResponse(models.ErrCodeInvalidInput, err.Error()))
}

// statusFor translates a ScrapeError to an HTTP status code.
func statusFor(e *models.ScrapeError) int {
	switch e.Code {
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest // 400
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	}
	switch e.Kind {
	case models.KindTimeout:
		return http.StatusGatewayTimeout // 504
	case models.KindNetwork, models.KindPuppeteer, models.KindAuth, models.KindAI:
		return http.StatusBadGateway // 502
	case models.KindParsing:
		return http.StatusUnprocessableEntity // 422
	default:
		return http.StatusInternalServerError // 500
	}
}
