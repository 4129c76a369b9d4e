package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/anna-farino/RiskAi-sub010/models"
)

// Extract returns a handler for POST /api/v1/extract.
//
// Selectors in the request skip structure detection for this call.
func Extract(svc Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		var req models.ExtractRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}

		article, err := svc.ExtractArticle(c.Request.Context(), req.URL, req.Selectors)
		timing := models.TimingInfo{TotalMs: time.Since(start).Milliseconds()}
		if err != nil {
			se := asScrapeError(err)
			c.JSON(statusFor(se), models.ExtractResponse{Timing: timing, Error: se.ToDetail()})
			return
		}

		c.JSON(http.StatusOK, models.ExtractResponse{
			Success: true,
			Article: article,
			Timing:  timing,
		})
	}
}
