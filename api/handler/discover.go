package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/anna-farino/RiskAi-sub010/models"
	"github.com/anna-farino/RiskAi-sub010/scraper"
)

// Discover returns a handler for POST /api/v1/discover.
func Discover(svc Service, maxLinks int) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		var req models.DiscoverRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		req.Defaults(maxLinks)

		links, err := svc.DiscoverLinks(c.Request.Context(), req.URL, scraper.DiscoverOptions{
			TopicHint: req.TopicHint,
			MaxLinks:  req.MaxLinks,
		})
		timing := models.TimingInfo{TotalMs: time.Since(start).Milliseconds()}
		if err != nil {
			se := asScrapeError(err)
			c.JSON(statusFor(se), models.DiscoverResponse{
				Links:  []string{},
				Timing: timing,
				Error:  se.ToDetail(),
			})
			return
		}
		if links == nil {
			links = []string{}
		}

		c.JSON(http.StatusOK, models.DiscoverResponse{
			Success: true,
			Links:   links,
			Total:   len(links),
			Timing:  timing,
		})
	}
}
