package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shelfmark/shelfmark/internal/auth"
	"github.com/shelfmark/shelfmark/internal/stats"
)

// DashboardSource computes the per-user aggregate snapshot.
type DashboardSource interface {
	ForUser(userID uint) (*stats.Dashboard, error)
}

// DashboardController serves the landing-page aggregates.
type DashboardController struct {
	source DashboardSource
}

func NewDashboardController(source DashboardSource) *DashboardController {
	return &DashboardController{source: source}
}

// Get handles GET /api/dashboard. Everything is computed fresh on
// each request.
func (ctrl *DashboardController) Get(c *gin.Context) {
	dashboard, err := ctrl.source.ForUser(auth.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":         true,
		"total":      dashboard.Total,
		"yearRead":   dashboard.YearRead,
		"spendTotal": dashboard.SpendTotal,
		"loansOpen":  dashboard.LoansOpen,
		"year":       dashboard.Year,
		"lastRead":   dashboard.LastRead,
	})
}
