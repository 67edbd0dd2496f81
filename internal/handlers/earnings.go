package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/fiftydrive/fifty-drive-backend/internal/earnings"
)

// DriverEarnings reports the caller's earnings for a period: today,
// week, month or all (the default).
func DriverEarnings(ledger *earnings.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		period := earnings.Period(c.DefaultQuery("period", string(earnings.PeriodAllTime)))
		total, err := ledger.EarningsFor(c.Request.Context(), c.GetUint("userId"), period)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(200, gin.H{
			"period":   period,
			"earnings": total,
		})
	}
}
