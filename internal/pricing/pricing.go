package pricing

import (
	"fmt"
	"math"

	"github.com/fiftydrive/fifty-drive-backend/internal/models"
	"github.com/fiftydrive/fifty-drive-backend/internal/orders"
)

// Rate is the per-class fare configuration. WaitTimeMin is the static
// pickup time quoted to the passenger; it is a fixed per-class constant
// rather than a computed ETA.
type Rate struct {
	BaseFare    float64
	PerKm       float64
	WaitTimeMin int
}

// Table maps ride classes to their rates. The table is configuration:
// callers load it once (env overrides applied in config) and inject it.
type Table map[models.RideClass]Rate

func DefaultTable() Table {
	return Table{
		models.RideClassEconomy: {BaseFare: 100, PerKm: 15, WaitTimeMin: 5},
		models.RideClassComfort: {BaseFare: 150, PerKm: 20, WaitTimeMin: 3},
	}
}

type Estimate struct {
	Cost       float64 `json:"cost"`
	EtaMinutes int     `json:"etaMinutes"`
}

// Estimate prices a ride: base fare plus per-kilometre rate, rounded to
// the nearest whole currency unit.
func (t Table) Estimate(distanceKm float64, class models.RideClass) (Estimate, error) {
	rate, ok := t[class]
	if !ok {
		return Estimate{}, fmt.Errorf("%w: unknown ride class %q", orders.ErrValidation, class)
	}
	if distanceKm < 0 {
		return Estimate{}, fmt.Errorf("%w: negative distance", orders.ErrValidation)
	}
	return Estimate{
		Cost:       math.Round(rate.BaseFare + distanceKm*rate.PerKm),
		EtaMinutes: rate.WaitTimeMin,
	}, nil
}
