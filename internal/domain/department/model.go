package department

import "math"

// Occupancy bands used by the department filter.
const (
	BandHigh   = "high"
	BandMedium = "medium"
	BandLow    = "low"
)

type Department struct {
	ID               int64  `json:"id"`
	Name             string `json:"name"`
	Type             string `json:"type"`
	TotalBeds        int64  `json:"totalBeds"`
	AvailableBeds    int64  `json:"availableBeds"`
	HeadOfDepartment string `json:"headOfDepartment"`
	ContactExtension string `json:"contactExtension"`
}

// OccupiedBeds never goes negative, even on inconsistent counts.
func (d Department) OccupiedBeds() int64 {
	if d.AvailableBeds >= d.TotalBeds {
		return 0
	}
	return d.TotalBeds - max(d.AvailableBeds, 0)
}

// OccupancyRate is the occupied share of beds in percent, 0 without beds.
func (d Department) OccupancyRate() float64 {
	if d.TotalBeds <= 0 {
		return 0
	}
	return float64(d.OccupiedBeds()) / float64(d.TotalBeds) * 100
}

// Band classifies occupancy: high from 80%, medium from 50%, low below.
func (d Department) Band() string {
	switch rate := d.OccupancyRate(); {
	case rate >= 80:
		return BandHigh
	case rate >= 50:
		return BandMedium
	default:
		return BandLow
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
