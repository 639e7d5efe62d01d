package models

// Dashboard is the metrics panel for one user. Metrics that could not be
// computed hold their zero value and are named in Degraded.
type Dashboard struct {
	UserID         string   `json:"user_id"`
	FleetCapacity  float64  `json:"fleet_capacity"`
	MonthlyRevenue float64  `json:"monthly_revenue"`
	ActiveJobs     int      `json:"active_jobs"`
	OpenLoads      int      `json:"open_loads"`
	PendingBids    int      `json:"pending_bids"`
	Degraded       []string `json:"degraded,omitempty"`
}
