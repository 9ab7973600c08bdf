package store

// FleetStats summarises the visits of one fleet.
type FleetStats struct {
	FleetID     string `json:"fleetId" gorm:"column:fleet_id"`
	TotalVisits int64  `json:"totalVisits" gorm:"column:total_visits"`
	// LastVisitDate is the most recent arrival, in epoch milliseconds.
	LastVisitDate *int64 `json:"lastVisitDate" gorm:"column:last_visit_date"`
}
