package model

import "time"

// Overview aggregates a user's money movement over a date window.
type Overview struct {
	Period             string        `json:"period"`
	StartDate          string        `json:"startDate"`
	EndDate            string        `json:"endDate"`
	TotalInflowAmount  int64         `json:"totalInflowAmount"`
	TotalOutflowAmount int64         `json:"totalOutflowAmount"`
	NetTotal           int64         `json:"netTotal"`
	LatestInflows      []Transaction `json:"latestInflows"`
	LatestOutflows     []Transaction `json:"latestOutflows"`
}

// FinancialSummary is generated text describing one calendar month.
// At most one exists per user and month; once written it is never
// regenerated.
type FinancialSummary struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Period    string    `json:"period"` // first day of the month, YYYY-MM-DD
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}
