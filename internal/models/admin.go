package models

// AdminStatsQueryParams represents query parameters for admin stats endpoint.
type AdminStatsQueryParams struct {
	Days int `json:"days" validate:"omitempty,oneof=7 30 90"`
}

// AdminStatsResponse contains step-up statistics for the admin dashboard.
type AdminStatsResponse struct {
	TotalUsers          int64             `json:"total_users"`
	UsersWithMFA        int64             `json:"users_with_mfa"`
	PendingChallenges   int64             `json:"pending_challenges"`
	VerificationsPerDay []TimeSeriesPoint `json:"verifications_per_day"`
	FailuresPerDay      []TimeSeriesPoint `json:"failures_per_day"`
	ApprovalsPerDay     []TimeSeriesPoint `json:"approvals_per_day"`
}

// TimeSeriesPoint represents a data point in a time series chart.
type TimeSeriesPoint struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}
