package domain

import "time"

type SurveyType string

const (
	SurveyMoveIn  SurveyType = "move_in"
	SurveyMoveOut SurveyType = "move_out"
)

type SurveyStatus string

const (
	SurveySent      SurveyStatus = "sent"
	SurveyCompleted SurveyStatus = "completed"
)

type Survey struct {
	ID            string       `json:"id"`
	PropertyID    string       `json:"property_id"`
	ResidentEmail string       `json:"resident_email"`
	Type          SurveyType   `json:"type"`
	Status        SurveyStatus `json:"status"`
	SentAt        time.Time    `json:"sent_at"`
	CompletedAt   *time.Time   `json:"completed_at,omitempty"`
	Rating        *int         `json:"rating,omitempty"`
	Feedback      *string      `json:"feedback,omitempty"`
}

type SurveyAnalytics struct {
	Total         int                `json:"total"`
	Completed     int                `json:"completed"`
	ResponseRate  int                `json:"response_rate"` // percent, rounded
	AverageRating float64            `json:"average_rating"`
	ByRating      [5]int             `json:"by_rating"`
	ByType        map[SurveyType]int `json:"by_type"`
	Surveys       []Survey           `json:"surveys"`
}

type ReportFrequency string

const (
	FrequencyDaily   ReportFrequency = "daily"
	FrequencyWeekly  ReportFrequency = "weekly"
	FrequencyMonthly ReportFrequency = "monthly"
)

func (f ReportFrequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return true
	}
	return false
}

type ReportSchedule struct {
	ID         string          `json:"id"`
	Email      string          `json:"email"`
	Frequency  ReportFrequency `json:"frequency"`
	PropertyID string          `json:"property_id"`
	Status     string          `json:"status"`
	CreatedBy  string          `json:"created_by"`
	CreatedAt  time.Time       `json:"created_at"`
}
