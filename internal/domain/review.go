package domain

import "time"

type ReviewStatus string

const (
	StatusPending ReviewStatus = "pending"
	StatusReplied ReviewStatus = "replied"
	StatusFlagged ReviewStatus = "flagged"
)

type Category string

const (
	CategoryMaintenance Category = "maintenance"
	CategoryStaff       Category = "staff"
	CategoryCleanliness Category = "cleanliness"
	CategoryAmenities   Category = "amenities"
	CategoryGeneral     Category = "general"
)

type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// UnknownProperty tags reviews whose location carries no store code.
const UnknownProperty = "UNKNOWN"

type Review struct {
	ID          string       `json:"id"`
	PropertyID  string       `json:"property_id"`
	LocationRef string       `json:"location_ref,omitempty"` // platform resource name, e.g. accounts/1/locations/2
	Author      string       `json:"author"`
	Rating      int          `json:"rating"`
	Content     string       `json:"content"`
	CreatedAt   time.Time    `json:"created_at"`
	Status      ReviewStatus `json:"status"`

	ReplyText *string    `json:"reply_text,omitempty"`
	RepliedAt *time.Time `json:"replied_at,omitempty"`

	// AI-derived; nil until the audit sweep has classified the review.
	Category   *Category  `json:"category,omitempty"`
	Sentiment  *Sentiment `json:"sentiment,omitempty"`
	Actionable *bool      `json:"actionable,omitempty"`
	Summary    *string    `json:"summary,omitempty"`
	AnalyzedAt *time.Time `json:"analyzed_at,omitempty"`
}

// Analyzed reports whether the audit sweep has classified the review.
func (r Review) Analyzed() bool { return r.Category != nil }

// ReviewAnalysis is the classifier output written back by the audit sweep.
type ReviewAnalysis struct {
	Category   Category
	Sentiment  Sentiment
	Actionable bool
	Summary    string
}

// MergeSynced folds a freshly synced review into the stored one.
// Platform-owned fields come from incoming; AI fields are always kept from
// existing, and a local flag survives until the platform reports a reply.
func MergeSynced(existing *Review, incoming Review) Review {
	if existing == nil {
		return incoming
	}
	out := *existing
	out.PropertyID = incoming.PropertyID
	out.LocationRef = incoming.LocationRef
	out.Author = incoming.Author
	out.Rating = incoming.Rating
	out.Content = incoming.Content
	out.CreatedAt = incoming.CreatedAt

	switch {
	case incoming.Status == StatusReplied:
		out.Status = StatusReplied
		if incoming.ReplyText != nil {
			out.ReplyText = incoming.ReplyText
		}
		if incoming.RepliedAt != nil {
			out.RepliedAt = incoming.RepliedAt
		}
	case existing.Status == StatusFlagged:
		out.Status = StatusFlagged
	default:
		out.Status = incoming.Status
	}
	return out
}

type ReviewStats struct {
	Total         int              `json:"total"`
	AverageRating float64          `json:"average_rating"`
	Pending       int              `json:"pending"`
	Actionable    int              `json:"actionable"`
	ByCategory    map[Category]int `json:"by_category"`
	ByRating      [5]int           `json:"by_rating"` // index 0 = one star
}

type SyncResult struct {
	Synced   int  `json:"synced"`
	Failures int  `json:"failures"` // accounts or locations that could not be read or stored
	Skipped  bool `json:"skipped"`
}

type AuditResult struct {
	Processed int `json:"processed"`
	Errors    int `json:"errors"`
}

type ReplyResult struct {
	Posted     bool `json:"posted"`
	CacheStale bool `json:"cache_stale"`
}
