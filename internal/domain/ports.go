package domain

import (
	"context"
	"time"
)

type ReviewRepository interface {
	// Write paths
	UpsertReviews(ctx context.Context, rs []Review) error
	MarkReplied(ctx context.Context, id, text string, at time.Time) error
	SaveAnalysis(ctx context.Context, id string, a ReviewAnalysis, at time.Time) error
	ClearAnalysis(ctx context.Context, id string) error

	// Read paths
	GetReview(ctx context.Context, id string) (Review, error)
	GetReviews(ctx context.Context, ids []string) (map[string]Review, error)
	ListReviews(ctx context.Context, q ReviewQuery) ([]Review, error)
	ListUnanalyzed(ctx context.Context, limit int) ([]Review, error)
}

type DirectoryRepository interface {
	GetUser(ctx context.Context, id string) (User, error)
	ListProperties(ctx context.Context, scope Scope) ([]Property, error)
}

type SurveyRepository interface {
	InsertSurvey(ctx context.Context, s Survey) error
	CompleteSurvey(ctx context.Context, id string, rating int, feedback string, at time.Time) error
	ListSurveys(ctx context.Context, q SurveyQuery) ([]Survey, error)
	InsertSchedule(ctx context.Context, s ReportSchedule) error
}

// TokenStore persists the review-platform OAuth token (settings/gbp_auth).
type TokenStore interface {
	LoadToken(ctx context.Context) (OAuthToken, error)
	SaveToken(ctx context.Context, t OAuthToken) error
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

// ReviewPlatform hands out an authenticated session; ErrNoCredentials when
// nothing has been connected yet.
type ReviewPlatform interface {
	Session(ctx context.Context) (PlatformSession, error)
}

// PlatformSession lists are paginated to completion by the implementation.
type PlatformSession interface {
	ListAccounts(ctx context.Context) ([]PlatformAccount, error)
	ListLocations(ctx context.Context, account string) ([]PlatformLocation, error)
	ListReviews(ctx context.Context, location string) ([]PlatformReview, error)
	UpdateReply(ctx context.Context, reviewName, comment string) error
}

type Classifier interface {
	Classify(ctx context.Context, content string) (ReviewAnalysis, error)
	DraftReply(ctx context.Context, content, author string) (string, error)
}

type Mailer interface {
	SendSurvey(ctx context.Context, to, link string, t SurveyType) error
}

type PageQuery struct {
	Limit  int // 0 = no limit
	Offset int
}

type ReviewQuery struct {
	Scope Scope
	Page  PageQuery
}

type SurveyQuery struct {
	Scope Scope
	From  time.Time
	To    time.Time
}

type OAuthToken struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	Expiry       time.Time `json:"expiry"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type PlatformAccount struct {
	Name        string // accounts/{id}
	AccountName string
}

type PlatformLocation struct {
	Name      string // accounts/{a}/locations/{l}
	Title     string
	StoreCode string
}

type PlatformReview struct {
	Name         string // accounts/{a}/locations/{l}/reviews/{r}
	ReviewID     string
	ReviewerName string
	StarRating   string // ONE..FIVE
	Comment      string
	CreateTime   time.Time
	Reply        *PlatformReply
}

type PlatformReply struct {
	Comment    string
	UpdateTime time.Time
}
