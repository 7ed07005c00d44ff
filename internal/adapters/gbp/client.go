package gbp

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"reputation_hub/internal/adapters/restclient"
	"reputation_hub/internal/domain"
)

// maxPages bounds a single collection walk.
const maxPages = 500

// Endpoints are the three API surfaces the review sync touches.
type Endpoints struct {
	Accounts     string // account management v1
	BusinessInfo string // business information v1
	Reviews      string // reviews v4
}

func DefaultEndpoints() Endpoints {
	return Endpoints{
		Accounts:     "https://mybusinessaccountmanagement.googleapis.com/v1",
		BusinessInfo: "https://mybusinessbusinessinformation.googleapis.com/v1",
		Reviews:      "https://mybusiness.googleapis.com/v4",
	}
}

// session is one authenticated view of the platform.
type session struct {
	rc *restclient.Client
	ep Endpoints
}

func newSession(hc *http.Client, ep Endpoints, rps int) *session {
	return &session{rc: restclient.New("gbp", hc, rps), ep: ep}
}

/********** wire shapes **********/

type accountsPage struct {
	Accounts []struct {
		Name        string `json:"name"`
		AccountName string `json:"accountName"`
	} `json:"accounts"`
	NextPageToken string `json:"nextPageToken"`
}

type locationsPage struct {
	Locations []struct {
		Name      string `json:"name"`
		Title     string `json:"title"`
		StoreCode string `json:"storeCode"`
	} `json:"locations"`
	NextPageToken string `json:"nextPageToken"`
}

type reviewsPage struct {
	Reviews []struct {
		Name     string `json:"name"`
		ReviewID string `json:"reviewId"`
		Reviewer struct {
			DisplayName string `json:"displayName"`
		} `json:"reviewer"`
		StarRating  string `json:"starRating"`
		Comment     string `json:"comment"`
		CreateTime  string `json:"createTime"`
		ReviewReply *struct {
			Comment    string `json:"comment"`
			UpdateTime string `json:"updateTime"`
		} `json:"reviewReply"`
	} `json:"reviews"`
	NextPageToken string `json:"nextPageToken"`
}

/********** collections **********/

func (s *session) ListAccounts(ctx context.Context) ([]domain.PlatformAccount, error) {
	var out []domain.PlatformAccount
	err := paginate(func(token string) (string, error) {
		var pg accountsPage
		if err := s.get(ctx, s.ep.Accounts+"/accounts", "accounts", pageQuery(token, nil), &pg); err != nil {
			return "", err
		}
		for _, a := range pg.Accounts {
			out = append(out, domain.PlatformAccount{Name: a.Name, AccountName: a.AccountName})
		}
		return pg.NextPageToken, nil
	})
	if err != nil {
		return nil, fmt.Errorf("gbp list accounts: %w", err)
	}
	return out, nil
}

// ListLocations returns locations with account-qualified names, the form the
// reviews API addresses them by.
func (s *session) ListLocations(ctx context.Context, account string) ([]domain.PlatformLocation, error) {
	extra := url.Values{"readMask": {"name,title,storeCode"}, "pageSize": {"100"}}
	var out []domain.PlatformLocation
	err := paginate(func(token string) (string, error) {
		var pg locationsPage
		if err := s.get(ctx, s.ep.BusinessInfo+"/"+account+"/locations", "locations", pageQuery(token, extra), &pg); err != nil {
			return "", err
		}
		for _, l := range pg.Locations {
			name := l.Name
			if !strings.HasPrefix(name, "accounts/") {
				name = account + "/" + name
			}
			out = append(out, domain.PlatformLocation{Name: name, Title: l.Title, StoreCode: l.StoreCode})
		}
		return pg.NextPageToken, nil
	})
	if err != nil {
		return nil, fmt.Errorf("gbp list locations %s: %w", account, err)
	}
	return out, nil
}

func (s *session) ListReviews(ctx context.Context, location string) ([]domain.PlatformReview, error) {
	extra := url.Values{"pageSize": {"50"}}
	var out []domain.PlatformReview
	err := paginate(func(token string) (string, error) {
		var pg reviewsPage
		if err := s.get(ctx, s.ep.Reviews+"/"+location+"/reviews", "reviews", pageQuery(token, extra), &pg); err != nil {
			return "", err
		}
		for _, r := range pg.Reviews {
			pr := domain.PlatformReview{
				Name:         r.Name,
				ReviewID:     r.ReviewID,
				ReviewerName: r.Reviewer.DisplayName,
				StarRating:   r.StarRating,
				Comment:      r.Comment,
				CreateTime:   parseTime(r.CreateTime),
			}
			if r.ReviewReply != nil {
				pr.Reply = &domain.PlatformReply{Comment: r.ReviewReply.Comment, UpdateTime: parseTime(r.ReviewReply.UpdateTime)}
			}
			out = append(out, pr)
		}
		return pg.NextPageToken, nil
	})
	if err != nil {
		return nil, fmt.Errorf("gbp list reviews %s: %w", location, err)
	}
	return out, nil
}

func (s *session) UpdateReply(ctx context.Context, reviewName, comment string) error {
	req := restclient.Request{
		Method:   http.MethodPut,
		URL:      s.ep.Reviews + "/" + reviewName + "/reply",
		Endpoint: "update_reply",
		Body:     map[string]string{"comment": comment},
	}
	if err := s.rc.Do(ctx, req, nil); err != nil {
		return fmt.Errorf("gbp update reply %s: %w", reviewName, err)
	}
	return nil
}

/********** internals **********/

func (s *session) get(ctx context.Context, base, endpoint string, q url.Values, out any) error {
	u := base
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return s.rc.Do(ctx, restclient.Request{Method: http.MethodGet, URL: u, Endpoint: endpoint}, out)
}

// paginate calls fetch until it returns an empty or repeated page token.
func paginate(fetch func(token string) (string, error)) error {
	token := ""
	for i := 0; i < maxPages; i++ {
		next, err := fetch(token)
		if err != nil {
			return err
		}
		if next == "" || next == token {
			return nil
		}
		token = next
	}
	return fmt.Errorf("pagination exceeded %d pages", maxPages)
}

func pageQuery(token string, extra url.Values) url.Values {
	q := url.Values{}
	for k, vs := range extra {
		q[k] = vs
	}
	if token != "" {
		q.Set("pageToken", token)
	}
	return q
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}
