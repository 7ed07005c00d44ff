package httpserver

import (
	"context"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"reputation_hub/internal/adapters/observability"
	"reputation_hub/internal/app"
	"reputation_hub/internal/domain"
)

const (
	webhookSecretHeader = "X-Webhook-Secret"
	oauthStateCookie    = "gbp_oauth_state"
	noDataMessage       = "no_data"
	maxBodyBytes        = 1 << 20
)

// PlatformAuth is the review platform's OAuth consent flow.
type PlatformAuth interface {
	AuthURL(state string) (string, error)
	Exchange(ctx context.Context, code string) error
}

type Handlers struct {
	Q       *app.QueryService
	Sync    *app.SyncService
	Replies *app.ReplyService
	Audit   *app.AuditService
	Drafts  *app.DraftService
	Surveys *app.SurveyService
	Auth    PlatformAuth
	Users   UserLoader

	JWTSecret     []byte
	WebhookSecret string
	AppURL        string
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

type listResponse[T any] struct {
	Items   []T    `json:"items"`
	Message string `json:"message,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	// sweeps run to completion, so they are the only routes without a deadline
	s.mux.Group(func(r chi.Router) {
		r.Use(Authenticate(h.JWTSecret, h.Users))
		r.Use(RequireRoles(domain.RoleAdmin, domain.RoleManager))
		r.Post("/v1/sync", h.syncNow)
		r.Post("/v1/audit", h.auditNow)
	})

	s.mux.Group(func(r chi.Router) {
		r.Use(Timeout(s.timeout))

		r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })

		// public: residents, the lease system and the OAuth redirect
		r.Post("/v1/surveys/{id}/responses", h.completeSurvey)
		r.Post("/v1/webhooks/resident-events", h.residentEvent)
		r.Get("/v1/gbp/auth/callback", h.oauthCallback)

		r.Group(func(r chi.Router) {
			r.Use(Authenticate(h.JWTSecret, h.Users))

			r.Get("/v1/properties", h.listProperties)
			r.Get("/v1/properties/{id}/survey-link", h.surveyLink)
			r.Get("/v1/reviews", h.listReviews)
			r.Get("/v1/reviews/stats", h.reviewStats)
			r.Post("/v1/reviews/{id}/reply", h.replyReview)
			r.Post("/v1/reviews/{id}/draft", h.draftReply)
			r.Get("/v1/surveys/analytics", h.surveyAnalytics)
			r.Post("/v1/reports/schedules", h.scheduleReport)

			r.With(RequireRoles(domain.RoleAdmin, domain.RoleManager)).Post("/v1/reviews/{id}/reanalyze", h.reanalyze)
			r.With(RequireRoles(domain.RoleAdmin)).Get("/v1/gbp/auth/url", h.oauthURL)
		})
	})
}

/********** response helpers **********/

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeError maps domain sentinels to problem responses. Anything unmapped is
// a failed write against a dependency and carries a retry hint.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		writeProblem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
	case errors.Is(err, domain.ErrAccessDenied):
		writeProblem(w, http.StatusForbidden, "Forbidden", "no access to this property")
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", "")
	case errors.Is(err, domain.ErrEmptyReply):
		writeProblem(w, http.StatusBadRequest, "Empty Reply", "reply text must not be empty")
	case errors.Is(err, domain.ErrInvalidInput):
		writeProblem(w, http.StatusBadRequest, "Invalid Input", err.Error())
	case errors.Is(err, domain.ErrNoCredentials):
		writeProblem(w, http.StatusServiceUnavailable, "Platform Not Connected", "connect the review platform first")
	default:
		w.Header().Set("Retry-After", "30")
		writeProblem(w, http.StatusBadGateway, "Upstream Failure", "the action did not complete; retry later")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	return `W/"` + hex.EncodeToString(sum[:]) + `"`, body
}

// writeCached sends v with a weak ETag, answering 304 when the client has it.
func writeCached(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write cached body")
	}
}

// writeNoData is the read-failure response: an empty list the dashboard can
// render, never an error page.
func writeNoData[T any](w http.ResponseWriter, err error, what string) {
	log.Warn().Err(err).Str("read", what).Msg("fetch_failed")
	writeJSON(w, http.StatusOK, listResponse[T]{Items: []T{}, Message: noDataMessage})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return false
	}
	return true
}

func pageParams(q url.Values) (domain.PageQuery, string) {
	pg := domain.PageQuery{Limit: 50}
	if ls := q.Get("limit"); ls != "" {
		l, err := strconv.Atoi(ls)
		if err != nil || l <= 0 || l > 200 {
			return pg, "limit must be an integer between 1 and 200"
		}
		pg.Limit = l
	}
	if offs := q.Get("offset"); offs != "" {
		o, err := strconv.Atoi(offs)
		if err != nil || o < 0 {
			return pg, "offset must be a non-negative integer"
		}
		pg.Offset = o
	}
	return pg, ""
}

/********** reviews **********/

func (h *Handlers) listProperties(w http.ResponseWriter, r *http.Request) {
	scope, err := app.Authorize(userFrom(r.Context()), domain.AllProperties)
	if err != nil {
		writeError(w, err)
		return
	}
	props, err := h.Q.ListProperties(r.Context(), scope)
	if err != nil {
		writeNoData[domain.Property](w, err, "properties")
		return
	}
	writeCached(w, r, listResponse[domain.Property]{Items: props})
}

func (h *Handlers) listReviews(w http.ResponseWriter, r *http.Request) {
	pg, bad := pageParams(r.URL.Query())
	if bad != "" {
		writeProblem(w, http.StatusBadRequest, "Invalid Paging", bad)
		return
	}
	scope, err := app.Authorize(userFrom(r.Context()), r.URL.Query().Get("property"))
	if err != nil {
		writeError(w, err)
		return
	}
	out, err := h.Q.ListReviews(r.Context(), scope, pg)
	if err != nil {
		writeNoData[domain.Review](w, err, "reviews")
		return
	}
	writeCached(w, r, listResponse[domain.Review]{Items: out})
}

func (h *Handlers) reviewStats(w http.ResponseWriter, r *http.Request) {
	scope, err := app.Authorize(userFrom(r.Context()), r.URL.Query().Get("property"))
	if err != nil {
		writeError(w, err)
		return
	}
	st, err := h.Q.ReviewStats(r.Context(), scope)
	if err != nil {
		log.Warn().Err(err).Str("read", "stats").Msg("fetch_failed")
		writeJSON(w, http.StatusOK, map[string]any{"stats": st, "message": noDataMessage})
		return
	}
	writeCached(w, r, map[string]any{"stats": st})
}

// authorizedReview loads a review and checks the caller may act on its property.
func (h *Handlers) authorizedReview(w http.ResponseWriter, r *http.Request) (domain.Review, bool) {
	rv, err := h.Q.GetReview(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			log.Error().Err(err).Msg("review lookup failed")
		}
		writeError(w, err)
		return domain.Review{}, false
	}
	if _, err := app.Authorize(userFrom(r.Context()), rv.PropertyID); err != nil {
		writeError(w, err)
		return domain.Review{}, false
	}
	return rv, true
}

func (h *Handlers) replyReview(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Text string `json:"text"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	rv, ok := h.authorizedReview(w, r)
	if !ok {
		return
	}
	res, err := h.Replies.Reply(r.Context(), rv.LocationRef, rv.ID, body.Text)
	observability.ObserveReply(res, err)
	if err != nil {
		log.Error().Err(err).Str("review", rv.ID).Msg("reply failed")
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handlers) draftReply(w http.ResponseWriter, r *http.Request) {
	rv, ok := h.authorizedReview(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"draft": h.Drafts.Draft(r.Context(), rv)})
}

func (h *Handlers) reanalyze(w http.ResponseWriter, r *http.Request) {
	rv, ok := h.authorizedReview(w, r)
	if !ok {
		return
	}
	if err := h.Audit.Reanalyze(r.Context(), rv.ID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

// syncNow and auditNow detach from the request: a client that disconnects
// does not stop a sweep that has started.
func (h *Handlers) syncNow(w http.ResponseWriter, r *http.Request) {
	res := h.Sync.SyncAll(context.WithoutCancel(r.Context()))
	observability.ObserveSync(res)
	writeJSON(w, http.StatusOK, res)
}

func (h *Handlers) auditNow(w http.ResponseWriter, r *http.Request) {
	res := h.Audit.ProcessPending(context.WithoutCancel(r.Context()))
	observability.ObserveAudit(res)
	writeJSON(w, http.StatusOK, res)
}

/********** surveys & reports **********/

func (h *Handlers) surveyAnalytics(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	to := time.Now().UTC()
	from := to.AddDate(0, 0, -30)
	var err error
	if s := q.Get("start"); s != "" {
		if from, err = time.Parse(time.DateOnly, s); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid Date", "start must be YYYY-MM-DD")
			return
		}
	}
	if s := q.Get("end"); s != "" {
		if to, err = time.Parse(time.DateOnly, s); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid Date", "end must be YYYY-MM-DD")
			return
		}
		// inclusive end day
		to = to.Add(24*time.Hour - time.Nanosecond)
	}

	scope, err := app.Authorize(userFrom(r.Context()), q.Get("property"))
	if err != nil {
		writeError(w, err)
		return
	}
	a, err := h.Surveys.Analytics(r.Context(), scope, from, to)
	if errors.Is(err, domain.ErrInvalidInput) {
		writeError(w, err)
		return
	}
	if err != nil {
		log.Warn().Err(err).Str("read", "survey_analytics").Msg("fetch_failed")
		writeJSON(w, http.StatusOK, map[string]any{"analytics": a, "message": noDataMessage})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"analytics": a})
}

func (h *Handlers) scheduleReport(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email      string `json:"email"`
		Frequency  string `json:"frequency"`
		PropertyID string `json:"property_id"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	user := userFrom(r.Context())
	scope, err := app.Authorize(user, body.PropertyID)
	if err != nil {
		writeError(w, err)
		return
	}
	rs, err := h.Surveys.ScheduleReport(r.Context(), user, body.Email, domain.ReportFrequency(body.Frequency), scope)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rs)
}

func (h *Handlers) surveyLink(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := app.Authorize(userFrom(r.Context()), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"link": h.Surveys.PropertyLink(id)})
}

func (h *Handlers) completeSurvey(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Rating   int    `json:"rating"`
		Feedback string `json:"feedback"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if err := h.Surveys.Complete(r.Context(), chi.URLParam(r, "id"), body.Rating, body.Feedback); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(domain.SurveyCompleted)})
}

func (h *Handlers) residentEvent(w http.ResponseWriter, r *http.Request) {
	got := r.Header.Get(webhookSecretHeader)
	if h.WebhookSecret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(h.WebhookSecret)) != 1 {
		writeProblem(w, http.StatusUnauthorized, "Unauthorized", "invalid webhook secret")
		return
	}
	var ev app.ResidentEvent
	if !decodeBody(w, r, &ev) {
		return
	}
	sent, err := h.Surveys.HandleResidentEvent(r.Context(), ev)
	if err != nil {
		log.Error().Err(err).Str("status", ev.Status).Msg("resident event failed")
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]bool{"survey_sent": sent})
}

/********** platform connection **********/

func (h *Handlers) oauthURL(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()
	u, err := h.Auth.AuthURL(state)
	if err != nil {
		writeError(w, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/v1/gbp/auth",
		MaxAge:   600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]string{"url": u})
}

func (h *Handlers) oauthCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	settings := h.AppURL + "/settings"
	if e := q.Get("error"); e != "" {
		log.Warn().Str("error", e).Msg("platform consent declined")
		http.Redirect(w, r, settings+"?auth_error="+url.QueryEscape(e), http.StatusFound)
		return
	}
	code := q.Get("code")
	if code == "" {
		writeProblem(w, http.StatusBadRequest, "Missing Code", "no authorization code provided")
		return
	}
	c, err := r.Cookie(oauthStateCookie)
	if err != nil || subtle.ConstantTimeCompare([]byte(c.Value), []byte(q.Get("state"))) != 1 {
		writeProblem(w, http.StatusBadRequest, "Invalid State", "oauth state mismatch")
		return
	}
	if err := h.Auth.Exchange(r.Context(), code); err != nil {
		log.Error().Err(err).Msg("platform token exchange failed")
		http.Redirect(w, r, settings+"?auth_error=callback_failed", http.StatusFound)
		return
	}
	http.Redirect(w, r, settings+"?auth_success=true", http.StatusFound)
}
