package gbp

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"reputation_hub/internal/domain"
)

const businessScope = "https://www.googleapis.com/auth/business.manage"

type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	AuthURL      string
	TokenURL     string
	Endpoints    Endpoints
	RPS          int
}

// Platform is the review platform connection: it runs the OAuth consent flow
// and hands out sessions built on the stored, auto-refreshing token.
type Platform struct {
	conf  *oauth2.Config
	ep    Endpoints
	rps   int
	store domain.TokenStore
}

func New(cfg Config, store domain.TokenStore) *Platform {
	if cfg.AuthURL == "" {
		cfg.AuthURL = "https://accounts.google.com/o/oauth2/auth"
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = "https://oauth2.googleapis.com/token"
	}
	if cfg.Endpoints == (Endpoints{}) {
		cfg.Endpoints = DefaultEndpoints()
	}
	return &Platform{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{businessScope},
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		ep:    cfg.Endpoints,
		rps:   cfg.RPS,
		store: store,
	}
}

func (p *Platform) configured() bool {
	return p.conf.ClientID != "" && p.conf.ClientSecret != ""
}

// AuthURL is the consent page. Offline access with a forced consent prompt
// makes the provider issue a refresh token every time.
func (p *Platform) AuthURL(state string) (string, error) {
	if !p.configured() {
		return "", domain.ErrNoCredentials
	}
	return p.conf.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce), nil
}

// Exchange trades the callback code for tokens and stores them.
func (p *Platform) Exchange(ctx context.Context, code string) error {
	if !p.configured() {
		return domain.ErrNoCredentials
	}
	tok, err := p.conf.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("oauth exchange: %w", err)
	}
	if err := p.store.SaveToken(ctx, fromOAuth(tok)); err != nil {
		return fmt.Errorf("store token: %w", err)
	}
	log.Info().Bool("refresh_token", tok.RefreshToken != "").Msg("review platform connected")
	return nil
}

func (p *Platform) Session(ctx context.Context) (domain.PlatformSession, error) {
	if !p.configured() {
		return nil, domain.ErrNoCredentials
	}
	stored, err := p.store.LoadToken(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrNoCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("load token: %w", err)
	}
	if stored.AccessToken == "" && stored.RefreshToken == "" {
		return nil, domain.ErrNoCredentials
	}

	tok := toOAuth(stored)
	src := &persistingSource{
		src:     p.conf.TokenSource(context.WithoutCancel(ctx), tok),
		store:   p.store,
		last:    tok.AccessToken,
		refresh: tok.RefreshToken,
	}
	hc := oauth2.NewClient(ctx, src)
	hc.Timeout = 20 * time.Second
	return newSession(hc, p.ep, p.rps), nil
}

// persistingSource writes every newly minted access token back to the store,
// keeping the previous refresh token when the provider omits it.
type persistingSource struct {
	mu      sync.Mutex
	src     oauth2.TokenSource
	store   domain.TokenStore
	last    string
	refresh string
}

func (s *persistingSource) Token() (*oauth2.Token, error) {
	t, err := s.src.Token()
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.AccessToken == s.last {
		return t, nil
	}
	if t.RefreshToken != "" {
		s.refresh = t.RefreshToken
	}
	s.last = t.AccessToken

	saved := fromOAuth(t)
	saved.RefreshToken = s.refresh
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.store.SaveToken(ctx, saved); err != nil {
		log.Warn().Err(err).Msg("refreshed token not persisted")
	}
	return t, nil
}

func fromOAuth(t *oauth2.Token) domain.OAuthToken {
	return domain.OAuthToken{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    t.TokenType,
		Expiry:       t.Expiry.UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
}

func toOAuth(t domain.OAuthToken) *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    t.TokenType,
		Expiry:       t.Expiry,
	}
}
