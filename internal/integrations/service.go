// Package integrations tracks which ad platforms the dashboard is connected
// to and builds the OAuth consent URLs that connect them.
//
// The callback only verifies the anti-forgery state and records the platform
// as connected; exchanging the code for tokens and pulling platform data is
// left to the ingestion side.
package integrations

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/radiusdt/adintelli/internal/config"
	"github.com/radiusdt/adintelli/internal/metrics"
)

var (
	ErrUnknownPlatform  = errors.New("unknown platform")
	ErrOAuthUnsupported = errors.New("platform does not use OAuth")
	ErrNotConfigured    = errors.New("platform OAuth client is not configured")
	ErrStateMismatch    = errors.New("authorization state does not match")
	ErrMissingCode      = errors.New("authorization code missing")
)

// PendingTTL is how long a started authorization may wait for its callback.
const PendingTTL = 10 * time.Minute

// Service drives the connect / callback / disconnect flow.
type Service struct {
	store        Store
	clients      map[string]config.OAuthClientConfig
	redirectBase string
	logger       *zap.Logger
	metrics      *metrics.Metrics

	newState func() string
	now      func() time.Time
}

// NewService creates the integration service. m may be nil.
func NewService(cfg config.IntegrationsConfig, store Store, logger *zap.Logger, m *metrics.Metrics) *Service {
	return &Service{
		store:        store,
		clients:      cfg.Clients,
		redirectBase: strings.TrimRight(cfg.RedirectBaseURL, "/"),
		logger:       logger,
		metrics:      m,
		newState:     uuid.NewString,
		now:          time.Now,
	}
}

func (s *Service) oauthConfig(p Platform) (*oauth2.Config, error) {
	client, ok := s.clients[p.ID]
	if !ok || client.ClientID == "" {
		return nil, fmt.Errorf("%w: %s", ErrNotConfigured, p.ID)
	}
	scopes := client.Scopes
	if len(scopes) == 0 {
		scopes = p.defaultScopes
	}
	return &oauth2.Config{
		ClientID:     client.ClientID,
		ClientSecret: client.ClientSecret,
		Endpoint:     p.endpoint,
		RedirectURL:  s.redirectBase + "/" + p.ID,
		Scopes:       scopes,
	}, nil
}

func (s *Service) platform(id string) (Platform, error) {
	p, ok := Lookup(id)
	if !ok {
		return Platform{}, fmt.Errorf("%w: %s", ErrUnknownPlatform, id)
	}
	return p, nil
}

// Start begins an authorization and returns the consent URL the browser
// should open. The platform is pending until the callback arrives.
func (s *Service) Start(ctx context.Context, platformID string) (string, error) {
	p, err := s.platform(platformID)
	if err != nil {
		return "", err
	}
	if !p.OAuth {
		return "", fmt.Errorf("%w: %s", ErrOAuthUnsupported, p.ID)
	}
	oc, err := s.oauthConfig(p)
	if err != nil {
		return "", err
	}

	state := s.newState()
	if err := s.save(ctx, Connection{
		Platform:  p.ID,
		Status:    StatusPending,
		State:     state,
		UpdatedAt: s.now().UTC(),
	}); err != nil {
		return "", err
	}

	return oc.AuthCodeURL(state, oauth2.AccessTypeOffline), nil
}

// Callback completes an authorization started by Start.
func (s *Service) Callback(ctx context.Context, platformID, state, code string) (Connection, error) {
	p, err := s.platform(platformID)
	if err != nil {
		return Connection{}, err
	}

	current, err := s.store.Get(ctx, p.ID)
	if err != nil {
		return Connection{}, err
	}
	if current.Status != StatusPending || state == "" || current.State != state {
		s.logger.Warn("integration callback rejected",
			zap.String("platform", p.ID),
			zap.String("status", string(current.Status)),
		)
		return Connection{}, ErrStateMismatch
	}
	if s.now().Sub(current.UpdatedAt) > PendingTTL {
		return Connection{}, fmt.Errorf("%w: authorization expired", ErrStateMismatch)
	}
	if code == "" {
		return Connection{}, ErrMissingCode
	}

	connected := Connection{
		Platform:  p.ID,
		Status:    StatusConnected,
		UpdatedAt: s.now().UTC(),
	}
	if err := s.save(ctx, connected); err != nil {
		return Connection{}, err
	}
	return connected, nil
}

// Status returns the current connection of a platform.
func (s *Service) Status(ctx context.Context, platformID string) (Connection, error) {
	p, err := s.platform(platformID)
	if err != nil {
		return Connection{}, err
	}
	return s.store.Get(ctx, p.ID)
}

// Disconnect forgets a platform's connection.
func (s *Service) Disconnect(ctx context.Context, platformID string) error {
	p, err := s.platform(platformID)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, p.ID); err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.RecordIntegration(p.ID, string(StatusDisconnected))
	}
	s.logger.Info("integration disconnected", zap.String("platform", p.ID))
	return nil
}

// PlatformStatus is one row of List.
type PlatformStatus struct {
	Platform
	Status     Status    `json:"status"`
	UpdatedAt  time.Time `json:"updated_at"`
	Configured bool      `json:"configured"`
}

// List returns every platform with its connection status.
func (s *Service) List(ctx context.Context) ([]PlatformStatus, error) {
	out := make([]PlatformStatus, 0, len(Platforms))
	for _, p := range Platforms {
		c, err := s.store.Get(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		_, cfgErr := s.oauthConfig(p)
		out = append(out, PlatformStatus{
			Platform:   p,
			Status:     c.Status,
			UpdatedAt:  c.UpdatedAt,
			Configured: p.OAuth && cfgErr == nil,
		})
	}
	return out, nil
}

func (s *Service) save(ctx context.Context, c Connection) error {
	if err := s.store.Put(ctx, c); err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.RecordIntegration(c.Platform, string(c.Status))
	}
	s.logger.Info("integration state changed",
		zap.String("platform", c.Platform),
		zap.String("status", string(c.Status)),
	)
	return nil
}
