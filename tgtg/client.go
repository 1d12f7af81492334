package tgtg

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

var validate = validator.New()

// Client represents a Too Good To Go API client bound to one account.
//
// Configuration is fixed at construction. The session is the only mutable
// state; it is guarded for field access but the login flow itself is meant to
// be driven from one goroutine.
type Client struct {
	email               string
	baseURL             string
	userAgent           string
	language            string
	timeout             time.Duration
	deviceType          string
	accessTokenLifetime time.Duration
	maxPollingAttempts  int
	pollingInterval     time.Duration
	httpClient          *http.Client
	observer            SessionObserver
	now                 func() time.Time
	logger              zerolog.Logger

	mu      sync.Mutex
	auth    *AuthInfo
	cookie  string
	pending bool

	refreshGroup singleflight.Group
}

// clientConfig is validated before a Client is built
type clientConfig struct {
	Email               string        `validate:"required,email"`
	BaseURL             string        `validate:"required,url"`
	UserAgent           string        `validate:"required"`
	APKVersion          string        `validate:"required"`
	Language            string        `validate:"required"`
	DeviceType          string        `validate:"required"`
	Timeout             time.Duration `validate:"gte=0"`
	AccessTokenLifetime time.Duration `validate:"gte=0"`
	MaxPollingAttempts  int           `validate:"gte=1"`
	PollingInterval     time.Duration `validate:"gte=0"`
}

// NewClient creates a new client for the account identified by email
func NewClient(email string, logger zerolog.Logger, opts ...Option) (*Client, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	cfg := clientConfig{
		Email:               email,
		BaseURL:             strings.TrimRight(o.baseURL, "/"),
		UserAgent:           o.userAgent.UserAgent(),
		APKVersion:          o.apkVersion,
		Language:            o.language,
		DeviceType:          o.deviceType,
		Timeout:             o.timeout,
		AccessTokenLifetime: o.accessTokenLifetime,
		MaxPollingAttempts:  o.maxPollingAttempts,
		PollingInterval:     o.pollingInterval,
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	c := &Client{
		email:               cfg.Email,
		baseURL:             cfg.BaseURL,
		userAgent:           renderUserAgent(cfg.UserAgent, cfg.APKVersion),
		language:            cfg.Language,
		timeout:             cfg.Timeout,
		deviceType:          cfg.DeviceType,
		accessTokenLifetime: cfg.AccessTokenLifetime,
		maxPollingAttempts:  cfg.MaxPollingAttempts,
		pollingInterval:     cfg.PollingInterval,
		httpClient:          o.httpClient,
		observer:            o.observer,
		now:                 o.now,
		logger:              logger.With().Str("component", "tgtg").Logger(),
	}

	if o.session != nil {
		auth := o.session.AuthInfo
		c.auth = &auth
		c.cookie = o.session.Cookie
		c.logger.Debug().Str("user_id", auth.UserID).Msg("Resuming previous session")
	}

	return c, nil
}

// Email returns the account email
func (c *Client) Email() string {
	return c.email
}

// UserAgent returns the rendered User-Agent header value
func (c *Client) UserAgent() string {
	return c.userAgent
}

// State returns where the client is in the login flow
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.auth != nil:
		return StateAuthenticated
	case c.pending:
		return StatePending
	default:
		return StateUnauthenticated
	}
}

// Session returns a copy of the current session, if any
func (c *Client) Session() (Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.auth == nil {
		return Session{}, false
	}
	return Session{AuthInfo: *c.auth, Cookie: c.cookie}, true
}

// setAuth installs new credentials and returns the session to publish
func (c *Client) setAuth(auth AuthInfo) Session {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.auth = &auth
	c.pending = false
	return Session{AuthInfo: auth, Cookie: c.cookie}
}

func (c *Client) setPending(pending bool) {
	c.mu.Lock()
	c.pending = pending
	c.mu.Unlock()
}

func (c *Client) hasAuth() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.auth != nil
}

func (c *Client) notify(session Session, reason UpdateReason) {
	c.logger.Debug().Str("reason", string(reason)).Str("user_id", session.UserID).Msg("Session updated")
	c.observer.OnSessionUpdated(SessionUpdated{Session: session, Reason: reason})
}
