package tgtg

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

type authByEmailRequest struct {
	DeviceType string `json:"device_type"`
	Email      string `json:"email"`
}

type authByEmailResponse struct {
	State     string `json:"state"`
	PollingID string `json:"polling_id"`
}

type pollingRequest struct {
	DeviceType       string `json:"device_type"`
	Email            string `json:"email"`
	RequestPollingID string `json:"request_polling_id"`
}

// loginResponse is the credential payload shared by polling and signup
type loginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	StartupData  struct {
		User struct {
			UserID string `json:"user_id"`
		} `json:"user"`
	} `json:"startup_data"`
}

func (l loginResponse) authInfo(now time.Time) AuthInfo {
	return AuthInfo{
		AuthToken: AuthToken{
			AccessToken:  l.AccessToken,
			RefreshToken: l.RefreshToken,
			UserID:       l.StartupData.User.UserID,
		},
		TokenRefreshTime: now,
	}
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type refreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// SignUpOptions describes a new account. Zero values get defaults: country GB
// and push notifications opted in.
type SignUpOptions struct {
	Email                   string `validate:"required,email"`
	Name                    string
	CountryID               string `validate:"omitempty,len=2"`
	NewsletterOptIn         bool
	PushNotificationsOptOut bool
}

type signUpRequest struct {
	CountryID             string `json:"countryId"`
	DeviceType            string `json:"deviceType"`
	Email                 string `json:"email"`
	Name                  string `json:"name"`
	NewsletterOptIn       bool   `json:"newsletterOptIn"`
	PushNotificationOptIn bool   `json:"pushNotificationOptIn"`
}

type signUpResponse struct {
	LoginResponse loginResponse `json:"login_response"`
}

// AuthByEmail sends a login email to the client's address and blocks until the
// user confirms it, the polling budget runs out, or ctx is done.
func (c *Client) AuthByEmail(ctx context.Context) error {
	if c.hasAuth() {
		return ErrAlreadyAuthenticated
	}

	resp, err := c.post(ctx, authByEmailEndpoint, authByEmailRequest{
		DeviceType: c.deviceType,
		Email:      c.email,
	})
	if err != nil {
		return err
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusTooManyRequests:
		return newRateLimitError(resp)
	default:
		return newLoginError(resp)
	}

	var first authByEmailResponse
	if err := resp.decode(&first); err != nil {
		return err
	}

	switch first.State {
	case "TERMS":
		return &LoginError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("this email %s is not linked to a tgtg account, please sign up with this email first", c.email),
			Body:       string(resp.Body),
			Err:        ErrEmailNotRegistered,
		}
	case "WAIT":
		return c.StartPolling(ctx, first.PollingID)
	default:
		err := newLoginError(resp)
		err.Message = fmt.Sprintf("unexpected login state %q", first.State)
		return err
	}
}

// StartPolling polls for confirmation of the login email identified by
// pollingID. Each attempt that is still pending waits one polling interval.
func (c *Client) StartPolling(ctx context.Context, pollingID string) error {
	c.setPending(true)
	defer c.setPending(false)

	c.logger.Info().Str("email", c.email).Msg("Check your mailbox on PC to continue (the mailbox on mobile won't work if the app is installed)")

	for attempt := 1; attempt <= c.maxPollingAttempts; attempt++ {
		resp, err := c.post(ctx, authPollingEndpoint, pollingRequest{
			DeviceType:       c.deviceType,
			Email:            c.email,
			RequestPollingID: pollingID,
		})
		if err != nil {
			return err
		}

		switch resp.StatusCode {
		case http.StatusAccepted:
			c.logger.Debug().Int("attempt", attempt).Int("max_attempts", c.maxPollingAttempts).Msg("Login not confirmed yet")
			if err := c.sleep(ctx, c.pollingInterval); err != nil {
				return err
			}
		case http.StatusOK:
			var login loginResponse
			if err := resp.decode(&login); err != nil {
				return err
			}
			session := c.setAuth(login.authInfo(c.now()))
			c.logger.Info().Str("user_id", session.UserID).Int("attempt", attempt).Msg("Logged in")
			c.notify(session, ReasonLogin)
			return nil
		case http.StatusTooManyRequests:
			return newRateLimitError(resp)
		default:
			return newLoginError(resp)
		}
	}

	return &PollingTimeoutError{
		Attempts: c.maxPollingAttempts,
		Waited:   time.Duration(c.maxPollingAttempts) * c.pollingInterval,
	}
}

// sleep waits for d or until ctx is done
func (c *Client) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Credentials returns valid credentials, refreshing the access token first if
// it has outlived the configured lifetime.
func (c *Client) Credentials(ctx context.Context) (AuthToken, error) {
	auth, err := c.RefreshedAuth(ctx)
	if err != nil {
		return AuthToken{}, err
	}
	return auth.AuthToken, nil
}

// RefreshedAuth returns the current credentials, refreshing them if they are
// stale. Concurrent callers share a single refresh call.
func (c *Client) RefreshedAuth(ctx context.Context) (AuthInfo, error) {
	auth, stale, err := c.currentAuth()
	if err != nil {
		return AuthInfo{}, err
	}
	if !stale {
		return auth, nil
	}

	// The flight outlives any single caller; each caller waits on its own ctx.
	flight := context.WithoutCancel(ctx)
	ch := c.refreshGroup.DoChan("refresh", func() (any, error) {
		return c.refresh(flight)
	})
	select {
	case <-ctx.Done():
		return AuthInfo{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return AuthInfo{}, res.Err
		}
		return res.Val.(AuthInfo), nil
	}
}

func (c *Client) currentAuth() (AuthInfo, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.auth == nil {
		return AuthInfo{}, false, ErrNoSession
	}
	age := c.now().Sub(c.auth.TokenRefreshTime)
	return *c.auth, age >= c.accessTokenLifetime, nil
}

func (c *Client) refresh(ctx context.Context) (AuthInfo, error) {
	// Another flight may have refreshed while this one was queued.
	auth, stale, err := c.currentAuth()
	if err != nil || !stale {
		return auth, err
	}

	resp, err := c.post(ctx, authRefreshEndpoint, refreshRequest{RefreshToken: auth.RefreshToken})
	if err != nil {
		return AuthInfo{}, err
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusTooManyRequests:
		return AuthInfo{}, newRateLimitError(resp)
	default:
		return AuthInfo{}, newAPIError(resp)
	}

	var tokens refreshResponse
	if err := resp.decode(&tokens); err != nil {
		return AuthInfo{}, err
	}

	auth.AccessToken = tokens.AccessToken
	auth.RefreshToken = tokens.RefreshToken
	auth.TokenRefreshTime = c.now()

	session := c.setAuth(auth)
	c.logger.Info().Str("user_id", auth.UserID).Msg("Refreshed access token")
	c.notify(session, ReasonRefresh)

	return auth, nil
}

// SignUpByEmail registers a new account and logs it in without polling.
func (c *Client) SignUpByEmail(ctx context.Context, opts SignUpOptions) (AuthInfo, error) {
	if c.hasAuth() {
		return AuthInfo{}, ErrAlreadyAuthenticated
	}
	if opts.Email == "" {
		opts.Email = c.email
	}
	if opts.CountryID == "" {
		opts.CountryID = "GB"
	}
	if err := validate.Struct(opts); err != nil {
		return AuthInfo{}, fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}

	resp, err := c.post(ctx, authSignUpByEmailEndpoint, signUpRequest{
		CountryID:             opts.CountryID,
		DeviceType:            c.deviceType,
		Email:                 opts.Email,
		Name:                  opts.Name,
		NewsletterOptIn:       opts.NewsletterOptIn,
		PushNotificationOptIn: !opts.PushNotificationsOptOut,
	})
	if err != nil {
		return AuthInfo{}, err
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusTooManyRequests:
		return AuthInfo{}, newRateLimitError(resp)
	default:
		return AuthInfo{}, newAPIError(resp)
	}

	var data signUpResponse
	if err := resp.decode(&data); err != nil {
		return AuthInfo{}, err
	}

	auth := data.LoginResponse.authInfo(c.now())
	session := c.setAuth(auth)
	c.logger.Info().Str("user_id", auth.UserID).Msg("Signed up")
	c.notify(session, ReasonSignUp)

	return auth, nil
}
