package tgtg

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingObserver keeps every session event
type recordingObserver struct {
	mu     sync.Mutex
	events []SessionUpdated
}

func (r *recordingObserver) OnSessionUpdated(event SessionUpdated) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingObserver) Events() []SessionUpdated {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]SessionUpdated(nil), r.events...)
}

func loginPayload(access, refresh, userID string) map[string]any {
	return map[string]any{
		"access_token":  access,
		"refresh_token": refresh,
		"startup_data": map[string]any{
			"user": map[string]any{"user_id": userID},
		},
	}
}

func TestAuthByEmailAlreadyAuthenticated(t *testing.T) {
	server := newAPIServer(t)
	client := newSessionClient(t, server)

	err := client.AuthByEmail(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyAuthenticated)
	assert.Zero(t, server.totalCalls())
}

func TestAuthByEmailPollsUntilConfirmed(t *testing.T) {
	server := newAPIServer(t)
	clock := newFakeClock()
	observer := &recordingObserver{}

	server.handle(authByEmailEndpoint, func(w http.ResponseWriter, r *http.Request) {
		body := decodeBody(t, r)
		assert.Equal(t, testEmail, body["email"])
		assert.Equal(t, DefaultDeviceType, body["device_type"])
		w.Header().Set("Set-Cookie", "datadome=login")
		writeJSON(t, w, http.StatusOK, map[string]any{"state": "WAIT", "polling_id": "abc"})
	})

	var attempts int
	server.handle(authPollingEndpoint, func(w http.ResponseWriter, r *http.Request) {
		body := decodeBody(t, r)
		assert.Equal(t, "abc", body["request_polling_id"])
		assert.Equal(t, testEmail, body["email"])
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusAccepted)
			return
		}
		writeJSON(t, w, http.StatusOK, loginPayload("A", "R", "U"))
	})

	client := newTestClient(t, server, WithClock(clock.Now), WithSessionObserver(observer))
	require.NoError(t, client.AuthByEmail(context.Background()))

	assert.Equal(t, 3, server.callCount(authPollingEndpoint))
	assert.Equal(t, StateAuthenticated, client.State())

	session, ok := client.Session()
	require.True(t, ok)
	assert.Equal(t, "A", session.AccessToken)
	assert.Equal(t, "R", session.RefreshToken)
	assert.Equal(t, "U", session.UserID)
	assert.Equal(t, clock.Now(), session.TokenRefreshTime)

	events := observer.Events()
	require.Len(t, events, 1)
	assert.Equal(t, ReasonLogin, events[0].Reason)
	assert.Equal(t, session, events[0].Session)
	assert.Equal(t, "datadome=login", events[0].Session.Cookie)
}

func TestAuthByEmailFailures(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      map[string]any
		wantLogin bool
		wantRate  bool
		wantIs    error
	}{
		{
			name:      "email not registered",
			status:    http.StatusOK,
			body:      map[string]any{"state": "TERMS"},
			wantLogin: true,
			wantIs:    ErrEmailNotRegistered,
		},
		{
			name:      "unknown state",
			status:    http.StatusOK,
			body:      map[string]any{"state": "BLOCKED"},
			wantLogin: true,
		},
		{
			name:     "rate limited",
			status:   http.StatusTooManyRequests,
			body:     map[string]any{},
			wantRate: true,
		},
		{
			name:      "server error",
			status:    http.StatusInternalServerError,
			body:      map[string]any{"error": "boom"},
			wantLogin: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newAPIServer(t)
			server.handle(authByEmailEndpoint, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(t, w, tt.status, tt.body)
			})
			server.handle(authPollingEndpoint, func(w http.ResponseWriter, r *http.Request) {
				t.Error("polling must not start")
			})

			client := newTestClient(t, server)
			err := client.AuthByEmail(context.Background())
			require.Error(t, err)

			if tt.wantLogin {
				var loginErr *LoginError
				require.True(t, errors.As(err, &loginErr), "want LoginError, got %T", err)
				assert.Equal(t, tt.status, loginErr.StatusCode)
				assert.NotEmpty(t, loginErr.Body)
			}
			if tt.wantRate {
				var apiErr *APIError
				require.True(t, errors.As(err, &apiErr), "want APIError, got %T", err)
				assert.True(t, apiErr.IsRateLimited())
				assert.Equal(t, tooManyRequestsMessage, apiErr.Message)
			}
			if tt.wantIs != nil {
				assert.ErrorIs(t, err, tt.wantIs)
			}
			assert.Equal(t, StateUnauthenticated, client.State())
		})
	}
}

func TestStartPolling(t *testing.T) {
	t.Run("times out when every attempt is pending", func(t *testing.T) {
		server := newAPIServer(t)
		server.handle(authPollingEndpoint, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusAccepted)
		})

		client := newTestClient(t, server, WithPolling(4, time.Millisecond))
		err := client.StartPolling(context.Background(), "abc")

		var timeoutErr *PollingTimeoutError
		require.True(t, errors.As(err, &timeoutErr), "want PollingTimeoutError, got %T", err)
		assert.Equal(t, 4, timeoutErr.Attempts)
		assert.Equal(t, 4*time.Millisecond, timeoutErr.Waited)
		assert.Equal(t, 4, server.callCount(authPollingEndpoint))
		assert.Equal(t, StateUnauthenticated, client.State())
	})

	t.Run("empty gzip pending reply keeps polling", func(t *testing.T) {
		server := newAPIServer(t)
		var attempts int
		server.handle(authPollingEndpoint, func(w http.ResponseWriter, r *http.Request) {
			attempts++
			if attempts == 1 {
				w.Header().Set("Content-Encoding", "gzip")
				w.WriteHeader(http.StatusAccepted)
				return
			}
			writeJSON(t, w, http.StatusOK, loginPayload("A", "R", "U"))
		})

		client := newTestClient(t, server)
		require.NoError(t, client.StartPolling(context.Background(), "abc"))
		assert.Equal(t, 2, server.callCount(authPollingEndpoint))
		assert.Equal(t, StateAuthenticated, client.State())
	})

	t.Run("rate limit stops polling immediately", func(t *testing.T) {
		server := newAPIServer(t)
		var attempts int
		server.handle(authPollingEndpoint, func(w http.ResponseWriter, r *http.Request) {
			attempts++
			if attempts == 1 {
				w.WriteHeader(http.StatusAccepted)
				return
			}
			w.WriteHeader(http.StatusTooManyRequests)
		})

		client := newTestClient(t, server, WithPolling(10, time.Millisecond))
		err := client.StartPolling(context.Background(), "abc")

		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.True(t, apiErr.IsRateLimited())
		assert.Equal(t, 2, server.callCount(authPollingEndpoint))
	})

	t.Run("unexpected status is a login error", func(t *testing.T) {
		server := newAPIServer(t)
		server.handle(authPollingEndpoint, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
		})

		client := newTestClient(t, server)
		err := client.StartPolling(context.Background(), "abc")

		var loginErr *LoginError
		require.True(t, errors.As(err, &loginErr))
		assert.Equal(t, http.StatusBadRequest, loginErr.StatusCode)
		assert.Equal(t, 1, server.callCount(authPollingEndpoint))
	})

	t.Run("pending while polling", func(t *testing.T) {
		server := newAPIServer(t)
		client := newTestClient(t, server)

		var states []State
		server.handle(authPollingEndpoint, func(w http.ResponseWriter, r *http.Request) {
			states = append(states, client.State())
			writeJSON(t, w, http.StatusOK, loginPayload("A", "R", "U"))
		})

		require.NoError(t, client.StartPolling(context.Background(), "abc"))
		assert.Equal(t, []State{StatePending}, states)
		assert.Equal(t, StateAuthenticated, client.State())
	})

	t.Run("context cancellation stops the wait", func(t *testing.T) {
		server := newAPIServer(t)
		server.handle(authPollingEndpoint, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusAccepted)
		})

		client := newTestClient(t, server, WithPolling(100, time.Hour))
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		err := client.StartPolling(ctx, "abc")
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Equal(t, 1, server.callCount(authPollingEndpoint))
	})
}

func TestRefreshedAuth(t *testing.T) {
	t.Run("no session", func(t *testing.T) {
		server := newAPIServer(t)
		client := newTestClient(t, server)

		_, err := client.RefreshedAuth(context.Background())
		assert.ErrorIs(t, err, ErrNoSession)
		assert.Zero(t, server.totalCalls())
	})

	t.Run("fresh token is returned unchanged", func(t *testing.T) {
		server := newAPIServer(t)
		clock := newFakeClock()
		observer := &recordingObserver{}
		client := newTestClient(t, server,
			WithClock(clock.Now),
			WithSession(testSession(clock)),
			WithAccessTokenLifetime(time.Hour),
			WithSessionObserver(observer),
		)

		clock.Advance(59 * time.Minute)
		token, err := client.Credentials(context.Background())
		require.NoError(t, err)
		assert.Equal(t, AuthToken{AccessToken: "access-1", RefreshToken: "refresh-1", UserID: "user-1"}, token)
		assert.Zero(t, server.totalCalls())
		assert.Empty(t, observer.Events())
	})

	t.Run("stale token is refreshed and age resets", func(t *testing.T) {
		server := newAPIServer(t)
		clock := newFakeClock()
		observer := &recordingObserver{}

		var refreshes int
		server.handle(authRefreshEndpoint, func(w http.ResponseWriter, r *http.Request) {
			refreshes++
			body := decodeBody(t, r)
			if refreshes == 1 {
				assert.Equal(t, "refresh-1", body["refresh_token"])
				assert.Equal(t, "Bearer access-1", r.Header.Get("Authorization"))
			}
			writeJSON(t, w, http.StatusOK, map[string]any{
				"access_token":  "access-new",
				"refresh_token": "refresh-new",
			})
		})

		client := newTestClient(t, server,
			WithClock(clock.Now),
			WithSession(testSession(clock)),
			WithAccessTokenLifetime(time.Hour),
			WithSessionObserver(observer),
		)
		ctx := context.Background()

		clock.Advance(time.Hour)
		auth, err := client.RefreshedAuth(ctx)
		require.NoError(t, err)
		assert.Equal(t, "access-new", auth.AccessToken)
		assert.Equal(t, "refresh-new", auth.RefreshToken)
		assert.Equal(t, "user-1", auth.UserID)
		assert.Equal(t, clock.Now(), auth.TokenRefreshTime)
		assert.Equal(t, 1, server.callCount(authRefreshEndpoint))

		// Within the new window no further refresh happens.
		clock.Advance(30 * time.Minute)
		_, err = client.RefreshedAuth(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, server.callCount(authRefreshEndpoint))

		clock.Advance(30 * time.Minute)
		_, err = client.RefreshedAuth(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, server.callCount(authRefreshEndpoint))

		events := observer.Events()
		require.Len(t, events, 2)
		for _, ev := range events {
			assert.Equal(t, ReasonRefresh, ev.Reason)
			assert.Equal(t, "datadome=abc", ev.Session.Cookie)
		}
	})

	t.Run("refresh failure is an API error", func(t *testing.T) {
		server := newAPIServer(t)
		clock := newFakeClock()
		server.handle(authRefreshEndpoint, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte("invalid refresh token"))
		})

		client := newTestClient(t, server,
			WithClock(clock.Now),
			WithSession(testSession(clock)),
			WithAccessTokenLifetime(time.Hour),
		)

		clock.Advance(2 * time.Hour)
		_, err := client.Credentials(context.Background())

		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
		assert.Equal(t, "invalid refresh token", apiErr.Body)
		assert.True(t, apiErr.IsUnauthorized())

		session, ok := client.Session()
		require.True(t, ok)
		assert.Equal(t, "access-1", session.AccessToken)
	})

	t.Run("cancelled caller does not fail joined callers", func(t *testing.T) {
		server := newAPIServer(t)
		clock := newFakeClock()
		started := make(chan struct{})
		release := make(chan struct{})
		server.handle(authRefreshEndpoint, func(w http.ResponseWriter, r *http.Request) {
			close(started)
			<-release
			writeJSON(t, w, http.StatusOK, map[string]any{
				"access_token":  "access-new",
				"refresh_token": "refresh-new",
			})
		})

		client := newTestClient(t, server,
			WithClock(clock.Now),
			WithSession(testSession(clock)),
			WithAccessTokenLifetime(time.Hour),
		)
		clock.Advance(2 * time.Hour)

		ctxA, cancelA := context.WithCancel(context.Background())
		errA := make(chan error, 1)
		go func() {
			_, err := client.Credentials(ctxA)
			errA <- err
		}()
		<-started

		type result struct {
			token AuthToken
			err   error
		}
		resB := make(chan result, 1)
		go func() {
			token, err := client.Credentials(context.Background())
			resB <- result{token, err}
		}()

		cancelA()
		assert.ErrorIs(t, <-errA, context.Canceled)

		close(release)
		b := <-resB
		require.NoError(t, b.err)
		assert.Equal(t, "access-new", b.token.AccessToken)
		assert.Equal(t, 1, server.callCount(authRefreshEndpoint))
	})

	t.Run("concurrent callers share one refresh", func(t *testing.T) {
		server := newAPIServer(t)
		clock := newFakeClock()
		server.handle(authRefreshEndpoint, func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(50 * time.Millisecond)
			writeJSON(t, w, http.StatusOK, map[string]any{
				"access_token":  "access-new",
				"refresh_token": "refresh-new",
			})
		})

		client := newTestClient(t, server,
			WithClock(clock.Now),
			WithSession(testSession(clock)),
			WithAccessTokenLifetime(time.Hour),
		)
		clock.Advance(2 * time.Hour)

		var wg sync.WaitGroup
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				token, err := client.Credentials(context.Background())
				assert.NoError(t, err)
				assert.Equal(t, "access-new", token.AccessToken)
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, server.callCount(authRefreshEndpoint))
	})
}

func TestSignUpByEmail(t *testing.T) {
	t.Run("success logs in without polling", func(t *testing.T) {
		server := newAPIServer(t)
		clock := newFakeClock()
		observer := &recordingObserver{}

		server.handle(authSignUpByEmailEndpoint, func(w http.ResponseWriter, r *http.Request) {
			body := decodeBody(t, r)
			assert.Equal(t, map[string]any{
				"countryId":             "GB",
				"deviceType":            DefaultDeviceType,
				"email":                 testEmail,
				"name":                  "Jane",
				"newsletterOptIn":       false,
				"pushNotificationOptIn": true,
			}, body)
			writeJSON(t, w, http.StatusOK, map[string]any{
				"login_response": loginPayload("A", "R", "U"),
			})
		})

		client := newTestClient(t, server, WithClock(clock.Now), WithSessionObserver(observer))
		auth, err := client.SignUpByEmail(context.Background(), SignUpOptions{Name: "Jane"})
		require.NoError(t, err)

		assert.Equal(t, "A", auth.AccessToken)
		assert.Equal(t, "U", auth.UserID)
		assert.Equal(t, StateAuthenticated, client.State())
		assert.Zero(t, server.callCount(authPollingEndpoint))

		events := observer.Events()
		require.Len(t, events, 1)
		assert.Equal(t, ReasonSignUp, events[0].Reason)
	})

	t.Run("rate limited", func(t *testing.T) {
		server := newAPIServer(t)
		server.handle(authSignUpByEmailEndpoint, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		})

		client := newTestClient(t, server)
		_, err := client.SignUpByEmail(context.Background(), SignUpOptions{})

		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.True(t, apiErr.IsRateLimited())
	})

	t.Run("rejected", func(t *testing.T) {
		server := newAPIServer(t)
		server.handle(authSignUpByEmailEndpoint, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, http.StatusBadRequest, map[string]any{"errors": []string{"EMAIL_TAKEN"}})
		})

		client := newTestClient(t, server)
		_, err := client.SignUpByEmail(context.Background(), SignUpOptions{})

		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
		assert.Contains(t, apiErr.Body, "EMAIL_TAKEN")
		assert.Equal(t, StateUnauthenticated, client.State())
	})

	t.Run("invalid country", func(t *testing.T) {
		server := newAPIServer(t)
		client := newTestClient(t, server)

		_, err := client.SignUpByEmail(context.Background(), SignUpOptions{CountryID: "GBR"})
		assert.ErrorIs(t, err, ErrInvalidOptions)
		assert.Zero(t, server.totalCalls())
	})

	t.Run("already authenticated", func(t *testing.T) {
		server := newAPIServer(t)
		client := newSessionClient(t, server)

		_, err := client.SignUpByEmail(context.Background(), SignUpOptions{})
		assert.ErrorIs(t, err, ErrAlreadyAuthenticated)
		assert.Zero(t, server.totalCalls())
	})
}
