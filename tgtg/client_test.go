package tgtg

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testEmail = "user@example.com"

// fakeClock is a settable clock for aging tokens
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// apiServer routes POSTs by path and counts calls per path
type apiServer struct {
	*httptest.Server
	mu       sync.Mutex
	handlers map[string]http.HandlerFunc
	calls    map[string]*atomic.Int32
}

func newAPIServer(t *testing.T) *apiServer {
	s := &apiServer{
		handlers: make(map[string]http.HandlerFunc),
		calls:    make(map[string]*atomic.Int32),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		s.mu.Lock()
		h, ok := s.handlers[r.URL.Path]
		counter := s.calls[r.URL.Path]
		s.mu.Unlock()
		if !ok {
			t.Errorf("unexpected request to %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
			return
		}
		counter.Add(1)
		h(w, r)
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *apiServer) handle(path string, h http.HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers["/"+path] = h
	if _, ok := s.calls["/"+path]; !ok {
		s.calls["/"+path] = &atomic.Int32{}
	}
}

func (s *apiServer) callCount(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.calls["/"+path]; ok {
		return int(c.Load())
	}
	return 0
}

func (s *apiServer) totalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, c := range s.calls {
		total += int(c.Load())
	}
	return total
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func decodeBody(t *testing.T, r *http.Request) map[string]any {
	var body map[string]any
	require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
	return body
}

func testSession(clock *fakeClock) *Session {
	return &Session{
		AuthInfo: AuthInfo{
			AuthToken: AuthToken{
				AccessToken:  "access-1",
				RefreshToken: "refresh-1",
				UserID:       "user-1",
			},
			TokenRefreshTime: clock.Now(),
		},
		Cookie: "datadome=abc",
	}
}

func newTestClient(t *testing.T, server *apiServer, opts ...Option) *Client {
	base := []Option{
		WithBaseURL(server.URL),
		WithUserAgent("TGTG/{} test"),
		WithPolling(5, time.Millisecond),
	}
	client, err := NewClient(testEmail, zerolog.Nop(), append(base, opts...)...)
	require.NoError(t, err)
	return client
}

// newSessionClient resumes a fresh session against a clock that does not
// advance, so no call triggers a token refresh
func newSessionClient(t *testing.T, server *apiServer, opts ...Option) *Client {
	clock := newFakeClock()
	base := []Option{WithClock(clock.Now), WithSession(testSession(clock))}
	return newTestClient(t, server, append(base, opts...)...)
}

func TestNewClient(t *testing.T) {
	logger := zerolog.Nop()

	tests := []struct {
		name    string
		email   string
		opts    []Option
		wantErr bool
		errMsg  string
	}{
		{
			name:  "valid config",
			email: testEmail,
		},
		{
			name:    "missing email",
			email:   "",
			wantErr: true,
			errMsg:  "Email",
		},
		{
			name:    "invalid email",
			email:   "not-an-email",
			wantErr: true,
			errMsg:  "Email",
		},
		{
			name:    "invalid base URL",
			email:   testEmail,
			opts:    []Option{WithBaseURL("not a url")},
			wantErr: true,
			errMsg:  "BaseURL",
		},
		{
			name:    "no polling attempts",
			email:   testEmail,
			opts:    []Option{WithPolling(0, time.Second)},
			wantErr: true,
			errMsg:  "MaxPollingAttempts",
		},
		{
			name:    "negative timeout",
			email:   testEmail,
			opts:    []Option{WithTimeout(-time.Second)},
			wantErr: true,
			errMsg:  "Timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.email, logger, tt.opts...)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidConfig)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.email, client.Email())
			assert.Equal(t, BaseURL, client.baseURL)
			assert.Equal(t, DefaultLanguage, client.language)
			assert.Equal(t, DefaultDeviceType, client.deviceType)
			assert.Equal(t, DefaultAccessTokenLifetime, client.accessTokenLifetime)
			assert.Equal(t, StateUnauthenticated, client.State())
		})
	}
}

func TestClientOptions(t *testing.T) {
	logger := zerolog.Nop()

	t.Run("with timeout", func(t *testing.T) {
		client, err := NewClient(testEmail, logger, WithTimeout(5*time.Second))
		require.NoError(t, err)
		assert.Equal(t, 5*time.Second, client.timeout)
	})

	t.Run("trailing slash is trimmed", func(t *testing.T) {
		client, err := NewClient(testEmail, logger, WithBaseURL("http://localhost:8080/api/"))
		require.NoError(t, err)
		assert.Equal(t, "http://localhost:8080/api", client.baseURL)
	})

	t.Run("with user agent and apk version", func(t *testing.T) {
		client, err := NewClient(testEmail, logger, WithUserAgent("TGTG/{} Custom"), WithAPKVersion("24.1.0"))
		require.NoError(t, err)
		assert.Equal(t, "TGTG/24.1.0 Custom", client.UserAgent())
	})

	t.Run("seeded user agent is deterministic", func(t *testing.T) {
		a, err := NewClient(testEmail, logger, WithUserAgentSelector(SeededUserAgent(42)))
		require.NoError(t, err)
		b, err := NewClient(testEmail, logger, WithUserAgentSelector(SeededUserAgent(42)))
		require.NoError(t, err)
		assert.Equal(t, a.UserAgent(), b.UserAgent())
		assert.Contains(t, a.UserAgent(), "TGTG/"+DefaultAPKVersion)
	})

	t.Run("default user agent comes from the template list", func(t *testing.T) {
		client, err := NewClient(testEmail, logger)
		require.NoError(t, err)

		var rendered []string
		for _, tmpl := range DefaultUserAgents {
			rendered = append(rendered, renderUserAgent(tmpl, DefaultAPKVersion))
		}
		assert.Contains(t, rendered, client.UserAgent())
	})

	t.Run("with custom http client", func(t *testing.T) {
		customClient := &http.Client{Timeout: 10 * time.Second}
		client, err := NewClient(testEmail, logger, WithHTTPClient(customClient))
		require.NoError(t, err)
		assert.Equal(t, customClient, client.httpClient)
	})

	t.Run("with session resumes login", func(t *testing.T) {
		clock := newFakeClock()
		session := testSession(clock)
		client, err := NewClient(testEmail, logger, WithSession(session))
		require.NoError(t, err)

		assert.Equal(t, StateAuthenticated, client.State())
		got, ok := client.Session()
		require.True(t, ok)
		assert.Equal(t, *session, got)
	})
}

func TestState(t *testing.T) {
	tests := []struct {
		state    State
		expected string
	}{
		{StateUnauthenticated, "UNAUTHENTICATED"},
		{StatePending, "PENDING"},
		{StateAuthenticated, "AUTHENTICATED"},
		{State(99), "UNAUTHENTICATED"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.state.String())
		})
	}
}

func TestSessionJSON(t *testing.T) {
	refreshed := time.UnixMilli(1714564800123)

	t.Run("uses snake case keys and unix milliseconds", func(t *testing.T) {
		session := Session{
			AuthInfo: AuthInfo{
				AuthToken:        AuthToken{AccessToken: "A", RefreshToken: "R", UserID: "U"},
				TokenRefreshTime: refreshed,
			},
			Cookie: "c=1",
		}

		data, err := json.Marshal(session)
		require.NoError(t, err)
		assert.JSONEq(t, `{"access_token":"A","refresh_token":"R","user_id":"U","token_refresh_time":1714564800123,"cookie":"c=1"}`, string(data))

		var decoded Session
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.Equal(t, "A", decoded.AccessToken)
		assert.Equal(t, "c=1", decoded.Cookie)
		assert.True(t, refreshed.Equal(decoded.TokenRefreshTime))
	})

	t.Run("null cookie", func(t *testing.T) {
		var decoded Session
		require.NoError(t, json.Unmarshal([]byte(`{"access_token":"A","refresh_token":"R","user_id":"U","token_refresh_time":0,"cookie":null}`), &decoded))
		assert.Empty(t, decoded.Cookie)

		data, err := json.Marshal(decoded)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"cookie":null`)
	})
}

func TestPrice(t *testing.T) {
	assert.InDelta(t, 19.99, Price{Code: "GBP", Decimals: 2, MinorUnits: 1999}.Decimal(), 1e-9)
	assert.InDelta(t, 5.0, Price{Code: "DKK", Decimals: 0, MinorUnits: 5}.Decimal(), 1e-9)
}

func TestInterval(t *testing.T) {
	start := time.Date(2024, 5, 1, 17, 0, 0, 0, time.UTC)
	iv := Interval{Start: start, End: start.Add(time.Hour)}

	assert.True(t, iv.Contains(start))
	assert.True(t, iv.Contains(start.Add(30*time.Minute)))
	assert.False(t, iv.Contains(start.Add(time.Hour)))
	assert.False(t, iv.Contains(start.Add(-time.Minute)))
}
