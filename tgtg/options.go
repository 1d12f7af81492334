package tgtg

import (
	"net/http"
	"time"
)

const (
	// DefaultAccessTokenLifetime is how long an access token is used before refreshing
	DefaultAccessTokenLifetime = 4 * time.Hour
	// DefaultDeviceType is sent with every login call
	DefaultDeviceType = "ANDROID"
	// DefaultLanguage is sent as Accept-Language
	DefaultLanguage = "en-UK"
	// DefaultPollingInterval is the wait between two polling attempts
	DefaultPollingInterval = 5 * time.Second
	// DefaultMaxPollingAttempts bounds the login polling loop (2 minutes in total)
	DefaultMaxPollingAttempts = 24
)

// Option configures a Client.
type Option func(*clientOptions)

// clientOptions holds configuration options for the Client.
type clientOptions struct {
	baseURL             string
	userAgent           UserAgentSelector
	apkVersion          string
	language            string
	timeout             time.Duration
	deviceType          string
	accessTokenLifetime time.Duration
	maxPollingAttempts  int
	pollingInterval     time.Duration
	httpClient          *http.Client
	session             *Session
	observer            SessionObserver
	now                 func() time.Time
}

func defaultOptions() clientOptions {
	return clientOptions{
		baseURL:             BaseURL,
		userAgent:           &RandomUserAgent{Templates: DefaultUserAgents},
		apkVersion:          DefaultAPKVersion,
		language:            DefaultLanguage,
		deviceType:          DefaultDeviceType,
		accessTokenLifetime: DefaultAccessTokenLifetime,
		maxPollingAttempts:  DefaultMaxPollingAttempts,
		pollingInterval:     DefaultPollingInterval,
		httpClient:          &http.Client{},
		observer:            nopObserver{},
		now:                 time.Now,
	}
}

// WithBaseURL overrides the API root.
func WithBaseURL(baseURL string) Option {
	return func(o *clientOptions) {
		o.baseURL = baseURL
	}
}

// WithUserAgent fixes the user agent template.
func WithUserAgent(template string) Option {
	return func(o *clientOptions) {
		o.userAgent = FixedUserAgent(template)
	}
}

// WithUserAgentSelector sets how the user agent template is chosen.
func WithUserAgentSelector(selector UserAgentSelector) Option {
	return func(o *clientOptions) {
		if selector != nil {
			o.userAgent = selector
		}
	}
}

// WithAPKVersion sets the app version substituted into the user agent.
func WithAPKVersion(version string) Option {
	return func(o *clientOptions) {
		o.apkVersion = version
	}
}

// WithLanguage sets the Accept-Language header.
func WithLanguage(language string) Option {
	return func(o *clientOptions) {
		o.language = language
	}
}

// WithTimeout cancels each request after timeout. Zero disables it.
func WithTimeout(timeout time.Duration) Option {
	return func(o *clientOptions) {
		o.timeout = timeout
	}
}

// WithDeviceType sets the device type sent on login.
func WithDeviceType(deviceType string) Option {
	return func(o *clientOptions) {
		o.deviceType = deviceType
	}
}

// WithAccessTokenLifetime sets how old an access token may get before it is refreshed.
func WithAccessTokenLifetime(lifetime time.Duration) Option {
	return func(o *clientOptions) {
		o.accessTokenLifetime = lifetime
	}
}

// WithPolling sets the login polling budget.
func WithPolling(maxAttempts int, interval time.Duration) Option {
	return func(o *clientOptions) {
		o.maxPollingAttempts = maxAttempts
		o.pollingInterval = interval
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(o *clientOptions) {
		if client != nil {
			o.httpClient = client
		}
	}
}

// WithSession resumes a previous login.
func WithSession(session *Session) Option {
	return func(o *clientOptions) {
		o.session = session
	}
}

// WithSessionObserver registers the receiver of session changes.
func WithSessionObserver(observer SessionObserver) Option {
	return func(o *clientOptions) {
		if observer != nil {
			o.observer = observer
		}
	}
}

// WithClock replaces time.Now. Used by tests to age tokens.
func WithClock(now func() time.Time) Option {
	return func(o *clientOptions) {
		if now != nil {
			o.now = now
		}
	}
}
