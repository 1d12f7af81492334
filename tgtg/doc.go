// Package tgtg provides a client for the private REST API of the Too Good To
// Go mobile app.
//
// The API is passwordless: a login sends an email to the account holder and
// the client polls until the link in that email is opened. The issued access
// token is refreshed automatically once it has outlived its lifetime.
//
// # Usage
//
//	logger := zerolog.New(os.Stderr)
//	client, err := tgtg.NewClient("me@example.com", logger,
//		tgtg.WithTimeout(30*time.Second),
//		tgtg.WithSessionObserver(tgtg.ObserverFunc(func(ev tgtg.SessionUpdated) {
//			save(ev.Session)
//		})),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	if err := client.AuthByEmail(ctx); err != nil {
//		log.Fatal(err)
//	}
//
//	items, err := client.GetItems(ctx, &tgtg.ItemsOptions{
//		Latitude:  51.5,
//		Longitude: -0.12,
//		Radius:    5,
//	})
//
// Sessions are not persisted by this package. Pass a previously saved session
// with WithSession to resume it; the observer receives every new or refreshed
// session.
//
// # Login states
//
//	Unauthenticated -> Pending(polling id) -> Authenticated
//
// Authenticated moves to itself on every token refresh.
//
// # Error Handling
//
//   - APIError: a non-200 response, or a 200 whose order state is not SUCCESS
//   - LoginError: the login flow was refused
//   - PollingTimeoutError: the login email was not confirmed in time
//   - TimeoutError: a request hit the configured timeout (matches ErrTimeout)
//   - ErrNoSession, ErrAlreadyAuthenticated: the call does not fit the login state
//
// Rate limiting (HTTP 429) during login or refresh is reported as an APIError
// with IsRateLimited true.
package tgtg
