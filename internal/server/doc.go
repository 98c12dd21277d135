// Package server provides the routing and OAuth callback handling behind `trendrank auth`.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support. [Middleware] wraps
// handlers in reverse order (last added executes first). [BasicRouter] uses [http.ServeMux]
// internally with method filtering; [RequestLogger] logs each request.
//
// # OAuth Callback Handler
//
// [OAuthHandler] completes the authorization-code flow with PKCE for the playlist scopes.
// It validates the state parameter, exchanges the code together with the PKCE verifier and
// sends the token through a channel. Only the first callback is processed.
//
// The command starts a temporary server on the configured host and port, opens the browser
// at [OAuthHandler.AuthURL], and shuts the server down once a result arrives. The refresh
// token it prints is what the playlist job reads from SPOTIFY_REFRESH_TOKEN.
package server
