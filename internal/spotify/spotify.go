// Package spotify binds the authorization code flow to the Spotify
// Accounts service: consent URLs, code exchange and refresh exchange.
// The OAuth2 protocol mechanics are delegated to golang.org/x/oauth2.
package spotify

import (
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
)

// DefaultRedirectURI matches the callback route the bundled web surface
// serves on its default address.
const DefaultRedirectURI = "http://127.0.0.1:8000/callback"

// Environment variables credentials are resolved from when the
// configuration leaves them unset.
const (
	EnvClientID     = "SPOTIFY_CLIENT_ID"
	EnvClientSecret = "SPOTIFY_CLIENT_SECRET"
	EnvRedirectURI  = "SPOTIFY_REDIRECT_URI"
)

// Endpoint defines the OAuth2 endpoints of the Spotify Accounts service.
var Endpoint = oauth2.Endpoint{
	AuthURL:  spotifyauth.AuthURL,
	TokenURL: spotifyauth.TokenURL,
}

// Scopes is the fixed permission set requested on every authorization.
// There is no negotiation: the host application expects all of them granted.
var Scopes = []string{
	spotifyauth.ScopeUserLibraryRead,
	spotifyauth.ScopePlaylistReadPrivate,
	spotifyauth.ScopePlaylistReadCollaborative,
	spotifyauth.ScopePlaylistModifyPrivate,
	spotifyauth.ScopePlaylistModifyPublic,
	spotifyauth.ScopeUserReadPlaybackState,
	spotifyauth.ScopeUserModifyPlaybackState,
	spotifyauth.ScopeUserReadCurrentlyPlaying,
	spotifyauth.ScopeUserReadRecentlyPlayed,
	spotifyauth.ScopeUserTopRead,
	spotifyauth.ScopeUserFollowRead,
	spotifyauth.ScopeUserFollowModify,
}
