package google

import "golang.org/x/oauth2"

// StaticTokenSource wraps a pre-issued access token, as printed by
// `gcloud auth print-access-token`. It is never refreshed.
func StaticTokenSource(accessToken string) oauth2.TokenSource {
	return oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	})
}
