package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const googleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

// ErrGoogleCodeRejected means Google refused the authorization code:
// expired, already used, or issued for another redirect URL.
var ErrGoogleCodeRejected = errors.New("auth: google rejected the authorization code")

// ErrGoogleIdentity means Google answered but the profile is unusable for
// sign-in (no subject, no email, or an unverified email).
var ErrGoogleIdentity = errors.New("auth: unusable google identity")

// GoogleUser is the portion of the OpenID Connect userinfo response we use.
type GoogleUser struct {
	Sub           string `json:"sub"` // stable account ID, stored as users.google_id
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

// GoogleProvider wraps golang.org/x/oauth2 for Google's Authorization Code
// flow. The browser half (consent screen, state cookie) belongs to the
// frontend; this side only redeems the code it hands over.
//
//  1. Frontend sends the user to Google's consent screen.
//  2. Google redirects back to the frontend with a short-lived "code".
//  3. Frontend POSTs the code (and PKCE verifier, if used) to /v1/google.
//  4. Exchange trades it for a token server-to-server, using ClientSecret.
//  5. Exchange calls the userinfo endpoint with that token.
type GoogleProvider struct {
	config      *oauth2.Config
	userInfoURL string
}

// NewGoogleProvider creates a GoogleProvider.
//
// redirectURL must match one of the authorized redirect URIs of the OAuth
// client exactly, because Google checks it again during the exchange.
func NewGoogleProvider(clientID, clientSecret, redirectURL string) *GoogleProvider {
	return newGoogleProvider(clientID, clientSecret, redirectURL, google.Endpoint, googleUserInfoURL)
}

func newGoogleProvider(clientID, clientSecret, redirectURL string, endpoint oauth2.Endpoint, userInfoURL string) *GoogleProvider {
	return &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     endpoint,
		},
		userInfoURL: userInfoURL,
	}
}

// Exchange trades an authorization code for the Google profile behind it.
// verifier is the PKCE code verifier and may be empty.
func (p *GoogleProvider) Exchange(ctx context.Context, code, verifier string) (*GoogleUser, error) {
	var opts []oauth2.AuthCodeOption
	if verifier != "" {
		opts = append(opts, oauth2.VerifierOption(verifier))
	}

	oauthToken, err := p.config.Exchange(ctx, code, opts...)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil && re.Response.StatusCode < http.StatusInternalServerError {
			return nil, fmt.Errorf("%w: %v", ErrGoogleCodeRejected, err)
		}
		return nil, fmt.Errorf("auth: exchanging google code: %w", err)
	}

	// Client adds "Authorization: Bearer <token>" to every request.
	client := p.config.Client(ctx, oauthToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("auth: building userinfo request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth: calling google userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth: google userinfo returned status %d", resp.StatusCode)
	}

	var user GoogleUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("auth: decoding google userinfo: %w", err)
	}

	switch {
	case user.Sub == "":
		return nil, fmt.Errorf("%w: missing subject", ErrGoogleIdentity)
	case user.Email == "":
		return nil, fmt.Errorf("%w: missing email", ErrGoogleIdentity)
	case !user.EmailVerified:
		return nil, fmt.Errorf("%w: email %s is not verified", ErrGoogleIdentity, user.Email)
	}

	return &user, nil
}
