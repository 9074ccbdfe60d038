package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/go-github/v74/github"
	"golang.org/x/oauth2"
	githuboauth "golang.org/x/oauth2/github"
)

// ErrNoVerifiedEmail is returned when the GitHub account exposes no usable
// primary email.
var ErrNoVerifiedEmail = errors.New("github account has no verified primary email")

// Profile is the subset of the remote GitHub profile this app keeps.
type Profile struct {
	Email     string
	Name      string
	AvatarURL string
}

// GitHub drives the OAuth login flow against github.com.
type GitHub struct {
	cfg *oauth2.Config
	// overridden in tests to point the API client at a stub server
	apiBaseURL string
}

// NewGitHub builds the OAuth configuration. baseURL is this app's external
// URL; the callback path is fixed.
func NewGitHub(clientID, clientSecret, baseURL string) *GitHub {
	return &GitHub{
		cfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     githuboauth.Endpoint,
			RedirectURL:  baseURL + "/auth/github/callback",
			Scopes:       []string{"read:user", "user:email"},
		},
	}
}

// LoginURL returns the provider's authorize URL carrying the given
// anti-forgery state value.
func (g *GitHub) LoginURL(state string) string {
	return g.cfg.AuthCodeURL(state)
}

// FetchProfile exchanges the authorization code for an access token and
// fetches the remote profile and primary email.
func (g *GitHub) FetchProfile(ctx context.Context, code string) (*Profile, error) {
	token, err := g.cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("code exchange failed: %w", err)
	}

	client := github.NewClient(g.cfg.Client(ctx, token))
	if g.apiBaseURL != "" {
		client, err = client.WithEnterpriseURLs(g.apiBaseURL, g.apiBaseURL)
		if err != nil {
			return nil, err
		}
	}

	user, _, err := client.Users.Get(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("fetching github profile: %w", err)
	}

	email := user.GetEmail()
	if email == "" {
		email, err = g.primaryEmail(ctx, client)
		if err != nil {
			return nil, err
		}
	}

	name := user.GetName()
	if name == "" {
		name = user.GetLogin()
	}

	return &Profile{
		Email:     email,
		Name:      name,
		AvatarURL: user.GetAvatarURL(),
	}, nil
}

// primaryEmail asks the emails endpoint for the verified primary address;
// profiles with a private email do not expose it on the user record.
func (g *GitHub) primaryEmail(ctx context.Context, client *github.Client) (string, error) {
	emails, _, err := client.Users.ListEmails(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("listing github emails: %w", err)
	}
	for _, e := range emails {
		if e.GetPrimary() && e.GetVerified() {
			return e.GetEmail(), nil
		}
	}
	return "", ErrNoVerifiedEmail
}
