package github

import (
	"context"
	"fmt"
	"net/http"

	"github.com/bradleyfalzon/ghinstallation/v2"
	gogithub "github.com/google/go-github/v60/github"
	"golang.org/x/oauth2"
)

// Credentials selects one of the two supported authentication modes:
// a personal access token, or GitHub App installation credentials.
// When both are present the token wins.
type Credentials struct {
	Token string

	AppID          int64
	InstallationID int64
	PrivateKeyPath string
}

// newAPIClient builds an authenticated go-github client from either
// credential mode. Both modes resolve to an equivalent session; callers
// never need to know which was configured.
func newAPIClient(ctx context.Context, creds Credentials) (*gogithub.Client, error) {
	if creds.Token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: creds.Token})
		return gogithub.NewClient(oauth2.NewClient(ctx, ts)), nil
	}

	if creds.AppID != 0 && creds.InstallationID != 0 && creds.PrivateKeyPath != "" {
		itr, err := ghinstallation.NewKeyFromFile(
			http.DefaultTransport, creds.AppID, creds.InstallationID, creds.PrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load GitHub App key: %w", err)
		}
		return gogithub.NewClient(&http.Client{Transport: itr}), nil
	}

	return nil, fmt.Errorf("either a token or App credentials (app ID, installation ID, private key) must be provided")
}
