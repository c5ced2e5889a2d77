package strava

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
)

// Refresher renews expired access tokens with the stored refresh token.
type Refresher struct {
	Config *oauth2.Config
}

// Refresh returns a valid token. The oauth2 library only calls the token
// endpoint when tok has expired; otherwise tok is returned unchanged.
func (r Refresher) Refresh(ctx context.Context, tok *oauth2.Token) (*oauth2.Token, error) {
	t, err := r.Config.TokenSource(ctx, tok).Token()
	if err != nil {
		return nil, fmt.Errorf("refreshing strava token: %w", err)
	}
	return t, nil
}
