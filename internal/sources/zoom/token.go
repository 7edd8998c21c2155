package zoom

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/url"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/oauth2"

	"github.com/ryanspoone/sdlc-metrics/internal/entities"
	"github.com/ryanspoone/sdlc-metrics/internal/fetcher"
)

const tokenURL = "https://zoom.us/oauth/token"

// tokenSource obtains server-to-server OAuth tokens with the
// account_credentials grant. Wrapped in oauth2.ReuseTokenSource so a token
// is fetched once and reused until shortly before expiry.
type tokenSource struct {
	ctx  context.Context
	http *fetcher.Client

	tokenURL     string
	accountID    string
	clientID     string
	clientSecret string
}

func (s *tokenSource) Token() (*oauth2.Token, error) {
	form := url.Values{
		"grant_type": {"account_credentials"},
		"account_id": {s.accountID},
	}

	header := http.Header{}
	basic := base64.StdEncoding.EncodeToString([]byte(s.clientID + ":" + s.clientSecret))
	header.Set("Authorization", "Basic "+basic)

	resp, err := s.http.PostForm(s.ctx, s.tokenURL, header, []byte(form.Encode()))
	if err != nil {
		return nil, err
	}

	var body struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := resp.Decode(&body); err != nil {
		return nil, err
	}
	if body.AccessToken == "" {
		return nil, errors.Mark(errors.New("token response without access_token"), entities.ErrMalformedResponse)
	}

	return &oauth2.Token{
		AccessToken: body.AccessToken,
		TokenType:   body.TokenType,
		Expiry:      time.Now().Add(time.Duration(body.ExpiresIn) * time.Second),
	}, nil
}
