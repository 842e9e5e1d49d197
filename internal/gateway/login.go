package gateway

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

var (
	ErrMissingCredentials = errors.New("gateway: username and password required")
	ErrMissingAccessToken = errors.New("gateway: login response carried no token")
)

type loginRequestPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponsePayload struct {
	AccessToken string `json:"access_token"`
	Token       string `json:"token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Login exchanges credentials for a bearer token at loginPath and persists it.
// A 401 surfaces as ErrUnauthorized and leaves any existing session in place.
func (g *Gateway) Login(ctx context.Context, loginPath, username string, password []byte) (string, error) {
	name := strings.TrimSpace(username)
	if name == "" || len(password) == 0 {
		return "", ErrMissingCredentials
	}

	var response loginResponsePayload
	request := loginRequestPayload{Username: name, Password: string(password)}
	if err := g.send(ctx, http.MethodPost, loginPath, request, &response, false); err != nil {
		return "", err
	}

	token := strings.TrimSpace(response.AccessToken)
	if token == "" {
		token = strings.TrimSpace(response.Token)
	}
	if token == "" {
		return "", ErrMissingAccessToken
	}
	if err := g.store.Save(ctx, token); err != nil {
		return "", err
	}
	return token, nil
}
