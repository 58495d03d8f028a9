package toggl

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"
)

// APITokenSession authorises Toggl requests with a personal API token.
type APITokenSession struct {
	token string
	http  *http.Client
}

func NewAPITokenSession(apiToken string) *APITokenSession {
	return &APITokenSession{
		token: apiToken,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// HasValidSession reports whether a token is configured. Toggl tokens do not expire.
func (s *APITokenSession) HasValidSession(context.Context) bool {
	return s.token != ""
}

func (s *APITokenSession) Do(req *http.Request) (*http.Response, error) {
	// Basic auth: token:api_token
	auth := base64.StdEncoding.EncodeToString([]byte(fmt.Sprintf("%s:%s", s.token, "api_token")))
	req.Header.Set("Authorization", "Basic "+auth)
	return s.http.Do(req)
}
