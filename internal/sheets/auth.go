package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	jwtBearerGrant  = "urn:ietf:params:oauth:grant-type:jwt-bearer"
	defaultTokenURI = "https://oauth2.googleapis.com/token"

	// Read-only access to Sheets plus Drive metadata for the name lookup.
	oauthScopes = "https://www.googleapis.com/auth/spreadsheets.readonly https://www.googleapis.com/auth/drive.readonly"
)

var errTokenExchange = errors.New("sheets: token exchange failed")

// serviceAccountCreds is the subset of a Google service-account JSON blob the
// JWT-bearer flow needs.
type serviceAccountCreds struct {
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
	TokenURI    string `json:"token_uri"`
}

// tokenSource exchanges a signed service-account JWT for a bearer token and
// caches it until shortly before expiry.
type tokenSource struct {
	creds      serviceAccountCreds
	httpClient *http.Client

	mu     sync.Mutex
	token  string
	expiry time.Time
}

func newTokenSource(credentialsJSON []byte, httpClient *http.Client) (*tokenSource, error) {
	var creds serviceAccountCreds
	if err := json.Unmarshal(credentialsJSON, &creds); err != nil {
		return nil, fmt.Errorf("sheets: parse credentials json: %w", err)
	}
	if creds.ClientEmail == "" || creds.PrivateKey == "" {
		return nil, errors.New("sheets: credentials json missing client_email or private_key")
	}
	if creds.TokenURI == "" {
		creds.TokenURI = defaultTokenURI
	}
	return &tokenSource{creds: creds, httpClient: httpClient}, nil
}

func (ts *tokenSource) Token(ctx context.Context) (string, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.token != "" && time.Now().Before(ts.expiry) {
		return ts.token, nil
	}

	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(ts.creds.PrivateKey))
	if err != nil {
		return "", fmt.Errorf("sheets: parse service account key: %w", err)
	}

	now := time.Now()
	assertion, err := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"iss":   ts.creds.ClientEmail,
		"scope": oauthScopes,
		"aud":   ts.creds.TokenURI,
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	}).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("sheets: sign assertion: %w", err)
	}

	form := url.Values{
		"grant_type": {jwtBearerGrant},
		"assertion":  {assertion},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ts.creds.TokenURI, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("sheets: build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := ts.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", errTokenExchange, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", errTokenExchange, resp.StatusCode)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("%w: decode: %w", errTokenExchange, err)
	}
	if payload.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access_token", errTokenExchange)
	}

	ts.token = payload.AccessToken
	ts.expiry = now.Add(time.Duration(payload.ExpiresIn)*time.Second - time.Minute)
	return ts.token, nil
}
