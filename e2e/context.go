package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	defaultJWTSigningKey     = "dev-secret-key-change-in-production"
	defaultPaymentPrivateKey = "sandbox-private-key"
)

// TestContext carries the state shared by steps within one scenario. It
// talks to a running server over HTTP only.
type TestContext struct {
	BaseURL    string
	HTTPClient *http.Client

	jwtKey     string
	jwtIssuer  string
	paymentKey string

	userID      string
	accessToken string
	saved       map[string]string

	lastStatus int
	lastBody   []byte
	lastJSON   map[string]interface{}
}

// NewTestContext reads the target from E2E_BASE_URL and the shared secrets
// from the same variables the server uses.
func NewTestContext() *TestContext {
	return &TestContext{
		BaseURL:    strings.TrimRight(envOr("E2E_BASE_URL", "http://localhost:8080"), "/"),
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		jwtKey:     envOr("JWT_SIGNING_KEY", defaultJWTSigningKey),
		jwtIssuer:  os.Getenv("JWT_ISSUER"),
		paymentKey: envOr("PAYMENT_PRIVATE_KEY", defaultPaymentPrivateKey),
		saved:      make(map[string]string),
	}
}

// Reset clears per-scenario state.
func (tc *TestContext) Reset() {
	tc.userID = ""
	tc.accessToken = ""
	tc.saved = make(map[string]string)
	tc.lastStatus = 0
	tc.lastBody = nil
	tc.lastJSON = nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// SignInAsNewUser mints an access token for a fresh user id.
func (tc *TestContext) SignInAsNewUser() error {
	userID := uuid.NewString()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(15 * time.Minute)),
	}
	if tc.jwtIssuer != "" {
		claims.Issuer = tc.jwtIssuer
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(tc.jwtKey))
	if err != nil {
		return fmt.Errorf("sign access token: %w", err)
	}
	tc.userID = userID
	tc.accessToken = token
	return nil
}

func (tc *TestContext) SignOut()               { tc.accessToken = "" }
func (tc *TestContext) GetUserID() string      { return tc.userID }
func (tc *TestContext) PaymentKey() string     { return tc.paymentKey }
func (tc *TestContext) GetAccessToken() string { return tc.accessToken }

func (tc *TestContext) Save(key, value string) { tc.saved[key] = value }

func (tc *TestContext) Saved(key string) (string, error) {
	v, ok := tc.saved[key]
	if !ok {
		return "", fmt.Errorf("nothing saved under %q", key)
	}
	return v, nil
}

// POST sends body as JSON with the current bearer token, if any.
func (tc *TestContext) POST(path string, body interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}
	return tc.do(http.MethodPost, path, reader, nil)
}

// GET sends a request with the current bearer token unless headers
// override Authorization.
func (tc *TestContext) GET(path string, headers map[string]string) error {
	return tc.do(http.MethodGet, path, nil, headers)
}

func (tc *TestContext) do(method, path string, body io.Reader, headers map[string]string) error {
	req, err := http.NewRequest(method, tc.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tc.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+tc.accessToken)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := tc.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	tc.lastStatus = resp.StatusCode
	tc.lastBody, err = io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	tc.lastJSON = nil
	if len(tc.lastBody) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		var decoded map[string]interface{}
		if err := json.Unmarshal(tc.lastBody, &decoded); err == nil {
			tc.lastJSON = decoded
		}
	}
	return nil
}

func (tc *TestContext) GetLastStatusCode() int { return tc.lastStatus }
func (tc *TestContext) GetLastBody() string    { return string(tc.lastBody) }

// GetResponseField returns a top-level field of the last JSON response.
func (tc *TestContext) GetResponseField(field string) (interface{}, error) {
	if tc.lastJSON == nil {
		return nil, fmt.Errorf("last response was not a JSON object: %s", tc.lastBody)
	}
	v, ok := tc.lastJSON[field]
	if !ok {
		return nil, fmt.Errorf("field %q not in response: %s", field, tc.lastBody)
	}
	return v, nil
}
