package msgraph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"
)

// TokenFile is the token file name inside the data directory.
const TokenFile = "msgraph_tokens.json"

// ErrNotLoggedIn means no Outlook token is stored. Run "tick outlook login".
var ErrNotLoggedIn = errors.New("not logged in to Outlook")

var requiredScopes = []string{
	"https://graph.microsoft.com/Calendars.Read",
	"offline_access",
}

func msEndpoint(tenantID, path string) string {
	return "https://login.microsoftonline.com/" + tenantID + "/oauth2/v2.0/" + path
}

// Auth manages the Microsoft identity token of one user.
type Auth struct {
	TenantID string
	ClientID string
	// Dir holds the token file.
	Dir string
	Log *slog.Logger
}

func (a *Auth) logger() *slog.Logger {
	if a.Log != nil {
		return a.Log
	}
	return slog.Default()
}

// Config returns the oauth2 config for the device code flow.
func (a *Auth) Config() *oauth2.Config {
	return &oauth2.Config{
		ClientID: a.ClientID,
		Scopes:   requiredScopes,
		Endpoint: oauth2.Endpoint{
			DeviceAuthURL: msEndpoint(a.TenantID, "devicecode"),
			TokenURL:      msEndpoint(a.TenantID, "token"),
			AuthStyle:     oauth2.AuthStyleInParams,
		},
	}
}

// TokenPath is the path of the stored token.
func (a *Auth) TokenPath() string {
	return filepath.Join(a.Dir, "auth", TokenFile)
}

// LoadToken returns the stored token, or ErrNotLoggedIn.
func (a *Auth) LoadToken() (*oauth2.Token, error) {
	path := a.TokenPath()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotLoggedIn
	}
	if err != nil {
		return nil, fmt.Errorf("reading token file: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("corrupt token file (delete %s to re-authenticate): %w", path, err)
	}
	if tok.AccessToken == "" && tok.RefreshToken == "" {
		return nil, ErrNotLoggedIn
	}
	return &tok, nil
}

// SaveToken persists tok atomically with owner-only permissions.
func (a *Auth) SaveToken(tok *oauth2.Token) error {
	path := a.TokenPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating auth directory: %w", err)
	}
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling token: %w", err)
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("writing token file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("saving token file: %w", err)
	}
	return nil
}

// Logout removes the stored token.
func (a *Auth) Logout() error {
	if err := os.Remove(a.TokenPath()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing token file: %w", err)
	}
	return nil
}

// Login runs the device code flow, printing the sign-in instructions to out,
// and stores the resulting token.
func (a *Auth) Login(ctx context.Context, out io.Writer) (*oauth2.Token, error) {
	cfg := a.Config()
	resp, err := cfg.DeviceAuth(ctx)
	if err != nil {
		return nil, fmt.Errorf("device auth request failed: %w", err)
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "To sign in, use a web browser to open the page:")
	fmt.Fprintf(out, "  %s\n", resp.VerificationURI)
	fmt.Fprintf(out, "Enter the code: %s\n", resp.UserCode)
	fmt.Fprintln(out)

	tok, err := cfg.DeviceAccessToken(ctx, resp)
	if err != nil {
		return nil, fmt.Errorf("device authentication failed: %w", err)
	}
	if err := a.SaveToken(tok); err != nil {
		return nil, err
	}
	return tok, nil
}

// HTTPClient returns a Graph client authenticated with the stored token.
// Refreshed tokens are written back. It never starts the device flow; without
// a stored token it returns ErrNotLoggedIn.
func (a *Auth) HTTPClient(ctx context.Context) (*http.Client, error) {
	tok, err := a.LoadToken()
	if err != nil {
		return nil, err
	}
	ts := a.Config().TokenSource(ctx, tok)
	return oauth2.NewClient(ctx, &savingTokenSource{ts: ts, auth: a, last: tok.AccessToken}), nil
}

// savingTokenSource wraps a TokenSource and persists refreshed tokens.
type savingTokenSource struct {
	ts   oauth2.TokenSource
	auth *Auth
	last string
}

func (s *savingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.ts.Token()
	if err != nil {
		return nil, err
	}
	if tok.AccessToken != s.last {
		s.last = tok.AccessToken
		// Best effort; the current token stays usable either way.
		if err := s.auth.SaveToken(tok); err != nil {
			s.auth.logger().Warn("could not save refreshed token", "error", err)
		}
	}
	return tok, nil
}
