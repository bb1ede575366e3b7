// Package auth owns the OAuth2 credential lifecycle for the Gmail tools:
// reading the client secret file, running the interactive consent flow,
// persisting the token, and refreshing it transparently across tool calls.
// The client secret file is a read-only input and is never written. The
// token file is a secret; it is written with 0600 permissions via an atomic
// write-then-rename and its contents are never logged.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/adrg/xdg"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
)

// State describes where the credential is in its lifecycle.
type State int

const (
	// StateNoCredential means no token is stored; interactive authorization
	// is required before any API call can be made.
	StateNoCredential State = iota
	// StateAwaitingConsent means the interactive authorization flow is in
	// progress and the user has not yet granted access.
	StateAwaitingConsent
	// StateValid means the stored access token is unexpired.
	StateValid
	// StateExpired means the access token has expired; the next API call
	// refreshes it silently using the refresh token.
	StateExpired
)

func (s State) String() string {
	switch s {
	case StateNoCredential:
		return "no-credential"
	case StateAwaitingConsent:
		return "awaiting-consent"
	case StateValid:
		return "valid"
	case StateExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Authorizer completes the interactive consent step of the authorization-code
// flow and returns the initial token. The production implementation opens a
// browser and waits for the local callback; tests substitute a fake.
type Authorizer func(ctx context.Context, cfg *oauth2.Config) (*oauth2.Token, error)

// Manager owns the persisted credential and the cached HTTP client bound to
// it. It is safe for concurrent use: at most one refresh is in flight at a
// time, and a valid cached client is returned without any I/O.
type Manager struct {
	mu              sync.RWMutex // guards token, client, source, consenting
	flowMu          sync.Mutex   // serializes the consent/build slow path
	configDir       string
	credentialsFile string
	tokenFile       string
	scopes          []string
	authorizer      Authorizer
	log             zerolog.Logger

	token      *oauth2.Token
	source     oauth2.TokenSource
	client     *http.Client
	consenting bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithAuthorizer sets the interactive consent step. Without one, Client
// fails with *AuthError when no credential is stored (headless mode).
func WithAuthorizer(a Authorizer) Option {
	return func(m *Manager) { m.authorizer = a }
}

// WithScopes sets the OAuth scopes requested during authorization.
func WithScopes(scopes []string) Option {
	return func(m *Manager) { m.scopes = scopes }
}

// WithLogger sets the logger. Token values are never logged.
func WithLogger(l zerolog.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// NewManager creates a credential manager.
//
// configDir defaults to $XDG_CONFIG_HOME/gmail-mcp. credentialsFile defaults
// to <configDir>/credentials.json and tokenFile to <configDir>/token.json.
// An existing token file is loaded; a missing one is not an error.
func NewManager(configDir, credentialsFile, tokenFile string, opts ...Option) (*Manager, error) {
	if configDir == "" {
		configDir = filepath.Join(xdg.ConfigHome, "gmail-mcp")
	}
	if credentialsFile == "" {
		credentialsFile = filepath.Join(configDir, "credentials.json")
	}
	if tokenFile == "" {
		tokenFile = filepath.Join(configDir, "token.json")
	}

	m := &Manager{
		configDir:       configDir,
		credentialsFile: credentialsFile,
		tokenFile:       tokenFile,
		log:             zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if err := m.loadToken(); err != nil {
		return nil, err
	}
	return m, nil
}

// ConfigDir returns the configuration directory path.
func (m *Manager) ConfigDir() string { return m.configDir }

// CredentialsFile returns the path to the OAuth client secret file.
func (m *Manager) CredentialsFile() string { return m.credentialsFile }

// TokenFile returns the path of the persisted token.
func (m *Manager) TokenFile() string { return m.tokenFile }

// State reports the current credential lifecycle state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	switch {
	case m.consenting:
		return StateAwaitingConsent
	case m.token == nil:
		return StateNoCredential
	case m.token.Valid():
		return StateValid
	default:
		return StateExpired
	}
}

func (m *Manager) loadToken() error {
	data, err := os.ReadFile(m.tokenFile)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading token file: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return fmt.Errorf("parsing token file: %w", err)
	}
	m.token = &tok
	return nil
}

// saveTokenLocked writes the token atomically: marshal, write a temp file in
// the same directory with 0600, then rename over the destination. A crash or
// cancellation mid-write never leaves a partially written token file.
// Callers must hold m.mu.
func (m *Manager) saveTokenLocked(tok *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(m.tokenFile), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling token: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(m.tokenFile), ".token-*")
	if err != nil {
		return fmt.Errorf("creating temp token file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("setting token file mode: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing token: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp token file: %w", err)
	}
	if err := os.Rename(tmpName, m.tokenFile); err != nil {
		return fmt.Errorf("replacing token file: %w", err)
	}
	return nil
}

// SetToken stores and persists a token, dropping any cached client so the
// next Client call binds to the new credential.
func (m *Manager) SetToken(tok *oauth2.Token) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = tok
	m.client = nil
	m.source = nil
	return m.saveTokenLocked(tok)
}

// oauthConfig reads the client secret file and builds an oauth2.Config.
func (m *Manager) oauthConfig() (*oauth2.Config, error) {
	data, err := os.ReadFile(m.credentialsFile)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("client secret file not found at %s\n\nDownload it from https://console.cloud.google.com/apis/credentials and place it there, or use --credentials to specify a different path", m.credentialsFile)
	}
	if err != nil {
		return nil, fmt.Errorf("reading client secret file: %w", err)
	}
	cfg, err := google.ConfigFromJSON(data, m.scopes...)
	if err != nil {
		return nil, fmt.Errorf("parsing client secret file: %w", err)
	}
	return cfg, nil
}

// Client returns an authenticated HTTP client, acquiring a credential first
// if necessary.
//
// With a valid cached client this performs no network I/O and no file write.
// An expired token is refreshed silently on first use by the wrapped token
// source; a missing credential triggers the interactive flow when an
// Authorizer is configured and fails with *AuthError otherwise.
func (m *Manager) Client(ctx context.Context) (*http.Client, error) {
	m.mu.RLock()
	if m.client != nil {
		c := m.client
		m.mu.RUnlock()
		return c, nil
	}
	m.mu.RUnlock()

	m.flowMu.Lock()
	defer m.flowMu.Unlock()

	// Another call may have built the client while we waited.
	m.mu.RLock()
	if m.client != nil {
		c := m.client
		m.mu.RUnlock()
		return c, nil
	}
	token := m.token
	m.mu.RUnlock()

	if token == nil {
		tok, err := m.consent(ctx)
		if err != nil {
			return nil, err
		}
		if err := m.SetToken(tok); err != nil {
			return nil, err
		}
		token = tok
		m.log.Info().Msg("credential acquired")
	}

	cfg, err := m.oauthConfig()
	if err != nil {
		return nil, &AuthError{Reason: "loading OAuth client configuration", Err: err}
	}

	// The token source outlives any single tool call, so it is bound to the
	// background context rather than the caller's.
	ts := &persistingTokenSource{
		base: cfg.TokenSource(context.Background(), token),
		mgr:  m,
		last: token,
	}
	client := oauth2.NewClient(context.Background(), ts)

	m.mu.Lock()
	m.source = ts
	m.client = client
	m.mu.Unlock()
	return client, nil
}

// ClientOption returns a google API client option bound to the credential.
func (m *Manager) ClientOption(ctx context.Context) (option.ClientOption, error) {
	client, err := m.Client(ctx)
	if err != nil {
		return nil, err
	}
	return option.WithHTTPClient(client), nil
}

// Login runs the interactive authorization flow unconditionally and persists
// the resulting token, replacing any stored credential.
func (m *Manager) Login(ctx context.Context) error {
	m.flowMu.Lock()
	defer m.flowMu.Unlock()

	tok, err := m.consent(ctx)
	if err != nil {
		return err
	}
	return m.SetToken(tok)
}

// Revoke deletes the persisted token and clears the cached client.
func (m *Manager) Revoke() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.token = nil
	m.client = nil
	m.source = nil
	if err := os.Remove(m.tokenFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing token file: %w", err)
	}
	return nil
}

func (m *Manager) consent(ctx context.Context) (*oauth2.Token, error) {
	if m.authorizer == nil {
		return nil, &AuthError{Reason: "no stored credential; run 'gmail-mcp auth login' to authorize"}
	}
	cfg, err := m.oauthConfig()
	if err != nil {
		return nil, &AuthError{Reason: "loading OAuth client configuration", Err: err}
	}

	m.setConsenting(true)
	tok, err := m.authorizer(ctx, cfg)
	m.setConsenting(false)
	if err != nil {
		return nil, &AuthError{Reason: "interactive authorization failed", Err: err}
	}
	return tok, nil
}

func (m *Manager) setConsenting(v bool) {
	m.mu.Lock()
	m.consenting = v
	m.mu.Unlock()
}

// storeRefreshed persists a refreshed token. Persistence is best-effort: a
// failed write is logged and the in-memory token still serves the call.
func (m *Manager) storeRefreshed(tok *oauth2.Token) {
	m.mu.Lock()
	m.token = tok
	err := m.saveTokenLocked(tok)
	m.mu.Unlock()
	if err != nil {
		m.log.Error().Err(err).Msg("persisting refreshed token")
		return
	}
	m.log.Debug().Msg("token refreshed")
}

// persistingTokenSource wraps the oauth2 refresh path: at most one refresh
// runs at a time, refreshed tokens are persisted, and refresh failures are
// surfaced as *RefreshError so callers know re-authorization is required.
type persistingTokenSource struct {
	mu   sync.Mutex
	base oauth2.TokenSource
	mgr  *Manager
	last *oauth2.Token
}

func (s *persistingTokenSource) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tok, err := s.base.Token()
	if err != nil {
		var rerr *oauth2.RetrieveError
		if errors.As(err, &rerr) {
			return nil, &RefreshError{Err: err}
		}
		return nil, err
	}
	if tok.AccessToken != s.last.AccessToken {
		s.last = tok
		s.mgr.storeRefreshed(tok)
	}
	return tok, nil
}
