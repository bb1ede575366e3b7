package auth

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// BrowserFlow returns an Authorizer that runs the OAuth2 authorization-code
// flow: it starts a callback listener on a random localhost port, prints the
// consent URL to out, waits for the redirect, and exchanges the code for a
// token. The state parameter is a random nonce checked on the callback.
func BrowserFlow(out io.Writer) Authorizer {
	return func(ctx context.Context, cfg *oauth2.Config) (*oauth2.Token, error) {
		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return nil, fmt.Errorf("starting local listener: %w", err)
		}
		defer listener.Close()

		port := listener.Addr().(*net.TCPAddr).Port
		cfg.RedirectURL = fmt.Sprintf("http://localhost:%d/callback", port)
		state := uuid.NewString()

		type authResult struct {
			code string
			err  error
		}
		resultCh := make(chan authResult, 1)

		mux := http.NewServeMux()
		mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
			if got := r.URL.Query().Get("state"); got != state {
				resultCh <- authResult{err: fmt.Errorf("state mismatch in OAuth callback")}
				fmt.Fprint(w, "Authorization failed: state mismatch. You can close this tab.")
				return
			}
			if errMsg := r.URL.Query().Get("error"); errMsg != "" {
				resultCh <- authResult{err: fmt.Errorf("oauth error: %s", errMsg)}
				fmt.Fprintf(w, "Authorization failed: %s. You can close this tab.", errMsg)
				return
			}
			code := r.URL.Query().Get("code")
			if code == "" {
				resultCh <- authResult{err: fmt.Errorf("no authorization code received")}
				fmt.Fprint(w, "No authorization code received. You can close this tab.")
				return
			}
			resultCh <- authResult{code: code}
			fmt.Fprint(w, "Authorization successful! You can close this tab.")
		})

		server := &http.Server{Handler: mux}
		go func() {
			if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
				resultCh <- authResult{err: fmt.Errorf("callback server error: %w", err)}
			}
		}()
		defer server.Shutdown(ctx)

		authURL := cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
		fmt.Fprintf(out, "\nOpen this URL in your browser to authorize Gmail access:\n\n%s\n\nWaiting for authorization...\n", authURL)

		select {
		case result := <-resultCh:
			if result.err != nil {
				return nil, result.err
			}
			token, err := cfg.Exchange(ctx, result.code)
			if err != nil {
				return nil, fmt.Errorf("exchanging auth code for token: %w", err)
			}
			return token, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
