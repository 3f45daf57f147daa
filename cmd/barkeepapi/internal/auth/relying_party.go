package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/zitadel/oidc/v3/pkg/client/rp"
	"github.com/zitadel/oidc/v3/pkg/oidc"

	"github.com/barkeep-bar/barkeep/cmd/barkeepapi/internal/config"
)

// IdentityProvider drives the authorization-code legs of the login flow.
// Only the verified subject of the ID token leaves the provider.
type IdentityProvider interface {
	// AuthorizeHandler redirects the browser to the provider's consent page.
	AuthorizeHandler() http.Handler
	// CallbackHandler completes the code exchange and hands the verified
	// subject to onSubject. Exchange failures never reach onSubject.
	CallbackHandler(onSubject SubjectHandler) http.Handler
}

// SubjectHandler receives the subject of a verified ID token.
type SubjectHandler func(w http.ResponseWriter, r *http.Request, subject string)

// ErrorWriter renders a flow error to the client.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// Cookie names the zitadel relying party uses for the login state and the PKCE verifier.
const (
	stateCookieName = "state"
	pkceCookieName  = "pkce"
)

// RelyingParty handles OIDC authentication against the external IdP by wrapping
// the zitadel/oidc RelyingParty implementation.
type RelyingParty struct {
	rp      rp.RelyingParty
	onError ErrorWriter
	timeout time.Duration
}

var _ IdentityProvider = (*RelyingParty)(nil)

// RelyingPartyOptions carries the explicitly constructed dependencies of a RelyingParty.
type RelyingPartyOptions struct {
	OAuth         config.OAuthConfig
	SessionSecret []byte
	SecureCookies bool
	OnError       ErrorWriter
}

// NewRelyingParty performs provider discovery and creates a RelyingParty.
// State and PKCE verifier cookies are encrypted with keys derived from the session secret.
func NewRelyingParty(ctx context.Context, opts RelyingPartyOptions) (*RelyingParty, error) {
	cookieHandler, err := NewCookieHandler(opts.SessionSecret, "oauth", opts.SecureCookies, PendingDuration)
	if err != nil {
		return nil, fmt.Errorf("create oauth cookie handler: %w", err)
	}

	timeout := opts.OAuth.UpstreamTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	r := &RelyingParty{onError: opts.OnError, timeout: timeout}

	options := []rp.Option{
		rp.WithCookieHandler(cookieHandler),
		rp.WithPKCE(cookieHandler),
		rp.WithHTTPClient(&http.Client{Timeout: timeout}),
		rp.WithVerifierOpts(rp.WithIssuedAtMaxAge(10 * time.Minute)),
		rp.WithErrorHandler(r.handleError),
		rp.WithUnauthorizedHandler(func(w http.ResponseWriter, req *http.Request, desc string, state string) {
			r.writeError(w, req, fmt.Errorf("oauth authorize: %s", desc))
		}),
	}

	scopes := opts.OAuth.Scopes
	if len(scopes) == 0 {
		scopes = []string{oidc.ScopeOpenID}
	}

	discoveryCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	relyingParty, err := rp.NewRelyingPartyOIDC(discoveryCtx, opts.OAuth.Issuer, opts.OAuth.ClientID, opts.OAuth.ClientSecret,
		opts.OAuth.RedirectURI, scopes, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OIDC relying party: %w", err)
	}

	r.rp = relyingParty
	return r, nil
}

// AuthorizeHandler generates the login state and hands it to the library's
// AuthURLHandler, which stores state and PKCE verifier in encrypted cookies
// and redirects to the provider.
func (r *RelyingParty) AuthorizeHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		state, err := GenerateNonce()
		if err != nil {
			r.writeError(w, req, fmt.Errorf("generate oauth state: %w", err))
			return
		}
		rp.AuthURLHandler(func() string { return state }, r.rp).ServeHTTP(w, req)
	})
}

// CallbackHandler completes the login. It checks the state cookie against the
// query, sends the PKCE verifier, exchanges the code and verifies the ID token
// before onSubject runs. Every failure goes through the ErrorWriter.
func (r *RelyingParty) CallbackHandler(onSubject SubjectHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		state, err := r.readState(w, req)
		if err != nil {
			r.writeError(w, req, fmt.Errorf("%w: %v", ErrInvalidCallback, err))
			return
		}

		params := req.URL.Query()
		if errType := params.Get("error"); errType != "" {
			r.handleError(w, req, errType, params.Get("error_description"), state)
			return
		}
		code := params.Get("code")
		if code == "" {
			r.writeError(w, req, fmt.Errorf("%w: missing authorization code", ErrInvalidCallback))
			return
		}

		var exchangeOpts []rp.CodeExchangeOpt
		if r.rp.IsPKCE() {
			verifier, err := r.rp.CookieHandler().CheckCookie(req, pkceCookieName)
			if err != nil {
				r.writeError(w, req, fmt.Errorf("%w: pkce verifier: %v", ErrInvalidCallback, err))
				return
			}
			r.rp.CookieHandler().DeleteCookie(w, pkceCookieName)
			exchangeOpts = append(exchangeOpts, rp.WithCodeVerifier(verifier))
		}

		ctx, cancel := context.WithTimeout(req.Context(), r.timeout)
		defer cancel()
		tokens, err := rp.CodeExchange[*oidc.IDTokenClaims](ctx, code, r.rp, exchangeOpts...)
		if err != nil {
			r.writeError(w, req, exchangeError(err))
			return
		}
		if tokens == nil || tokens.IDTokenClaims == nil || tokens.IDTokenClaims.GetSubject() == "" {
			r.writeError(w, req, &UpstreamAuthError{Type: "invalid_token", Description: "id token carries no subject"})
			return
		}
		onSubject(w, req, tokens.IDTokenClaims.GetSubject())
	})
}

// readState returns the state the browser carried through the provider. It
// must match the encrypted state cookie written by AuthorizeHandler.
func (r *RelyingParty) readState(w http.ResponseWriter, req *http.Request) (string, error) {
	cookies := r.rp.CookieHandler()
	state, err := cookies.CheckQueryCookie(req, stateCookieName)
	if err != nil {
		return "", err
	}
	cookies.DeleteCookie(w, stateCookieName)
	return state, nil
}

func (r *RelyingParty) handleError(w http.ResponseWriter, req *http.Request, errorType string, errorDesc string, state string) {
	upstreamErr := &UpstreamAuthError{Type: errorType, Description: errorDesc}
	if isTimeoutDescription(errorDesc) {
		upstreamErr.Err = context.DeadlineExceeded
	}
	r.writeError(w, req, upstreamErr)
}

// exchangeError wraps a failed code exchange. Timeouts keep
// context.DeadlineExceeded in the chain so they stay retryable.
func exchangeError(err error) error {
	if isTimeout(err) {
		return &UpstreamAuthError{Type: "exchange_failed", Description: err.Error(), Err: context.DeadlineExceeded}
	}
	return &UpstreamAuthError{Type: "exchange_failed", Err: err}
}

func isTimeout(err error) bool {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return true
	}
	// oauth2 and the verifier sometimes flatten the cause into text.
	return isTimeoutDescription(err.Error())
}

func isTimeoutDescription(desc string) bool {
	desc = strings.ToLower(desc)
	return strings.Contains(desc, "deadline exceeded") || strings.Contains(desc, "timeout")
}

func (r *RelyingParty) writeError(w http.ResponseWriter, req *http.Request, err error) {
	if r.onError != nil {
		r.onError(w, req, err)
		return
	}
	http.Error(w, err.Error(), http.StatusBadGateway)
}

// generateRandomBytes creates a slice of random bytes of a specified size.
func generateRandomBytes(size int) ([]byte, error) {
	b := make([]byte, size)
	_, err := io.ReadFull(rand.Reader, b)
	if err != nil {
		return nil, fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return b, nil
}

// GenerateNonce generates a random nonce string.
func GenerateNonce() (string, error) {
	b, err := generateRandomBytes(32)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
