package server

import (
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/render"

	"github.com/barkeep-bar/barkeep/cmd/barkeepapi/internal/auth"
	"github.com/barkeep-bar/barkeep/cmd/barkeepapi/internal/services/iam"
)

// FlowURLs are the browser destinations used by the login flow.
type FlowURLs struct {
	Home     string
	Register string
	Login    string
}

func (u FlowURLs) withDefaults() FlowURLs {
	if u.Home == "" {
		u.Home = "/"
	}
	if u.Register == "" {
		u.Register = "/register"
	}
	if u.Login == "" {
		u.Login = "/login"
	}
	return u
}

// HandleLogin starts the authorization code flow. A browser whose session
// already carries a complete principal is sent straight home.
func HandleLogin(provider auth.IdentityProvider, sessions auth.SessionStore, urls FlowURLs) http.HandlerFunc {
	authorize := provider.AuthorizeHandler()
	return func(w http.ResponseWriter, r *http.Request) {
		principal, err := sessions.Principal(r)
		if err != nil {
			WriteError(w, r, err)
			return
		}
		if principal.Complete() {
			http.Redirect(w, r, urls.Home, http.StatusFound)
			return
		}
		authorize.ServeHTTP(w, r)
	}
}

// HandleCallback completes the code exchange and resolves the subject against
// the identity store.
//
// Outcomes:
//   - registered subject: principal written to the session, redirect home
//   - unknown subject: pending registration cookie written, redirect to the register page
//   - stored role out of range: 404 ERROR_USER_HAS_INVALID_ROLE, session untouched
//   - exchange failure: rendered by the provider's error writer, session untouched
func HandleCallback(provider auth.IdentityProvider, sessions auth.SessionStore, identities identityService, urls FlowURLs) http.Handler {
	return provider.CallbackHandler(func(w http.ResponseWriter, r *http.Request, subject string) {
		principal, err := identities.Login(r.Context(), subject)
		if errors.Is(err, iam.ErrUserNotFound) {
			sessions.ClearPrincipal(w)
			if err := sessions.SetPendingSubject(w, subject); err != nil {
				WriteError(w, r, err)
				return
			}
			log.Printf("oauth callback: subject %s is not registered, redirecting to registration", subject)
			http.Redirect(w, r, urls.Register, http.StatusFound)
			return
		}
		if err != nil {
			WriteError(w, r, err)
			return
		}

		if err := sessions.SetPrincipal(w, *principal); err != nil {
			WriteError(w, r, err)
			return
		}
		sessions.ClearPendingSubject(w)
		log.Printf("oauth callback: %s logged in as %s", principal.Subject, principal.Role)
		http.Redirect(w, r, urls.Home, http.StatusFound)
	})
}

// HandleRegister creates the identity record for the subject verified by the
// preceding callback. Without a verified subject the browser is sent to log in.
func HandleRegister(sessions auth.SessionStore, identities identityService, urls FlowURLs) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subject, err := sessions.PendingSubject(r)
		if err != nil {
			WriteError(w, r, err)
			return
		}
		if subject == "" {
			principal, err := sessions.Principal(r)
			if err != nil {
				WriteError(w, r, err)
				return
			}
			if principal != nil {
				subject = principal.Subject
			}
		}
		if subject == "" {
			http.Redirect(w, r, urls.Login, http.StatusFound)
			return
		}

		principal, err := identities.Register(r.Context(), subject)
		if err != nil {
			WriteError(w, r, err)
			return
		}

		if err := sessions.SetPrincipal(w, *principal); err != nil {
			WriteError(w, r, err)
			return
		}
		sessions.ClearPendingSubject(w)
		http.Redirect(w, r, urls.Home, http.StatusFound)
	}
}

// HandleLogout clears the session unconditionally and redirects home.
func HandleLogout(sessions auth.SessionStore, urls FlowURLs) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessions.ClearPrincipal(w)
		sessions.ClearPendingSubject(w)
		http.Redirect(w, r, urls.Home, http.StatusFound)
	}
}

// WhoAmIResponse describes the session principal.
type WhoAmIResponse struct {
	Subject string `json:"sub"`
	Role    string `json:"role"`
	Rank    int    `json:"rank"`
}

// HandleWhoAmI returns the principal placed on the context by the gate.
func HandleWhoAmI() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := auth.GetPrincipalFromContext(r.Context())
		if !ok {
			WriteError(w, r, auth.ErrNotAuthenticated)
			return
		}
		render.JSON(w, r, WhoAmIResponse{
			Subject: principal.Subject,
			Role:    principal.Role.String(),
			Rank:    principal.Role.Rank(),
		})
	}
}
