package server

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/barkeep-bar/barkeep/cmd/barkeepapi/internal/auth"
	"github.com/barkeep-bar/barkeep/cmd/barkeepapi/internal/services/catalog"
	"github.com/barkeep-bar/barkeep/cmd/barkeepapi/internal/services/validation"
)

// Error codes carried in the "err" field of every error body.
const (
	CodeUserNotLoggedIn    = "ERROR_USER_NOT_LOGGED_IN"
	CodeUserNotAuthorized  = "ERROR_USER_NOT_AUTHORIZED"
	CodeUserHasInvalidRole = "ERROR_USER_HAS_INVALID_ROLE"
	CodeUpstreamAuth       = "ERROR_UPSTREAM_AUTH"
	CodeTimeout            = "ERROR_TIMEOUT"
	CodeInvalidRequest     = "ERROR_INVALID_REQUEST"
	CodeDrinkNotFound      = "ERROR_DRINK_NOT_FOUND"
	CodeDrinkExists        = "ERROR_DRINK_EXISTS"
	CodeInternal           = "ERROR_INTERNAL"
)

// retryAfterSeconds is advertised on timeout responses.
const retryAfterSeconds = "5"

// ErrInvalidRequest marks malformed requests that fail before reaching a service.
var ErrInvalidRequest = errors.New("invalid request")

// ErrorResponse is the JSON body of every error response.
type ErrorResponse struct {
	Err string `json:"err"`
	Msg string `json:"msg"`
}

// ErrorStatus maps an error onto its HTTP status and error code.
func ErrorStatus(err error) (int, string) {
	var (
		notAuthorized *auth.NotAuthorizedError
		invalidRole   *auth.InvalidRoleError
		upstream      *auth.UpstreamAuthError
	)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, CodeTimeout
	case errors.Is(err, auth.ErrNotAuthenticated):
		return http.StatusUnauthorized, CodeUserNotLoggedIn
	case errors.As(err, &notAuthorized):
		return http.StatusForbidden, CodeUserNotAuthorized
	case errors.As(err, &invalidRole):
		return http.StatusNotFound, CodeUserHasInvalidRole
	case errors.As(err, &upstream):
		return http.StatusBadGateway, CodeUpstreamAuth
	case errors.Is(err, catalog.ErrDrinkNotFound):
		return http.StatusNotFound, CodeDrinkNotFound
	case errors.Is(err, catalog.ErrDrinkExists):
		return http.StatusConflict, CodeDrinkExists
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, auth.ErrInvalidCallback),
		errors.Is(err, validation.ErrInvalidDrink),
		errors.Is(err, catalog.ErrInvalidFilter),
		errors.Is(err, catalog.ErrInvalidLimit),
		errors.Is(err, catalog.ErrInvalidID):
		return http.StatusBadRequest, CodeInvalidRequest
	}
	return http.StatusInternalServerError, CodeInternal
}

// WriteError renders err as {"err": CODE, "msg": text}. Internal errors are
// logged and replaced by a generic message.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := ErrorStatus(err)

	msg := err.Error()
	switch status {
	case http.StatusInternalServerError:
		log.Printf("request %s: internal error: %v", middleware.GetReqID(r.Context()), err)
		msg = "internal server error"
	case http.StatusServiceUnavailable:
		log.Printf("request %s: timed out: %v", middleware.GetReqID(r.Context()), err)
		w.Header().Set("Retry-After", retryAfterSeconds)
		msg = "the request timed out, please retry"
	case http.StatusBadGateway:
		log.Printf("request %s: upstream auth failure: %v", middleware.GetReqID(r.Context()), err)
	}

	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Err: code, Msg: msg})
}
