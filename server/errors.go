package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/contacts-auth/auth"
)

// writeJSONError writes an error response
func writeJSONError(w http.ResponseWriter, errorCode, description string, statusCode int) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":             errorCode,
		"error_description": description,
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Err(err).Msg("failed to encode response")
	}
}

type authErrorResponse struct {
	status      int
	code        string
	description string
}

var authErrorResponses = []struct {
	err  error
	resp authErrorResponse
}{
	{auth.ErrBadCredentials, authErrorResponse{http.StatusUnauthorized, "invalid_credentials", "Invalid password"}},
	{auth.ErrNotFound, authErrorResponse{http.StatusUnauthorized, "invalid_credentials", "Invalid email"}},
	{auth.ErrNotConfirmed, authErrorResponse{http.StatusUnauthorized, "not_confirmed", "Email not confirmed"}},
	{auth.ErrWrongScope, authErrorResponse{http.StatusUnauthorized, "invalid_token", "Invalid scope for token"}},
	{auth.ErrExpired, authErrorResponse{http.StatusUnauthorized, "invalid_token", "Token has expired"}},
	{auth.ErrForged, authErrorResponse{http.StatusUnauthorized, "invalid_token", "Could not validate credentials"}},
	{auth.ErrRevoked, authErrorResponse{http.StatusUnauthorized, "invalid_token", "Invalid refresh token"}},
	{auth.ErrAlreadyExists, authErrorResponse{http.StatusConflict, "already_exists", "Account already exists"}},
	{auth.ErrWeakPassword, authErrorResponse{http.StatusBadRequest, "weak_password", ""}},
	{auth.ErrInvalidEmail, authErrorResponse{http.StatusBadRequest, "invalid_email", "Invalid email address"}},
	{auth.ErrStoreUnavailable, authErrorResponse{http.StatusServiceUnavailable, "unavailable", "Service temporarily unavailable"}},
}

// writeAuthError maps the auth error taxonomy onto HTTP responses.
func writeAuthError(w http.ResponseWriter, err error) {
	for _, m := range authErrorResponses {
		if !errors.Is(err, m.err) {
			continue
		}
		if m.resp.status == http.StatusUnauthorized {
			w.Header().Set("WWW-Authenticate", "Bearer")
		}
		description := m.resp.description
		if description == "" {
			description = err.Error()
		}
		writeJSONError(w, m.resp.code, description, m.resp.status)
		return
	}

	log.Err(err).Msg("unmapped auth error")
	writeJSONError(w, "internal_error", "Internal server error", http.StatusInternalServerError)
}

// writeEmailTokenError is writeAuthError for the email link flows, where a bad token or
// unknown identity is the caller's mistake rather than an authentication failure.
func writeEmailTokenError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrStoreUnavailable),
		errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, auth.ErrNotConfirmed):
		writeAuthError(w, err)
	default:
		writeJSONError(w, "verification_error", "Verification error", http.StatusBadRequest)
	}
}
