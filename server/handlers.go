package server

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/contacts-auth/auth"
	"github.com/jrsteele09/contacts-auth/users"
)

type signupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signupResponse struct {
	User   *users.User `json:"user"`
	Detail string      `json:"detail"`
}

type requestPasswordResetRequest struct {
	Email string `json:"email"`
}

type messageResponse struct {
	Message string `json:"message"`
}

const maxRequestBody = 1 << 20

// SignupHandler creates an unconfirmed account and sends the verification token.
func (s *Server) SignupHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req signupRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
			writeJSONError(w, "invalid_request", "Invalid JSON body", http.StatusBadRequest)
			return
		}

		user, emailToken, err := s.auth.Register(r.Context(), req.Email, req.Username, req.Password)
		if err != nil {
			writeAuthError(w, err)
			return
		}
		if err := s.notifier.SendVerification(r.Context(), user.Email, emailToken); err != nil {
			log.Err(err).Str("email", user.Email).Msg("failed to send verification email")
		}

		writeJSON(w, http.StatusCreated, signupResponse{
			User:   user,
			Detail: "User successfully created. Check your email for confirmation.",
		})
	}
}

// LoginHandler exchanges form credentials (username holds the email) for a token pair.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			writeJSONError(w, "invalid_request", "Invalid form body", http.StatusBadRequest)
			return
		}

		pair, err := s.auth.Authenticate(r.Context(), r.PostFormValue("username"), r.PostFormValue("password"))
		if err != nil {
			writeAuthError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, pair)
	}
}

// RefreshTokenHandler rotates the bearer refresh token.
func (s *Server) RefreshTokenHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeAuthError(w, auth.ErrForged)
			return
		}

		pair, err := s.auth.Refresh(r.Context(), token)
		if err != nil {
			writeAuthError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, pair)
	}
}

// LogoutHandler clears the bearer refresh token.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeAuthError(w, auth.ErrForged)
			return
		}

		if err := s.auth.Logout(r.Context(), token); err != nil {
			writeAuthError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// ConfirmEmailHandler confirms the address named by the email token in the path.
func (s *Server) ConfirmEmailHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subject, err := s.auth.DecodeEmailVerificationToken(r.PathValue("token"))
		if err != nil {
			writeEmailTokenError(w, err)
			return
		}

		result, err := s.auth.ConfirmEmail(r.Context(), subject)
		if err != nil {
			writeEmailTokenError(w, err)
			return
		}

		message := "Email confirmed"
		if result == auth.AlreadyConfirmed {
			message = "Your email is already confirmed"
		}
		writeJSON(w, http.StatusOK, messageResponse{Message: message})
	}
}

// RequestPasswordResetHandler sends a reset token to a confirmed address.
func (s *Server) RequestPasswordResetHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req requestPasswordResetRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
			writeJSONError(w, "invalid_request", "Invalid JSON body", http.StatusBadRequest)
			return
		}

		resetToken, err := s.auth.RequestPasswordReset(r.Context(), req.Email)
		if err != nil {
			writeEmailTokenError(w, err)
			return
		}
		if err := s.notifier.SendPasswordReset(r.Context(), req.Email, resetToken); err != nil {
			log.Err(err).Str("email", req.Email).Msg("failed to send password reset email")
		}

		writeJSON(w, http.StatusOK, messageResponse{Message: "Check your email for a password reset link"})
	}
}

// ResetPasswordHandler sets the form password for the subject of the path token.
func (s *Server) ResetPasswordHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			writeJSONError(w, "invalid_request", "Invalid form body", http.StatusBadRequest)
			return
		}

		if err := s.auth.ResetPassword(r.Context(), r.PathValue("token"), r.PostFormValue("password")); err != nil {
			writeEmailTokenError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, messageResponse{Message: "Password has been reset"})
	}
}

// MeHandler returns the identity resolved by RequireAuth.
func (s *Server) MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !ok {
			writeAuthError(w, auth.ErrForged)
			return
		}
		writeJSON(w, http.StatusOK, user)
	}
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, messageResponse{Message: "ok"})
	}
}

func (s *Server) PreflightHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}
}
