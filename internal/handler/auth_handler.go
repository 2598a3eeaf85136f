package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/oculab/growthtrack/internal/service"
)

// AuthHandler serves registration, login, logout and account endpoints.
type AuthHandler struct {
	authSvc    *service.AuthService
	sessionSvc *service.SessionService
	cookieName string
	cookieTTL  time.Duration
	logger     zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authSvc *service.AuthService, sessionSvc *service.SessionService, cookieName string, cookieTTL time.Duration, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		authSvc:    authSvc,
		sessionSvc: sessionSvc,
		cookieName: cookieName,
		cookieTTL:  cookieTTL,
		logger:     logger.With().Str("handler", "auth").Logger(),
	}
}

type registerRequest struct {
	Username           string `json:"username"`
	Password           string `json:"password"`
	Email              string `json:"email"`
	FullName           string `json:"fullName"`
	BirthDate          string `json:"birthDate"`
	Gender             string `json:"gender"`
	InstitutionName    string `json:"institutionName"`
	InstitutionAddress string `json:"institutionAddress"`
	LicenseNumber      string `json:"licenseNumber"`
	DataSharing        bool   `json:"dataSharing"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register handles POST /api/v1/auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.authSvc.Register(r.Context(), service.RegisterInput{
		Username:           req.Username,
		Password:           req.Password,
		Email:              req.Email,
		FullName:           req.FullName,
		BirthDate:          req.BirthDate,
		Gender:             req.Gender,
		InstitutionName:    req.InstitutionName,
		InstitutionAddress: req.InstitutionAddress,
		LicenseNumber:      req.LicenseNumber,
		DataSharing:        req.DataSharing,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

// Login handles POST /api/v1/auth/login. On success a session cookie is set
// and the password-stripped user record is returned.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.authSvc.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	sess, err := h.sessionSvc.Login(r.Context(), user)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	h.setSessionCookie(w, sess.Token)
	writeJSON(w, http.StatusOK, sess.User)
}

// DemoLogin handles POST /api/v1/auth/demo. The demo account needs no
// credentials; it is fabricated on the fly and bound to the demo data
// directory.
func (h *AuthHandler) DemoLogin(w http.ResponseWriter, r *http.Request) {
	user := h.authSvc.DemoUser()

	sess, err := h.sessionSvc.Login(r.Context(), user)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	h.setSessionCookie(w, sess.Token)
	writeJSON(w, http.StatusOK, sess.User)
}

// Logout handles POST /api/v1/auth/logout. Logging out without a session is
// not an error.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(h.cookieName); err == nil && cookie.Value != "" {
		if err := h.sessionSvc.Logout(r.Context(), cookie.Value); err != nil {
			writeDomainError(w, err)
			return
		}
	}

	h.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

// Me handles GET /api/v1/auth/me and returns the current session's user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	sess, ok := SessionFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "login required")
		return
	}
	writeJSON(w, http.StatusOK, sess.User)
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.cookieTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
