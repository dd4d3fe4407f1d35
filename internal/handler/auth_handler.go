package handler

import (
	"log/slog"
	"net/http"

	"github.com/vnprr/SnapDish/internal/middleware"
	apierrors "github.com/vnprr/SnapDish/internal/pkg/errors"
	"github.com/vnprr/SnapDish/internal/pkg/response"
)

// formLimit caps credential request bodies.
const formLimit = 64 << 10

// AuthHandler handles registration, login and identity requests.
type AuthHandler struct {
	auth   AuthService
	logger *slog.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(auth AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, logger: logger}
}

// RegisterResponse is returned by POST /register.
type RegisterResponse struct {
	Message string `json:"message"`
	UserID  string `json:"userId"`
}

// TokenResponse is returned by POST /token.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// MeResponse is returned by GET /me.
type MeResponse struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

// Register handles POST /register?email=&password=
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(w, r, formLimit); err != nil {
		response.Error(w, err)
		return
	}

	email := r.Form.Get("email")
	password := r.Form.Get("password")
	if email == "" || password == "" {
		response.Error(w, apierrors.ErrBadRequest.WithMessage("email and password are required"))
		return
	}

	user, err := h.auth.Register(r.Context(), email, password)
	if err != nil {
		writeError(w, h.logger, err, "")
		return
	}

	response.OK(w, RegisterResponse{
		Message: "User registered successfully",
		UserID:  user.ID,
	})
}

// Token handles POST /token with form fields username and password.
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(w, r, formLimit); err != nil {
		response.Error(w, err)
		return
	}

	username := r.PostForm.Get("username")
	password := r.PostForm.Get("password")
	if username == "" || password == "" {
		response.Error(w, apierrors.ErrBadRequest.WithMessage("username and password are required"))
		return
	}

	token, err := h.auth.Login(r.Context(), username, password)
	if err != nil {
		writeError(w, h.logger, err, "")
		return
	}

	response.OK(w, TokenResponse{AccessToken: token, TokenType: "bearer"})
}

// Me handles GET /me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	response.OK(w, MeResponse{
		UserID: middleware.GetUserID(r.Context()),
		Email:  middleware.GetEmail(r.Context()),
	})
}
