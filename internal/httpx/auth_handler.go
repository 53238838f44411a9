package httpx

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/errandops/fulfillment/internal/auth"
)

type AuthService interface {
	Login(ctx context.Context, email, password string) (string, *auth.UserInfo, error)
	Logout(ctx context.Context, token string) error
	Refresh(ctx context.Context, token string) (string, error)
	Me(ctx context.Context, id auth.Identity) (*auth.UserInfo, error)
	TokenResolver
}

type AuthHandler struct {
	Auth     AuthService
	Validate *validator.Validate
}

type loginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *AuthHandler) Register(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.login)
		r.Group(func(r chi.Router) {
			r.Use(RequireAuth(h.Auth))
			r.Post("/logout", h.logout)
			r.Post("/refresh", h.refresh)
			r.Get("/me", h.me)
		})
	})
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if err := decode(r, h.Validate, &req); err != nil {
		writeErr(w, err)
		return
	}
	token, user, err := h.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeData(w, http.StatusOK, "Login successful", map[string]any{
		"token": token,
		"user":  user,
	})
}

func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	token, _ := bearerToken(r)
	if err := h.Auth.Logout(r.Context(), token); err != nil {
		writeErr(w, err)
		return
	}
	writeData(w, http.StatusOK, "Logged out successfully", nil)
}

func (h *AuthHandler) refresh(w http.ResponseWriter, r *http.Request) {
	token, _ := bearerToken(r)
	newToken, err := h.Auth.Refresh(r.Context(), token)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeData(w, http.StatusOK, "Token refreshed successfully", map[string]string{"token": newToken})
}

func (h *AuthHandler) me(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	user, err := h.Auth.Me(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeData(w, http.StatusOK, "User information retrieved", map[string]any{"user": user})
}
