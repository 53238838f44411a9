package httpx

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/errandops/fulfillment/internal/auth"
	"github.com/errandops/fulfillment/internal/users"
)

type UserStore interface {
	Create(ctx context.Context, actor auth.Identity, in users.CreateInput) (*users.User, error)
	Get(ctx context.Context, id int64) (*users.User, error)
	List(ctx context.Context, limit int, cursor *int64) ([]users.User, error)
	ListAssistants(ctx context.Context, withBalance bool, limit int, cursor *int64) ([]users.Assistant, error)
	ListOwners(ctx context.Context, limit int, cursor *int64) ([]users.Owner, error)
}

type UsersHandler struct {
	Users    UserStore
	Validate *validator.Validate
}

type createUserReq struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"required,oneof=owner assistant"`
}

func (h *UsersHandler) Register(r chi.Router) {
	r.Route("/users", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Get("/assistants", h.assistants)
		r.Get("/owners", h.owners)
		r.Get("/{id}", h.get)
	})
}

func (h *UsersHandler) create(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r)
	if !ok {
		return
	}
	var req createUserReq
	if err := decode(r, h.Validate, &req); err != nil {
		writeErr(w, err)
		return
	}
	user, err := h.Users.Create(r.Context(), actor, users.CreateInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     auth.Role(req.Role),
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeData(w, http.StatusCreated, "User created successfully", map[string]any{"user": user})
}

func (h *UsersHandler) get(w http.ResponseWriter, r *http.Request) {
	if _, ok := identity(w, r); !ok {
		return
	}
	id, err := parseID(chi.URLParam(r, "id"), "user id")
	if err != nil {
		writeErr(w, err)
		return
	}
	user, err := h.Users.Get(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeData(w, http.StatusOK, "User retrieved", map[string]any{"user": user})
}

func (h *UsersHandler) list(w http.ResponseWriter, r *http.Request) {
	if _, ok := identity(w, r); !ok {
		return
	}
	limit, cursor := pageParams(r)
	out, err := h.Users.List(r.Context(), limit, cursor)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeData(w, http.StatusOK, "Users retrieved", map[string]any{"users": out})
}

func (h *UsersHandler) assistants(w http.ResponseWriter, r *http.Request) {
	if _, ok := identity(w, r); !ok {
		return
	}
	limit, cursor := pageParams(r)
	withBalance := r.URL.Query().Get("with_balance") == "true"
	out, err := h.Users.ListAssistants(r.Context(), withBalance, limit, cursor)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeData(w, http.StatusOK, "Assistants retrieved", map[string]any{"assistants": out})
}

func (h *UsersHandler) owners(w http.ResponseWriter, r *http.Request) {
	if _, ok := identity(w, r); !ok {
		return
	}
	limit, cursor := pageParams(r)
	out, err := h.Users.ListOwners(r.Context(), limit, cursor)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeData(w, http.StatusOK, "Owners retrieved", map[string]any{"owners": out})
}
