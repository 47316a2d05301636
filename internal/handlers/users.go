package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rojanatorn/apiserver/internal/auth"
	"github.com/rojanatorn/apiserver/internal/services"
	"github.com/rojanatorn/apiserver/types"
)

// UserHandler serves authentication and user-management endpoints.
type UserHandler struct {
	users  *services.UserService
	tokens *auth.TokenService
}

func NewUserHandler(users *services.UserService, tokens *auth.TokenService) *UserHandler {
	return &UserHandler{users: users, tokens: tokens}
}

// AnonymousRouter registers the routes reachable without a token.
func (h *UserHandler) AnonymousRouter(r chi.Router) {
	r.Post("/users", h.CreateFirstUser)
	r.Post("/login", h.Login)
	r.Get("/users/invite/{token}", h.GetInviteDetails)
	r.Post("/users/invite/accept", h.AcceptInvite)
}

// Router registers the authenticated user-management routes.
func (h *UserHandler) Router(r chi.Router) {
	r.Get("/me/profile", h.MeProfile)
	r.Get("/lookups", h.Lookups)
	r.Get("/users", h.ListUsers)
	r.Delete("/users/{id}", h.DeleteUser)
	r.Post("/users/invite", h.InviteUser)
}

// RequireAuth validates the bearer token and attaches the identity to the
// request context. Missing, malformed, invalid, and expired tokens all
// produce 401.
func (h *UserHandler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, err := bearerToken(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		identity := h.tokens.Validate(tokenString)
		if identity == nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		ctx := context.WithValue(r.Context(), contextIdentityKey, *identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAdmin resolves the caller's identity and rejects non-admins.
func requireAdmin(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return auth.Identity{}, false
	}
	if identity.Role != types.RoleAdmin {
		writeError(w, http.StatusForbidden, "admin access required")
		return auth.Identity{}, false
	}
	return identity, true
}

type createUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token        string     `json:"token"`
	ExpiresAtUTC time.Time  `json:"expiresAtUtc"`
	Role         types.Role `json:"role"`
}

type inviteRequest struct {
	Email         string `json:"email"`
	Role          string `json:"role"`
	ExpiresInDays int    `json:"expiresInDays"`
}

type inviteResponse struct {
	Email     string     `json:"email"`
	Role      types.Role `json:"role"`
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expiresAt"`
}

type acceptInviteRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type profileResponse struct {
	ID    string     `json:"id"`
	Email string     `json:"email"`
	Role  types.Role `json:"role"`
}

// CreateFirstUser bootstraps the initial account. Once any user exists the
// endpoint is closed with 403.
func (h *UserHandler) CreateFirstUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	_, session, err := h.users.Bootstrap(r.Context(), req.Email, req.Password, req.Role)
	if err != nil {
		if errors.Is(err, services.ErrBootstrapClosed) {
			writeError(w, http.StatusForbidden, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{
		Token:        session.Token,
		ExpiresAtUTC: session.ExpiresAt,
		Role:         session.Role,
	})
}

func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	session, err := h.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to authenticate")
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{
		Token:        session.Token,
		ExpiresAtUTC: session.ExpiresAt,
		Role:         session.Role,
	})
}

// MeProfile answers from the token identity alone, with no store round trip.
func (h *UserHandler) MeProfile(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, profileResponse{
		ID:    identity.UserID,
		Email: identity.Email,
		Role:  identity.Role,
	})
}

func (h *UserHandler) Lookups(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"roles":                 []types.Role{types.RoleMember, types.RoleAdmin},
		"manufacturingStatuses": types.ManufacturingStatusPipeline,
	})
}

func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r); !ok {
		return
	}
	limit := queryInt(r, "limit", 50)
	token := r.URL.Query().Get("continuationToken")

	page, err := h.users.List(r.Context(), limit, token)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list users")
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireAdmin(w, r)
	if !ok {
		return
	}
	targetID := chi.URLParam(r, "id")

	if err := h.users.Delete(r.Context(), identity.UserID, targetID); err != nil {
		switch {
		case errors.Is(err, services.ErrSelfDelete), errors.Is(err, services.ErrLastAdmin):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, services.ErrUserNotFound):
			writeError(w, http.StatusNotFound, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to delete user")
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *UserHandler) InviteUser(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r); !ok {
		return
	}
	var req inviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}

	invite, err := h.users.Invite(r.Context(), req.Email, req.Role, req.ExpiresInDays)
	if err != nil {
		if errors.Is(err, services.ErrEmailTaken) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create invite")
		return
	}
	writeJSON(w, http.StatusCreated, inviteResponse{
		Email:     invite.Email,
		Role:      invite.Role,
		Token:     invite.Token,
		ExpiresAt: invite.ExpiresAt,
	})
}

func (h *UserHandler) GetInviteDetails(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	invite, err := h.users.InviteDetails(r.Context(), token)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "invite not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load invite")
		return
	}
	writeJSON(w, http.StatusOK, inviteResponse{
		Email:     invite.Email,
		Role:      invite.Role,
		Token:     invite.Token,
		ExpiresAt: invite.ExpiresAt,
	})
}

func (h *UserHandler) AcceptInvite(w http.ResponseWriter, r *http.Request) {
	var req acceptInviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if strings.TrimSpace(req.Token) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "token and password are required")
		return
	}

	session, err := h.users.AcceptInvite(r.Context(), req.Token, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUserNotFound):
			writeError(w, http.StatusNotFound, "invite not found")
		case errors.Is(err, services.ErrInviteExpired):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to accept invite")
		}
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{
		Token:        session.Token,
		ExpiresAtUTC: session.ExpiresAt,
		Role:         session.Role,
	})
}
