package handler

import (
	"log/slog"
	"net/http"

	"github.com/inkwell/inkwell/internal/auth"
	"github.com/inkwell/inkwell/internal/handler/dto"
	"github.com/inkwell/inkwell/internal/service"
)

// AccountHandler handles registration, sessions and profile requests.
type AccountHandler struct {
	svc    *service.AccountService
	resp   *Responder
	logger *slog.Logger
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(svc *service.AccountService, resp *Responder) *AccountHandler {
	return &AccountHandler{
		svc:    svc,
		resp:   resp,
		logger: resp.Logger(),
	}
}

// Register handles POST /api/v1/auth/register.
func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	session, err := h.svc.Register(r.Context(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.resp.ServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toSessionResponse(session))
}

// Login handles POST /api/v1/auth/login.
func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	session, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.resp.ServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toSessionResponse(session))
}

// Logout handles POST /api/v1/auth/logout. It revokes the calling token.
func (h *AccountHandler) Logout(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.AuthFromContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	if err := h.svc.Logout(r.Context(), authCtx); err != nil {
		h.resp.ServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /api/v1/users/me.
func (h *AccountHandler) Me(w http.ResponseWriter, r *http.Request) {
	accountID := auth.AccountIDFromContext(r.Context())
	if accountID == "" {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	view, err := h.svc.Me(r.Context(), accountID)
	if err != nil {
		h.resp.ServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// Usage handles GET /api/v1/users/usage.
func (h *AccountHandler) Usage(w http.ResponseWriter, r *http.Request) {
	accountID := auth.AccountIDFromContext(r.Context())
	if accountID == "" {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	usage, err := h.svc.Usage(r.Context(), accountID)
	if err != nil {
		h.resp.ServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, usage)
}

// UpdateProfile handles PUT /api/v1/users/profile.
func (h *AccountHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	accountID := auth.AccountIDFromContext(r.Context())
	if accountID == "" {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	var req dto.UpdateProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	view, err := h.svc.UpdateProfile(r.Context(), accountID, service.ProfileInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.resp.ServiceError(w, r, err)
		return
	}

	h.logger.Info("profile_updated",
		slog.String("account_id", accountID),
		slog.Bool("email_changed", req.Email != nil),
		slog.Bool("password_changed", req.Password != nil),
	)

	writeJSON(w, http.StatusOK, view)
}

func toSessionResponse(s *service.Session) dto.SessionResponse {
	return dto.SessionResponse{Account: s.Account, Token: s.Token}
}
