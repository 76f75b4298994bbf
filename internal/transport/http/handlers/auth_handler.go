package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/vedran77/geev/internal/domain"
	"github.com/vedran77/geev/internal/mockapi"
	"github.com/vedran77/geev/internal/transport/http/middleware"
	"github.com/vedran77/geev/pkg/validator"
)

// genericMessage is what a client sees for any unexpected failure.
const genericMessage = "An error occurred, please try again"

type AuthHandler struct {
	auth     *mockapi.AuthAPI
	items    *mockapi.ItemsAPI
	messages *mockapi.MessagesAPI
	logger   *zap.Logger
}

func NewAuthHandler(auth *mockapi.AuthAPI, items *mockapi.ItemsAPI, messages *mockapi.MessagesAPI, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, items: items, messages: messages, logger: logger}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var input mockapi.RegisterInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	if errs := validator.ValidateRegister(input.Email, input.FirstName, input.LastName, input.Password, input.PhoneNumber); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	resp, err := h.auth.Register(r.Context(), input)
	if err != nil {
		writeAPIError(w, h.logger, "register", err)
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input mockapi.Credentials
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	if errs := validator.ValidateLogin(input.Email, input.Password); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	resp, err := h.auth.Login(r.Context(), input)
	if err != nil {
		if errors.Is(err, mockapi.ErrInvalidCreds) {
			writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password")
		} else {
			writeAPIError(w, h.logger, "login", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *AuthHandler) Google(w http.ResponseWriter, r *http.Request) {
	resp, err := h.auth.LoginWithGoogle(r.Context())
	if err != nil {
		writeAPIError(w, h.logger, "google login", err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Logout is stateless: tokens simply expire.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context()); err != nil {
		writeAPIError(w, h.logger, "logout", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UpdateProfile saves the patch, then rewrites the owner and participant
// snapshots that embed the user.
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var patch domain.ProfilePatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	if errs := validator.ValidateProfile(patch.FirstName, patch.LastName, patch.PhoneNumber); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	user, err := h.auth.UpdateProfile(r.Context(), userID, patch)
	if err != nil {
		writeAPIError(w, h.logger, "update profile", err)
		return
	}

	if _, err := h.items.RefreshOwner(r.Context(), user); err != nil {
		h.logger.Warn("refresh owner snapshots", zap.String("user_id", userID), zap.Error(err))
	}
	if _, err := h.messages.RefreshParticipant(r.Context(), user); err != nil {
		h.logger.Warn("refresh participant snapshots", zap.String("user_id", userID), zap.Error(err))
	}

	writeJSON(w, http.StatusOK, user)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}

func writeValidationErrors(w http.ResponseWriter, errs validator.ValidationErrors) {
	writeJSON(w, http.StatusBadRequest, map[string]any{
		"error": map[string]any{
			"code":   "VALIDATION_ERROR",
			"fields": errs,
		},
	})
}

var statusByCode = map[string]int{
	"INVALID_CREDENTIALS":    http.StatusUnauthorized,
	"UNAUTHORIZED":           http.StatusUnauthorized,
	"INVALID_TOKEN":          http.StatusUnauthorized,
	"ITEM_NOT_FOUND":         http.StatusNotFound,
	"NOT_ITEM_OWNER":         http.StatusForbidden,
	"CONVERSATION_NOT_FOUND": http.StatusNotFound,
	"NOT_PARTICIPANT":        http.StatusForbidden,
	"CANNOT_CONTACT_SELF":    http.StatusBadRequest,
	"USER_NOT_FOUND":         http.StatusNotFound,
	"INVALID_MESSAGE_ID":     http.StatusBadRequest,
	"MESSAGE_EXISTS":         http.StatusConflict,
}

// writeAPIError maps a facade error onto the error envelope. Anything it
// does not recognize is logged and reported as INTERNAL.
func writeAPIError(w http.ResponseWriter, logger *zap.Logger, op string, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		writeValidationErrors(w, verrs)
		return
	}

	code := mockapi.ErrorCode(err)
	if status, ok := statusByCode[code]; ok {
		writeError(w, status, code, err.Error())
		return
	}

	logger.Error(op, zap.Error(err))
	writeError(w, http.StatusInternalServerError, "INTERNAL", genericMessage)
}
