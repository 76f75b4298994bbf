package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vedran77/geev/internal/domain"
	"github.com/vedran77/geev/internal/mockapi"
	"github.com/vedran77/geev/internal/securestore"
	"github.com/vedran77/geev/pkg/validator"
)

// AuthState is a snapshot of the session.
type AuthState struct {
	User            *domain.User `json:"user"`
	IsAuthenticated bool         `json:"is_authenticated"`
	IsLoading       bool         `json:"is_loading"`
	Error           string       `json:"error,omitempty"`
}

// ProfileListener is told about every successful profile update.
type ProfileListener func(ctx context.Context, user *domain.User)

type AuthService struct {
	api    AuthAPI
	store  securestore.Store
	logger *zap.Logger

	mu              sync.RWMutex
	user            *domain.User
	token           string
	isAuthenticated bool
	isLoading       bool
	err             string
	listeners       []ProfileListener
}

func NewAuthService(api AuthAPI, store securestore.Store, logger *zap.Logger) *AuthService {
	return &AuthService{
		api:    api,
		store:  store,
		logger: logger.Named("auth"),
	}
}

// OnProfileUpdated registers l. Listeners run synchronously, in
// registration order, after the new profile is stored.
func (s *AuthService) OnProfileUpdated(l ProfileListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

func (s *AuthService) State() AuthState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return AuthState{
		User:            s.user.Clone(),
		IsAuthenticated: s.isAuthenticated,
		IsLoading:       s.isLoading,
		Error:           s.err,
	}
}

func (s *AuthService) CurrentUser() *domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user.Clone()
}

// Token returns the access token of the current session, if any.
func (s *AuthService) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *AuthService) ClearError() {
	s.mu.Lock()
	s.err = ""
	s.mu.Unlock()
}

// CheckAuthStatus restores a persisted session. Both the user and the
// token must be present; storage failures count as no session.
func (s *AuthService) CheckAuthStatus(ctx context.Context) {
	s.setLoading()

	var (
		userJSON, token   string
		hasUser, hasToken bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		userJSON, hasUser, err = s.store.Get(gctx, securestore.UserKey)
		return err
	})
	g.Go(func() error {
		var err error
		token, hasToken, err = s.store.Get(gctx, securestore.TokenKey)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Warn("reading stored session", zap.Error(err))
		s.clearSession("")
		return
	}

	if !hasUser || !hasToken {
		s.clearSession("")
		return
	}

	var user domain.User
	if err := json.Unmarshal([]byte(userJSON), &user); err != nil {
		s.logger.Warn("decoding stored user", zap.Error(err))
		s.clearSession("")
		return
	}

	s.setSession(&user, token)
	s.logger.Debug("session restored", zap.String("user_id", user.ID))
}

func (s *AuthService) Login(ctx context.Context, creds mockapi.Credentials) error {
	if errs := validator.ValidateLogin(creds.Email, creds.Password); errs.HasErrors() {
		s.clearSession(errs.Error())
		return errs
	}

	s.setLoading()
	resp, err := s.api.Login(ctx, creds)
	if err != nil {
		s.logger.Info("login failed", zap.String("email", creds.Email), zap.Error(err))
		s.clearSession(err.Error())
		return err
	}
	return s.startSession(ctx, resp)
}

func (s *AuthService) Register(ctx context.Context, input mockapi.RegisterInput) error {
	errs := validator.ValidateRegister(input.Email, input.FirstName, input.LastName, input.Password, input.PhoneNumber)
	if errs.HasErrors() {
		s.clearSession(errs.Error())
		return errs
	}

	s.setLoading()
	resp, err := s.api.Register(ctx, input)
	if err != nil {
		s.logger.Error("register failed", zap.Error(err))
		s.clearSession(err.Error())
		return err
	}
	return s.startSession(ctx, resp)
}

// LoginWithGoogle signs in with a synthesized federated account.
func (s *AuthService) LoginWithGoogle(ctx context.Context) error {
	s.setLoading()
	resp, err := s.api.LoginWithGoogle(ctx)
	if err != nil {
		s.logger.Error("google login failed", zap.Error(err))
		s.clearSession(err.Error())
		return err
	}
	return s.startSession(ctx, resp)
}

// Logout never fails: facade and storage errors are logged and the
// in-memory session is cleared regardless.
func (s *AuthService) Logout(ctx context.Context) {
	s.setLoading()

	if err := s.api.Logout(ctx); err != nil {
		s.logger.Warn("logout call failed", zap.Error(err))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.store.Delete(gctx, securestore.UserKey) })
	g.Go(func() error { return s.store.Delete(gctx, securestore.TokenKey) })
	if err := g.Wait(); err != nil {
		s.logger.Warn("clearing stored session", zap.Error(err))
	}

	s.clearSession("")
}

// UpdateProfile merges patch into the current user, persists it and
// notifies profile listeners.
func (s *AuthService) UpdateProfile(ctx context.Context, patch domain.ProfilePatch) error {
	current := s.CurrentUser()
	if current == nil {
		s.setError(ErrNotAuthenticated.Error())
		return ErrNotAuthenticated
	}

	if errs := validator.ValidateProfile(patch.FirstName, patch.LastName, patch.PhoneNumber); errs.HasErrors() {
		s.setError(errs.Error())
		return errs
	}

	s.setLoading()
	updated, err := s.api.UpdateProfile(ctx, current.ID, patch)
	if err != nil {
		s.logger.Error("updating profile", zap.String("user_id", current.ID), zap.Error(err))
		s.finish(err.Error())
		return err
	}

	data, err := json.Marshal(updated)
	if err != nil {
		s.finish(err.Error())
		return fmt.Errorf("encoding user: %w", err)
	}
	if err := s.store.Set(ctx, securestore.UserKey, string(data)); err != nil {
		s.logger.Error("persisting profile", zap.Error(err))
		s.finish(err.Error())
		return fmt.Errorf("persisting user: %w", err)
	}

	s.mu.Lock()
	s.user = updated.Clone()
	s.isLoading = false
	s.err = ""
	listeners := append([]ProfileListener(nil), s.listeners...)
	s.mu.Unlock()

	for _, l := range listeners {
		l(ctx, updated.Clone())
	}
	return nil
}

// startSession persists the user and token concurrently, then marks the
// session authenticated.
func (s *AuthService) startSession(ctx context.Context, resp *mockapi.AuthResponse) error {
	data, err := json.Marshal(resp.User)
	if err != nil {
		s.clearSession(err.Error())
		return fmt.Errorf("encoding user: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.store.Set(gctx, securestore.UserKey, string(data)) })
	g.Go(func() error { return s.store.Set(gctx, securestore.TokenKey, resp.AccessToken) })
	if err := g.Wait(); err != nil {
		s.logger.Error("persisting session", zap.Error(err))
		s.clearSession(err.Error())
		return fmt.Errorf("persisting session: %w", err)
	}

	s.setSession(resp.User, resp.AccessToken)
	s.logger.Info("signed in", zap.String("user_id", resp.User.ID))
	return nil
}

func (s *AuthService) setLoading() {
	s.mu.Lock()
	s.isLoading = true
	s.err = ""
	s.mu.Unlock()
}

func (s *AuthService) setError(msg string) {
	s.mu.Lock()
	s.err = msg
	s.mu.Unlock()
}

func (s *AuthService) finish(errMsg string) {
	s.mu.Lock()
	s.isLoading = false
	s.err = errMsg
	s.mu.Unlock()
}

func (s *AuthService) setSession(user *domain.User, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = user.Clone()
	s.token = token
	s.isAuthenticated = true
	s.isLoading = false
	s.err = ""
}

func (s *AuthService) clearSession(errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
	s.token = ""
	s.isAuthenticated = false
	s.isLoading = false
	s.err = errMsg
}
