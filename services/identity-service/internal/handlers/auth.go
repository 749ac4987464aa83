package handlers

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/toxifacil/toxifacil/libs/auth"
	"github.com/toxifacil/toxifacil/libs/brdoc"
	"github.com/toxifacil/toxifacil/libs/db"
	"github.com/toxifacil/toxifacil/libs/outbox"
	"github.com/toxifacil/toxifacil/services/identity-service/internal/audit"
	"github.com/toxifacil/toxifacil/services/identity-service/internal/password"
	"github.com/toxifacil/toxifacil/services/identity-service/internal/profile"
	"github.com/toxifacil/toxifacil/services/identity-service/internal/sessions"
	"github.com/toxifacil/toxifacil/services/identity-service/internal/storage"
	"golang.org/x/crypto/bcrypt"
)

type AuthHandler struct {
	pool        *db.Pool
	users       *storage.UserRepository
	refreshRepo *sessions.RefreshRepository
	resetRepo   *sessions.ResetRepository
	outbox      *outbox.Repository
	audit       *audit.Repository
	jwtSecret   string
	accessTTL   time.Duration
	refreshTTL  time.Duration
	publicURL   string // base URL embedded in confirmation/reset links
	adminKey    string
}

func NewAuthHandler(
	pool *db.Pool,
	users *storage.UserRepository,
	refreshRepo *sessions.RefreshRepository,
	resetRepo *sessions.ResetRepository,
	outboxRepo *outbox.Repository,
	auditRepo *audit.Repository,
	jwtSecret string,
	accessTTL time.Duration,
	refreshTTL time.Duration,
	publicURL string,
	adminKey string,
) *AuthHandler {
	return &AuthHandler{
		pool:        pool,
		users:       users,
		refreshRepo: refreshRepo,
		resetRepo:   resetRepo,
		outbox:      outboxRepo,
		audit:       auditRepo,
		jwtSecret:   jwtSecret,
		accessTTL:   accessTTL,
		refreshTTL:  refreshTTL,
		publicURL:   strings.TrimRight(publicURL, "/"),
		adminKey:    adminKey,
	}
}

type clientPayload struct {
	FullName string `json:"full_name"`
	CPF      string `json:"cpf"`
	Phone    string `json:"phone"`
}

type laboratoryPayload struct {
	CompanyName     string `json:"company_name"`
	ResponsibleName string `json:"responsible_name"`
	CNPJ            string `json:"cnpj"`
	Phone           string `json:"phone"`
	Address         string `json:"address"`
	City            string `json:"city"`
	State           string `json:"state"`
}

type registerRequest struct {
	Email      string             `json:"email"`
	Password   string             `json:"password"`
	Type       string             `json:"type"`
	Client     *clientPayload     `json:"client,omitempty"`
	Laboratory *laboratoryPayload `json:"laboratory,omitempty"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type sessionResponse struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	UserType string `json:"user_type"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		http.Error(w, "valid email required", http.StatusBadRequest)
		return
	}

	if res := password.Validate(req.Password); !res.Valid {
		http.Error(w, res.Message, http.StatusBadRequest)
		return
	}

	prof := profile.Profile{Type: strings.TrimSpace(req.Type)}
	if req.Client != nil {
		prof.Client = &profile.Client{
			FullName: strings.TrimSpace(req.Client.FullName),
			CPF:      req.Client.CPF,
			Phone:    req.Client.Phone,
		}
	}
	if req.Laboratory != nil {
		prof.Laboratory = &profile.Laboratory{
			CompanyName:     strings.TrimSpace(req.Laboratory.CompanyName),
			ResponsibleName: strings.TrimSpace(req.Laboratory.ResponsibleName),
			CNPJ:            req.Laboratory.CNPJ,
			Phone:           req.Laboratory.Phone,
			Address:         strings.TrimSpace(req.Laboratory.Address),
			City:            strings.TrimSpace(req.Laboratory.City),
			State:           strings.ToUpper(strings.TrimSpace(req.Laboratory.State)),
		}
	}
	if err := prof.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		http.Error(w, "failed to hash password", http.StatusInternalServerError)
		return
	}

	user := storage.User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		PasswordHash: string(hash),
		UserType:     prof.Type,
		FullName:     prof.DisplayName(),
	}
	switch prof.Type {
	case profile.TypeClient:
		user.Phone = brdoc.FormatPhone(prof.Client.Phone)
		user.Document = brdoc.FormatCPF(prof.Client.CPF)
	case profile.TypeLaboratory:
		user.Phone = brdoc.FormatPhone(prof.Laboratory.Phone)
		user.Document = brdoc.FormatCNPJ(prof.Laboratory.CNPJ)
		user.CompanyName = prof.Laboratory.CompanyName
		user.Address = prof.Laboratory.Address
		user.City = prof.Laboratory.City
		user.State = prof.Laboratory.State
	}

	confirmationToken := uuid.NewString()

	ctx := r.Context()
	tx, err := h.pool.Begin(ctx)
	if err != nil {
		http.Error(w, "failed to start transaction", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := h.users.CreateTx(ctx, tx, user, confirmationToken); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			http.Error(w, "email already registered", http.StatusConflict)
			return
		}
		http.Error(w, "failed to create user", http.StatusInternalServerError)
		return
	}

	registeredPayload, err := json.Marshal(map[string]any{
		"user_id":          user.ID,
		"email":            user.Email,
		"name":             user.FullName,
		"user_type":        user.UserType,
		"confirmation_url": h.publicURL + "/confirmar?token=" + confirmationToken,
		"created_at":       time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		http.Error(w, "failed to marshal user event", http.StatusInternalServerError)
		return
	}
	if err := h.outbox.Insert(ctx, tx, outbox.Event{
		AggregateType: "user",
		AggregateID:   user.ID,
		EventType:     "identity.user.registered.v1",
		Payload:       registeredPayload,
	}); err != nil {
		http.Error(w, "failed to enqueue user event", http.StatusInternalServerError)
		return
	}

	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit transaction", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"user_id": user.ID,
		"message": "cadastro criado, confirme seu email para entrar",
	})
}

func (h *AuthHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost && r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" {
		http.Error(w, "token required", http.StatusBadRequest)
		return
	}

	userID, err := h.users.ConfirmByToken(r.Context(), token)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "invalid or already used token", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to confirm account", http.StatusInternalServerError)
		return
	}

	if h.audit != nil {
		_ = h.audit.Record(r.Context(), "identity.email_confirmed", userID, nil)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.Password = strings.TrimSpace(req.Password)
	if req.Email == "" || req.Password == "" {
		http.Error(w, "email and password required", http.StatusBadRequest)
		return
	}

	user, err := h.users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		http.Error(w, "failed to lookup user", http.StatusInternalServerError)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	if user.ConfirmedAt == nil {
		http.Error(w, "email not confirmed", http.StatusForbidden)
		return
	}

	accessToken, refreshToken, err := h.issueTokens(r.Context(), user)
	if err != nil {
		http.Error(w, "failed to issue tokens", http.StatusInternalServerError)
		return
	}

	if h.audit != nil {
		_ = h.audit.Record(r.Context(), "identity.signed_in", user.ID, nil)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(tokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
	})
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.RefreshToken = strings.TrimSpace(req.RefreshToken)
	if req.RefreshToken == "" {
		http.Error(w, "refresh_token required", http.StatusBadRequest)
		return
	}

	record, err := h.refreshRepo.GetByHash(r.Context(), sessions.HashToken(req.RefreshToken))
	if err != nil {
		if sessions.IsNotFound(err) {
			http.Error(w, "invalid refresh token", http.StatusUnauthorized)
			return
		}
		http.Error(w, "failed to lookup refresh token", http.StatusInternalServerError)
		return
	}
	if record.RevokedAt != nil || record.ExpiresAt.Before(time.Now()) {
		// The client treats this exactly like an expired session: forced
		// sign-out and a redirect to sign-in with the reason.
		http.Error(w, "session expired", http.StatusUnauthorized)
		return
	}

	user, err := h.users.GetByID(r.Context(), record.UserID)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "invalid refresh token", http.StatusUnauthorized)
			return
		}
		http.Error(w, "failed to lookup user", http.StatusInternalServerError)
		return
	}

	if err := h.refreshRepo.Revoke(r.Context(), record.ID); err != nil {
		http.Error(w, "failed to rotate refresh token", http.StatusInternalServerError)
		return
	}

	accessToken, refreshToken, err := h.issueTokens(r.Context(), user)
	if err != nil {
		http.Error(w, "failed to issue tokens", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(tokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req logoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.RefreshToken = strings.TrimSpace(req.RefreshToken)
	if req.RefreshToken == "" {
		http.Error(w, "refresh_token required", http.StatusBadRequest)
		return
	}

	record, err := h.refreshRepo.GetByHash(r.Context(), sessions.HashToken(req.RefreshToken))
	if err != nil {
		if sessions.IsNotFound(err) {
			// Already gone server-side; sign-out still succeeds locally.
			w.WriteHeader(http.StatusNoContent)
			return
		}
		http.Error(w, "failed to lookup refresh token", http.StatusInternalServerError)
		return
	}

	if record.RevokedAt == nil {
		if err := h.refreshRepo.Revoke(r.Context(), record.ID); err != nil {
			http.Error(w, "failed to revoke refresh token", http.StatusInternalServerError)
			return
		}
	}
	if h.audit != nil {
		_ = h.audit.Record(r.Context(), "identity.signed_out", record.UserID, nil)
	}

	w.WriteHeader(http.StatusNoContent)
}

// Session answers the current-session query. An expired token gets a
// distinct message so the caller can redirect to sign-in with a reason.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	token, ok := auth.BearerToken(r.Header.Get("Authorization"))
	if !ok {
		http.Error(w, "missing or invalid Authorization header", http.StatusUnauthorized)
		return
	}

	claims, err := auth.ParseAndVerifyHS256(token, h.jwtSecret)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			http.Error(w, "session expired", http.StatusUnauthorized)
			return
		}
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(sessionResponse{
		UserID:   claims.Sub,
		Email:    claims.Email,
		Name:     claims.Name,
		UserType: claims.UserType,
	})
}

// Audit lists recent identity events for operators. Guarded by a shared
// admin key; without one configured the endpoint stays off.
func (h *AuthHandler) Audit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.audit == nil || h.adminKey == "" {
		http.Error(w, "audit not available", http.StatusNotFound)
		return
	}
	if r.Header.Get("X-Admin-Key") != h.adminKey {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}

	events, err := h.audit.ListRecent(r.Context(), limit)
	if err != nil {
		http.Error(w, "failed to load audit events", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(events)
}

type passwordResetRequest struct {
	Email string `json:"email"`
}

// RequestPasswordReset always answers 202 so the endpoint cannot be used
// to probe which emails exist.
func (h *AuthHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req passwordResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" {
		http.Error(w, "email required", http.StatusBadRequest)
		return
	}

	user, err := h.users.GetByEmail(r.Context(), req.Email)
	if err == nil {
		_ = h.enqueuePasswordReset(r.Context(), user)
	}

	w.WriteHeader(http.StatusAccepted)
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req resetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.Token = strings.TrimSpace(req.Token)
	if req.Token == "" {
		http.Error(w, "token required", http.StatusBadRequest)
		return
	}
	if res := password.Validate(req.Password); !res.Valid {
		http.Error(w, res.Message, http.StatusBadRequest)
		return
	}

	userID, err := h.resetRepo.Consume(r.Context(), req.Token)
	if err != nil {
		if sessions.IsNotFound(err) {
			http.Error(w, "invalid or expired reset token", http.StatusUnauthorized)
			return
		}
		http.Error(w, "failed to validate reset token", http.StatusInternalServerError)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		http.Error(w, "failed to hash password", http.StatusInternalServerError)
		return
	}
	if err := h.users.UpdatePassword(r.Context(), userID, string(hash)); err != nil {
		http.Error(w, "failed to update password", http.StatusInternalServerError)
		return
	}

	// All live sessions are invalidated after a reset.
	_ = h.refreshRepo.RevokeAllForUser(r.Context(), userID)
	if h.audit != nil {
		_ = h.audit.Record(r.Context(), "identity.password_reset", userID, nil)
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) enqueuePasswordReset(ctx context.Context, user storage.User) error {
	raw, err := newOpaqueToken()
	if err != nil {
		return err
	}
	if err := h.resetRepo.Create(ctx, user.ID, raw, time.Now().Add(time.Hour)); err != nil {
		return err
	}

	payload, err := json.Marshal(map[string]any{
		"user_id":   user.ID,
		"email":     user.Email,
		"reset_url": h.publicURL + "/redefinir-senha?token=" + raw,
	})
	if err != nil {
		return err
	}

	tx, err := h.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := h.outbox.Insert(ctx, tx, outbox.Event{
		AggregateType: "user",
		AggregateID:   user.ID,
		EventType:     "identity.password_reset.requested.v1",
		Payload:       payload,
	}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (h *AuthHandler) issueTokens(ctx context.Context, user storage.User) (string, string, error) {
	now := time.Now()
	accessToken, err := auth.SignHS256(auth.Claims{
		Sub:      user.ID,
		Email:    user.Email,
		Name:     user.FullName,
		UserType: user.UserType,
		Iat:      now.Unix(),
		Exp:      now.Add(h.accessTTL).Unix(),
	}, h.jwtSecret)
	if err != nil {
		return "", "", err
	}

	raw, err := newOpaqueToken()
	if err != nil {
		return "", "", err
	}
	if _, err := h.refreshRepo.Create(ctx, user.ID, raw, now.Add(h.refreshTTL)); err != nil {
		return "", "", err
	}
	return accessToken, raw, nil
}

func newOpaqueToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
