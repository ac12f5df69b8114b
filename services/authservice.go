package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"itsdone/logger"
	"itsdone/model"
)

var (
	ErrEmailTaken      = errors.New("email is already registered")
	ErrInvalidPassword = errors.New("invalid password")
	ErrInvalidEmail    = errors.New("invalid email format")
)

const (
	refreshTokensCollection = "refreshTokens"

	// SessionKey is the local slot the signed-in session resumes from
	// after a restart.
	SessionKey = "@ItsDone:session"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// SessionCache is the local keyed storage the session slot lives in.
type SessionCache interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
}

type storedSession struct {
	RefreshToken string `json:"refreshToken"`
}

type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// AuthService is the authentication collaborator: email/password
// accounts in the Users collection, HS256 token pairs, and a reactive
// current-user signal consumed through Watch.
type AuthService struct {
	fb    *firestore.Client
	local SessionCache

	mu       sync.Mutex
	current  *model.Session
	loading  bool
	watchers []func(*model.Session)
}

func NewAuthService(fb *firestore.Client, local SessionCache) *AuthService {
	return &AuthService{fb: fb, local: local, loading: true}
}

// Current returns the signed-in session, or nil.
func (a *AuthService) Current() *model.Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

// Loading reports whether the initial session resolution is still
// pending.
func (a *AuthService) Loading() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.loading
}

// Watch registers a listener for session changes. Once the initial
// resolution has completed the listener also fires immediately with
// the current state.
func (a *AuthService) Watch(fn func(*model.Session)) {
	a.mu.Lock()
	a.watchers = append(a.watchers, fn)
	loading := a.loading
	current := a.current
	a.mu.Unlock()

	if !loading {
		fn(current)
	}
}

// Resume performs the initial session resolution from the local
// session slot. It always completes the loading phase, signed in or
// not, and notifies watchers with the outcome.
func (a *AuthService) Resume(ctx context.Context) {
	session := a.resumeSession(ctx)

	a.mu.Lock()
	a.loading = false
	a.current = session
	watchers := append([]func(*model.Session){}, a.watchers...)
	a.mu.Unlock()

	for _, fn := range watchers {
		fn(session)
	}
}

func (a *AuthService) resumeSession(ctx context.Context) *model.Session {
	raw, ok, err := a.local.Get(SessionKey)
	if err != nil {
		logger.Warn("session slot read failed", zap.Error(err))
		return nil
	}
	if !ok {
		return nil
	}

	var stored storedSession
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		logger.Warn("session slot unreadable", zap.Error(err))
		a.clearSessionSlot()
		return nil
	}

	claims, err := ParseRefreshToken(stored.RefreshToken)
	if err != nil {
		logger.Info("stored session no longer valid", zap.Error(err))
		a.clearSessionSlot()
		return nil
	}

	// The stored token must still be the active, unrevoked one.
	docSnap, err := a.fb.Collection(refreshTokensCollection).Doc(claims.UserID).Get(ctx)
	if err != nil {
		logger.Warn("refresh token lookup failed", zap.Error(err))
		return nil
	}
	var tok model.StoredRefreshToken
	if err := docSnap.DataTo(&tok); err != nil {
		logger.Warn("refresh token document unreadable", zap.Error(err))
		return nil
	}
	if tok.Revoked || CompareRefreshToken(tok.RefreshToken, stored.RefreshToken) != nil {
		a.clearSessionSlot()
		return nil
	}

	return &model.Session{UID: claims.UserID, Email: claims.Email}
}

// SignUp registers a new account and signs it in, mirroring the
// create-then-authenticated behavior of the original flow.
func (a *AuthService) SignUp(ctx context.Context, name, email, password string) (*TokenPair, error) {
	if !emailRegex.MatchString(email) {
		return nil, ErrInvalidEmail
	}

	exists, err := UserExist(ctx, a.fb, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing email: %w", err)
	}
	if exists {
		return nil, ErrEmailTaken
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	docid := uuid.New().String()
	newUser := model.User{
		UserID:    docid,
		Name:      name,
		Email:     email,
		Password:  string(hashedPassword),
		CreatedAt: time.Now(),
	}
	if _, err := a.fb.Collection(usersCollection).Doc(docid).Set(ctx, newUser); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return a.establishSession(ctx, docid, email)
}

func (a *AuthService) SignIn(ctx context.Context, email, password string) (*TokenPair, error) {
	docSnap, err := GetUserData(ctx, a.fb, email)
	if err != nil {
		return nil, err
	}
	var user model.User
	if err := docSnap.DataTo(&user); err != nil {
		return nil, fmt.Errorf("failed to parse user data: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidPassword
	}

	return a.establishSession(ctx, user.UserID, user.Email)
}

// SignOut revokes the refresh token (best-effort), clears the local
// session slot and drops the current-user signal to nil.
func (a *AuthService) SignOut(ctx context.Context) {
	a.mu.Lock()
	current := a.current
	a.mu.Unlock()

	if current != nil {
		revoke := map[string]interface{}{"revoked": true}
		if _, err := a.fb.Collection(refreshTokensCollection).Doc(current.UID).Set(ctx, revoke, firestore.MergeAll); err != nil {
			logger.Warn("refresh token revoke failed", zap.Error(err))
		}
	}

	a.clearSessionSlot()
	a.setSession(nil)
}

// RefreshAccessToken exchanges a still-valid refresh token for a new
// access token.
func (a *AuthService) RefreshAccessToken(ctx context.Context, userID, email, refreshToken string) (string, error) {
	docSnap, err := a.fb.Collection(refreshTokensCollection).Doc(userID).Get(ctx)
	if err != nil {
		return "", fmt.Errorf("refresh token not found: %w", err)
	}
	var stored model.StoredRefreshToken
	if err := docSnap.DataTo(&stored); err != nil {
		return "", fmt.Errorf("failed to parse refresh token data: %w", err)
	}
	if stored.Revoked {
		return "", errors.New("refresh token is revoked")
	}
	if err := CompareRefreshToken(stored.RefreshToken, refreshToken); err != nil {
		return "", errors.New("refresh token mismatch")
	}

	return CreateAccessToken(userID, email)
}

// UpdateProfile patches name and/or password on the account document.
func (a *AuthService) UpdateProfile(ctx context.Context, userID, name, password string) error {
	fields := map[string]interface{}{}
	if name != "" {
		fields["name"] = name
	}
	if password != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}
		fields["password"] = string(hashed)
	}
	if len(fields) == 0 {
		return nil
	}

	if _, err := a.fb.Collection(usersCollection).Doc(userID).Set(ctx, fields, firestore.MergeAll); err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	return nil
}

// DeleteAccount removes the account and its refresh token, then signs
// the session out locally.
func (a *AuthService) DeleteAccount(ctx context.Context, userID string) error {
	if _, err := a.fb.Collection(usersCollection).Doc(userID).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if _, err := a.fb.Collection(refreshTokensCollection).Doc(userID).Delete(ctx); err != nil {
		logger.Warn("refresh token cleanup failed", zap.Error(err))
	}

	a.clearSessionSlot()
	a.setSession(nil)
	return nil
}

func (a *AuthService) establishSession(ctx context.Context, userID, email string) (*TokenPair, error) {
	accessToken, err := CreateAccessToken(userID, email)
	if err != nil {
		return nil, fmt.Errorf("failed to create access token: %w", err)
	}
	refreshToken, err := CreateRefreshToken(userID, email)
	if err != nil {
		return nil, fmt.Errorf("failed to create refresh token: %w", err)
	}
	hashedRefreshToken, err := HashRefreshToken(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("failed to hash refresh token: %w", err)
	}

	now := time.Now()
	tokenData := model.StoredRefreshToken{
		UserID:       userID,
		RefreshToken: hashedRefreshToken,
		CreatedAt:    now.Unix(),
		Revoked:      false,
		ExpiresIn:    int64(refreshTokenTTL.Seconds()),
	}
	if _, err := a.fb.Collection(refreshTokensCollection).Doc(userID).Set(ctx, tokenData); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	raw, err := json.Marshal(storedSession{RefreshToken: refreshToken})
	if err == nil {
		err = a.local.Set(SessionKey, string(raw))
	}
	if err != nil {
		// the in-memory session still stands; only resume is lost
		logger.Warn("session slot write failed", zap.Error(err))
	}

	a.setSession(&model.Session{UID: userID, Email: email})
	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

func (a *AuthService) setSession(session *model.Session) {
	a.mu.Lock()
	a.current = session
	watchers := append([]func(*model.Session){}, a.watchers...)
	a.mu.Unlock()

	for _, fn := range watchers {
		fn(session)
	}
}

func (a *AuthService) clearSessionSlot() {
	if err := a.local.Delete(SessionKey); err != nil {
		logger.Warn("session slot delete failed", zap.Error(err))
	}
}
