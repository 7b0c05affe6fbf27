package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Strob0t/CogniChat/internal/domain"
	"github.com/Strob0t/CogniChat/internal/domain/chat"
	"github.com/Strob0t/CogniChat/internal/domain/user"
	"github.com/Strob0t/CogniChat/internal/port/identity"
	"github.com/Strob0t/CogniChat/internal/port/sessionstore"
)

// SessionService creates and discards chat sessions around the external
// identity provider.
type SessionService struct {
	provider      identity.Provider
	store         sessionstore.Store
	defaultLength chat.Length
	now           func() time.Time
}

// NewSessionService creates a SessionService.
func NewSessionService(provider identity.Provider, store sessionstore.Store, defaultLength chat.Length) *SessionService {
	return &SessionService{
		provider:      provider,
		store:         store,
		defaultLength: defaultLength,
		now:           time.Now,
	}
}

// SignUp registers an account and opens a session for it.
func (s *SessionService) SignUp(ctx context.Context, req user.SignUpRequest) (*chat.Session, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
	creds, err := s.provider.SignUp(ctx, req)
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "user signed up", "user_id", creds.User.ID)
	return s.open(creds), nil
}

// SignIn authenticates with the provider and opens a session.
func (s *SessionService) SignIn(ctx context.Context, req user.SignInRequest) (*chat.Session, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
	creds, err := s.provider.SignIn(ctx, req)
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "user signed in", "user_id", creds.User.ID)
	return s.open(creds), nil
}

func (s *SessionService) open(creds *user.Credentials) *chat.Session {
	sess := chat.NewSession(uuid.NewString(), creds.User, creds.AccessToken, s.defaultLength, s.now())
	s.store.Put(sess)
	return sess
}

// SignOut revokes the provider token, clears the session and discards it.
// The session is discarded even if the provider call fails.
func (s *SessionService) SignOut(ctx context.Context, sessionID string) error {
	sess, release, ok := s.store.Acquire(sessionID)
	if !ok {
		return domain.ErrUnauthorized
	}
	defer release()

	if sess.AccessToken != "" {
		if err := s.provider.SignOut(ctx, sess.AccessToken); err != nil {
			slog.WarnContext(ctx, "identity sign-out failed", "user_id", sess.User.ID, "error", err)
		}
	}
	slog.InfoContext(ctx, "user signed out", "user_id", sess.User.ID)
	sess.Reset()
	s.store.Delete(sessionID)
	return nil
}

// Acquire locks the session for the duration of a turn. The caller must
// call release.
func (s *SessionService) Acquire(sessionID string) (sess *chat.Session, release func(), err error) {
	sess, release, ok := s.store.Acquire(sessionID)
	if !ok {
		return nil, nil, domain.ErrUnauthorized
	}
	if !sess.Authenticated {
		release()
		return nil, nil, domain.ErrUnauthorized
	}
	return sess, release, nil
}

// SetLength changes the session's default response length.
func (s *SessionService) SetLength(sessionID string, length chat.Length) error {
	sess, release, err := s.Acquire(sessionID)
	if err != nil {
		return err
	}
	defer release()
	sess.Length = length
	return nil
}

// Active returns the number of live sessions.
func (s *SessionService) Active() int {
	return s.store.Len()
}
