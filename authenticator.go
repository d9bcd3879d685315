package sesam

import (
	"context"
	"reflect"
	"time"
)

// Auther drives the login and refresh flows: it verifies identities through
// the IdentityProvider and mints token pairs through the TokenService.
type Auther struct {
	provider     IdentityProvider
	tokenService TokenService
	logger       Logger
	activitySink ActivitySink
}

// NewAuthenticator returns a new Auther.
func NewAuthenticator(provider IdentityProvider, tokenService TokenService) *Auther {
	return &Auther{
		provider:     provider,
		tokenService: tokenService,
		logger:       defLogger{},
		activitySink: noopActivitySink{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activitySink = normalizeActivitySink(sink)
	return s
}

// TokenService returns the TokenService instance used by this Auther.
func (s *Auther) TokenService() TokenService {
	return s.tokenService
}

// Login verifies credentials and issues the initial access/refresh pair.
func (s *Auther) Login(ctx context.Context, identifier, password string) (*TokenPair, Identity, error) {
	identity, err := s.provider.VerifyIdentity(ctx, identifier, password)
	if err != nil {
		s.logger.Error("Login verify identity error: %v", err)
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, ActorRef{Type: "unknown"}, "", map[string]any{
			"identifier": identifier,
			"error":      err.Error(),
		})
		return nil, nil, err
	}

	if identity == nil || reflect.ValueOf(identity).IsZero() {
		s.logger.Error("Login identity is nil or zero value")
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, ActorRef{Type: "unknown"}, "", map[string]any{
			"identifier": identifier,
			"error":      ErrIdentityNotFound.Error(),
		})
		return nil, nil, ErrIdentityNotFound
	}

	pair, err := s.tokenService.IssueInitial(identity)
	if err != nil {
		s.logger.Error("Login token issuance error: %v", err)
		return nil, nil, err
	}

	s.emitAuthEvent(ctx, ActivityEventLoginSuccess, s.actorFromIdentity(identity), identity.ID(), map[string]any{
		"identifier": identifier,
	})

	return pair, identity, nil
}

// Refresh validates a refresh token and rotates the pair according to the
// TokenService's rotation policy.
func (s *Auther) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.tokenService.VerifyRefresh(refreshToken)
	if err != nil {
		s.logger.Debug("Refresh token validation failed: %v", err)
		return nil, err
	}

	pair, err := s.tokenService.Rotate(claims)
	if err != nil {
		s.logger.Debug("Refresh rotation rejected for user %s: %v", claims.UserID(), err)
		return nil, err
	}

	s.emitAuthEvent(ctx, ActivityEventSessionRefreshed, ActorRef{ID: claims.UserID(), Type: "user"}, claims.UserID(), nil)

	return pair, nil
}

// SessionFromToken validates an access token and maps it to a session.
func (s *Auther) SessionFromToken(token string) (Session, error) {
	claims, err := s.tokenService.VerifyAccess(token)
	if err != nil {
		return nil, err
	}

	return sessionFromAccessClaims(claims)
}

// IdentityFromSession resolves the full identity behind a session. The
// session subject must be a user id; opaque subjects cannot be resolved.
func (s *Auther) IdentityFromSession(ctx context.Context, session Session) (Identity, error) {
	if !HasUserUUID(session) {
		return nil, ErrUnableToFindSession
	}

	return s.provider.FindIdentityByIdentifier(ctx, session.GetUserID())
}

func (s *Auther) actorFromIdentity(identity Identity) ActorRef {
	if identity == nil {
		return ActorRef{Type: "unknown"}
	}
	return ActorRef{ID: identity.ID(), Type: "user"}
}

func (s *Auther) emitAuthEvent(ctx context.Context, eventType ActivityEventType, actor ActorRef, userID string, metadata map[string]any) {
	event := ActivityEvent{
		EventType:  eventType,
		Actor:      actor,
		UserID:     userID,
		Metadata:   metadata,
		OccurredAt: time.Now(),
	}

	if err := s.activitySink.Record(ctx, event); err != nil {
		s.logger.Warn("activity sink error for %s: %v", eventType, err)
	}
}
