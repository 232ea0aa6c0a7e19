package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"sofdesk/internal/config"
	"sofdesk/internal/domain"
	"sofdesk/internal/port"
)

const sessionAudience = "session"

// Claims represents the session token claims. The identity fields are for
// display only.
type Claims struct {
	jwt.RegisteredClaims
	SessionID  uuid.UUID `json:"session_id"`
	Email      string    `json:"email"`
	ProfilePic string    `json:"profile_pic,omitempty"`
}

// SessionToken is a signed session token and its expiry.
type SessionToken struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// StartInput is the DTO for the stand-in sign-in.
type StartInput struct {
	Email      string `json:"email" binding:"required,email"`
	ProfilePic string `json:"profile_pic" binding:"omitempty,max=2048"`
}

// Session is one browsing session: a display identity, its Submission
// Controller, and the store of the results view currently open.
type Session struct {
	ID         uuid.UUID
	Identity   domain.Identity
	CreatedAt  time.Time
	Submission *SubmissionController

	mu       sync.Mutex
	results  *ResultStore
	pending  *Handoff
	lastSeen time.Time
}

func newSession(identity domain.Identity, extractor port.Extractor, now time.Time) *Session {
	return &Session{
		ID:         uuid.New(),
		Identity:   identity,
		CreatedAt:  now,
		Submission: NewSubmissionController(extractor),
		results:    NewResultStore(nil),
		lastSeen:   now,
	}
}

// Results returns the store of the currently open results view.
func (s *Session) Results() *ResultStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.results
}

// OfferHandoff parks a handoff until the next entry into the results view.
// A newer handoff replaces an unclaimed older one.
func (s *Session) OfferHandoff(h *Handoff) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = h
}

// EnterResults opens a new results view. The pending handoff is consumed
// whether or not token matches it; only a match delivers its records. Any
// other entry starts the view empty, dropping whatever the previous view
// held.
func (s *Session) EnterResults(token string) *ResultStore {
	s.mu.Lock()
	defer s.mu.Unlock()

	var h *Handoff
	if s.pending != nil && token != "" && s.pending.Token() == token {
		h = s.pending
	}
	s.pending = nil
	s.results = NewResultStore(h)
	return s.results
}

// Info describes the session.
func (s *Session) Info(ttl time.Duration) domain.SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.SessionInfo{
		ID:        s.ID,
		Identity:  s.Identity,
		CreatedAt: s.CreatedAt,
		ExpiresAt: s.lastSeen.Add(ttl),
	}
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = now
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen)
}

// SessionService defines the session contract.
type SessionService interface {
	Start(ctx context.Context, input StartInput) (*Session, *SessionToken, error)
	Resolve(tokenString string) (*Session, error)
	End(id uuid.UUID)
	Sweep(now time.Time) int
	Count() int
	IdleTTL() time.Duration
}

type sessionService struct {
	extractor port.Extractor
	cfg       config.SessionConfig

	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

// NewSessionService creates an in-memory SessionService. Sessions live only
// in process memory and vanish on restart.
func NewSessionService(extractor port.Extractor, cfg config.SessionConfig) SessionService {
	return &sessionService{
		extractor: extractor,
		cfg:       cfg,
		sessions:  make(map[uuid.UUID]*Session),
	}
}

func (s *sessionService) Start(_ context.Context, input StartInput) (*Session, *SessionToken, error) {
	now := time.Now()
	identity := domain.Identity{
		Email:      strings.TrimSpace(input.Email),
		ProfilePic: strings.TrimSpace(input.ProfilePic),
	}
	sess := newSession(identity, s.extractor, now)

	token, err := s.signToken(sess, now)
	if err != nil {
		return nil, nil, err
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	log.Printf("sessionService.Start: session %s started for %s", sess.ID, identity.Email)
	return sess, token, nil
}

func (s *sessionService) Resolve(tokenString string) (*Session, error) {
	claims, err := s.validateToken(tokenString)
	if err != nil {
		return nil, domain.ErrUnauthorized
	}

	s.mu.RLock()
	sess, ok := s.sessions[claims.SessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrSessionNotFound
	}

	now := time.Now()
	if s.cfg.IdleTTL > 0 && sess.idleSince(now) > s.cfg.IdleTTL {
		s.End(sess.ID)
		return nil, domain.ErrSessionNotFound
	}
	sess.touch(now)
	return sess, nil
}

func (s *sessionService) End(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; ok {
		delete(s.sessions, id)
		log.Printf("sessionService.End: session %s discarded", id)
	}
}

// Sweep discards sessions idle for longer than the idle TTL and returns how
// many were removed.
func (s *sessionService) Sweep(now time.Time) int {
	if s.cfg.IdleTTL <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, sess := range s.sessions {
		if sess.idleSince(now) > s.cfg.IdleTTL {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

func (s *sessionService) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *sessionService) IdleTTL() time.Duration {
	return s.cfg.IdleTTL
}

func (s *sessionService) signToken(sess *Session, now time.Time) (*SessionToken, error) {
	expiry := now.Add(s.cfg.TokenExpiry)
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sess.ID.String(),
			Issuer:    s.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiry),
			ID:        uuid.New().String(),
			Audience:  jwt.ClaimStrings{sessionAudience},
		},
		SessionID:  sess.ID,
		Email:      sess.Identity.Email,
		ProfilePic: sess.Identity.ProfilePic,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return nil, fmt.Errorf("signing session token: %w", err)
	}
	return &SessionToken{Token: signed, ExpiresAt: expiry}, nil
}

func (s *sessionService) validateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.cfg.Secret), nil
	},
		jwt.WithAudience(sessionAudience),
		jwt.WithIssuer(s.cfg.Issuer),
	)
	if err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}
	if !token.Valid {
		return nil, domain.ErrUnauthorized
	}
	return claims, nil
}
