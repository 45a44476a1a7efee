package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/h2market/h2trade/internal/core/domain"
	"github.com/h2market/h2trade/internal/core/ports"
	"github.com/h2market/h2trade/internal/metrics"
	"github.com/h2market/h2trade/internal/pkg/validation"
)

// persistedUser is the document stored under ports.KeyIdentity.
type persistedUser struct {
	domain.UserRecord
	ProfileFresh bool `json:"profile_hydrated,omitempty"`
}

// SessionService holds the current identity and keeps durable storage in
// step with it. Network calls run outside the lock; state swaps are atomic.
type SessionService struct {
	storage   ports.SessionStorage
	auth      ports.AuthAPI
	profile   ports.ProfileAPI
	validator *validation.Validator
	log       zerolog.Logger
	now       func() time.Time

	mu      sync.RWMutex
	session domain.Session
}

// NewSessionService creates an empty store. Call Restore to load the
// persisted session.
func NewSessionService(storage ports.SessionStorage, auth ports.AuthAPI, profile ports.ProfileAPI, log zerolog.Logger) *SessionService {
	return &SessionService{
		storage:   storage,
		auth:      auth,
		profile:   profile,
		validator: validation.New(),
		log:       log,
		now:       time.Now,
	}
}

// Current returns a copy of the session.
func (s *SessionService) Current() domain.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.Clone()
}

// Credential returns the current credential or "".
func (s *SessionService) Credential() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.Credential
}

// Claims decodes the current credential without verifying it.
func (s *SessionService) Claims() (domain.CredentialClaims, bool) {
	token := s.Credential()
	if token == "" {
		return domain.CredentialClaims{}, false
	}
	return decodeClaims(token)
}

// Login authenticates and, on success, replaces the session and persists it.
// On failure the previous session is left untouched.
func (s *SessionService) Login(ctx context.Context, identifier, secret string) (domain.Session, error) {
	if strings.TrimSpace(identifier) == "" || secret == "" {
		return domain.Session{}, domain.NewError(domain.KindValidation, "Missing username/email or password", domain.ErrInvalidCredentials)
	}

	res, err := s.auth.Login(ctx, strings.TrimSpace(identifier), secret)
	if err != nil {
		s.log.Warn().Err(err).Str("identifier", identifier).Msg("login failed")
		return domain.Session{}, err
	}
	return s.establish(ctx, res, "login")
}

// Register creates the account and logs into it.
func (s *SessionService) Register(ctx context.Context, input ports.RegisterInput) (domain.Session, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.TrimSpace(input.Email)
	if err := s.validator.Validate(input); err != nil {
		return domain.Session{}, domain.NewError(domain.KindValidation, err.Error(), err)
	}

	res, err := s.auth.Register(ctx, input)
	if err != nil {
		s.log.Warn().Err(err).Str("username", input.Username).Msg("registration failed")
		return domain.Session{}, err
	}
	return s.establish(ctx, res, "register")
}

func (s *SessionService) establish(ctx context.Context, res *ports.AuthResult, transition string) (domain.Session, error) {
	if res == nil || res.AccessToken == "" || res.User == nil {
		return domain.Session{}, domain.NewError(domain.KindUnknown, "marketplace returned no credential", nil)
	}
	next := domain.Session{Credential: res.AccessToken, Identity: res.User}

	s.mu.Lock()
	if err := s.persist(ctx, next); err != nil {
		s.mu.Unlock()
		s.log.Error().Err(err).Str("transition", transition).Msg("could not persist session")
		return domain.Session{}, domain.NewError(domain.KindUnknown, "could not save the session", err)
	}
	s.session = next
	out := s.session.Clone()
	s.mu.Unlock()

	metrics.SessionTransitionsTotal.WithLabelValues(transition).Inc()
	s.log.Info().Int64("user_id", next.Identity.ID).Str("username", next.Identity.Username).Msg(transition + " succeeded")
	return out, nil
}

// Logout clears the session in memory and in storage. Safe to call when
// already logged out.
func (s *SessionService) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	wasAuthenticated := s.session.Authenticated()
	s.session = domain.Session{}
	if err := s.storage.Clear(ctx, ports.KeyCredential, ports.KeyIdentity); err != nil {
		s.log.Error().Err(err).Msg("could not clear persisted session")
		return fmt.Errorf("logout: %w", err)
	}
	if wasAuthenticated {
		metrics.SessionTransitionsTotal.WithLabelValues("logout").Inc()
		s.log.Info().Msg("logged out")
	}
	return nil
}

// ExpireOnUnauthorized logs out when err reports that the marketplace
// rejected the session credential, and reports whether it did. Failed logins
// and 403s do not qualify. It is the caller's policy hook; nothing in the
// request path calls it implicitly.
func (s *SessionService) ExpireOnUnauthorized(ctx context.Context, err error) bool {
	if !errors.Is(err, domain.ErrCredentialRejected) || !s.Current().Authenticated() {
		return false
	}
	if lerr := s.Logout(ctx); lerr != nil {
		s.log.Warn().Err(lerr).Msg("logout after rejected credential failed")
	}
	metrics.SessionTransitionsTotal.WithLabelValues("expired").Inc()
	return true
}

// Restore rebuilds the session from storage without contacting the
// marketplace. A half-written or undecodable session is discarded.
func (s *SessionService) Restore(ctx context.Context) (domain.Session, error) {
	token, hasToken, err := s.storage.Read(ctx, ports.KeyCredential)
	if err != nil {
		return domain.Session{}, fmt.Errorf("restore session: %w", err)
	}
	rawUser, hasUser, err := s.storage.Read(ctx, ports.KeyIdentity)
	if err != nil {
		return domain.Session{}, fmt.Errorf("restore session: %w", err)
	}

	var restored domain.Session
	switch {
	case !hasToken && !hasUser:
	case hasToken && hasUser && token != "":
		var pu persistedUser
		if err := json.Unmarshal([]byte(rawUser), &pu); err != nil {
			s.discardCorrupt(ctx, err)
			break
		}
		user := pu.UserRecord
		restored = domain.Session{Credential: token, Identity: &user, ProfileFresh: pu.ProfileFresh}
	default:
		s.discardCorrupt(ctx, domain.ErrSessionCorrupt)
	}

	s.mu.Lock()
	s.session = restored
	out := s.session.Clone()
	s.mu.Unlock()

	if restored.Authenticated() {
		metrics.SessionTransitionsTotal.WithLabelValues("restore").Inc()
		if claims, ok := decodeClaims(restored.Credential); ok && claims.Expired(s.now()) {
			s.log.Warn().Time("expired_at", claims.ExpiresAt).Msg("restored credential has expired; the marketplace will reject it")
		}
	}
	return out, nil
}

func (s *SessionService) discardCorrupt(ctx context.Context, cause error) {
	s.log.Warn().Err(cause).Msg("discarding corrupt persisted session")
	if err := s.storage.Clear(ctx, ports.KeyCredential, ports.KeyIdentity); err != nil {
		s.log.Error().Err(err).Msg("could not clear corrupt session")
	}
}

// RefreshProfile fetches the profile unless it was already fetched in this
// session and force is false. An Unauthorized failure is returned as-is;
// the session is not cleared.
func (s *SessionService) RefreshProfile(ctx context.Context, force bool) (*domain.UserRecord, error) {
	snapshot := s.Current()
	if !snapshot.Authenticated() {
		return nil, domain.NewError(domain.KindUnauthorized, "please log in", domain.ErrNotAuthenticated)
	}
	if snapshot.ProfileFresh && !force {
		return snapshot.Identity, nil
	}

	user, err := s.profile.Get(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("profile fetch failed")
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// A login or logout that completed during the fetch wins.
	if s.session.Credential != snapshot.Credential {
		s.log.Debug().Msg("session changed during profile fetch; result not cached")
		return user, nil
	}
	next := domain.Session{Credential: s.session.Credential, Identity: user, ProfileFresh: true}
	if err := s.writeIdentity(ctx, next); err != nil {
		s.log.Warn().Err(err).Msg("could not persist refreshed profile")
	}
	s.session = next
	out := *user
	return &out, nil
}

// persist writes both keys. If a write fails the previously stored values
// are put back so storage keeps matching the session still held in memory.
func (s *SessionService) persist(ctx context.Context, next domain.Session) error {
	prev, err := s.snapshot(ctx)
	if err != nil {
		return err
	}
	if err := s.storage.Write(ctx, ports.KeyCredential, next.Credential); err != nil {
		s.rollback(ctx, prev)
		return err
	}
	if err := s.writeIdentity(ctx, next); err != nil {
		s.rollback(ctx, prev)
		return err
	}
	return nil
}

type storedValue struct {
	value   string
	present bool
}

var sessionKeys = []string{ports.KeyCredential, ports.KeyIdentity}

func (s *SessionService) snapshot(ctx context.Context) (map[string]storedValue, error) {
	out := make(map[string]storedValue, len(sessionKeys))
	for _, key := range sessionKeys {
		v, ok, err := s.storage.Read(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", key, err)
		}
		out[key] = storedValue{value: v, present: ok}
	}
	return out, nil
}

func (s *SessionService) rollback(ctx context.Context, prev map[string]storedValue) {
	for _, key := range sessionKeys {
		v := prev[key]
		var err error
		if v.present {
			err = s.storage.Write(ctx, key, v.value)
		} else {
			err = s.storage.Clear(ctx, key)
		}
		if err != nil {
			s.log.Error().Err(err).Str("key", key).Msg("could not roll back partial session write")
		}
	}
}

func (s *SessionService) writeIdentity(ctx context.Context, next domain.Session) error {
	raw, err := json.Marshal(persistedUser{UserRecord: *next.Identity, ProfileFresh: next.ProfileFresh})
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	return s.storage.Write(ctx, ports.KeyIdentity, string(raw))
}
