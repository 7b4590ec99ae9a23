package handler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"storefront/internal/kyc/dashboard"
	"storefront/internal/kyc/form"
	"storefront/internal/kyc/repository"
)

const defaultIdleTTL = 30 * time.Minute

// session is one user's workflow state. Handlers hold mu for the whole
// request, so each user's calls run one at a time.
type session struct {
	mu       sync.Mutex
	repo     *repository.Repository
	dash     *dashboard.Dashboard
	form     *form.Controller
	lastSeen time.Time
}

// closeForm unmounts the current form, if any. Caller holds mu.
func (s *session) closeForm() {
	if s.form != nil {
		s.form.Close()
		s.form = nil
	}
}

// Sessions owns the per-user sessions of the storefront.
type Sessions struct {
	authority repository.Authority
	catalog   dashboard.CatalogLoader
	logger    *slog.Logger
	idleTTL   time.Duration
	dashOpts  []dashboard.Option

	mu     sync.Mutex
	byUser map[string]*session
}

// SessionsOption configures Sessions.
type SessionsOption func(*Sessions)

func WithIdleTTL(ttl time.Duration) SessionsOption {
	return func(s *Sessions) {
		if ttl > 0 {
			s.idleTTL = ttl
		}
	}
}

func WithSessionLogger(logger *slog.Logger) SessionsOption {
	return func(s *Sessions) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithDashboardOptions passes options to every dashboard a session builds.
func WithDashboardOptions(opts ...dashboard.Option) SessionsOption {
	return func(s *Sessions) {
		s.dashOpts = append(s.dashOpts, opts...)
	}
}

func NewSessions(authority repository.Authority, catalog dashboard.CatalogLoader, opts ...SessionsOption) *Sessions {
	s := &Sessions{
		authority: authority,
		catalog:   catalog,
		logger:    slog.Default(),
		idleTTL:   defaultIdleTTL,
		byUser:    make(map[string]*session),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// acquire returns the user's session, locked and bound to token. The caller
// must unlock it.
func (s *Sessions) acquire(userID, token string, now time.Time) *session {
	s.mu.Lock()
	sess, ok := s.byUser[userID]
	if !ok {
		repo := repository.New(s.authority, token, repository.WithLogger(s.logger))
		opts := append([]dashboard.Option{dashboard.WithLogger(s.logger)}, s.dashOpts...)
		sess = &session{
			repo: repo,
			dash: dashboard.New(s.catalog, repo, token, opts...),
		}
		s.byUser[userID] = sess
	}
	sess.lastSeen = now
	s.mu.Unlock()

	sess.mu.Lock()
	sess.dash.SetToken(token)
	return sess
}

// Len reports the number of live sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byUser)
}

// RemoveIdleAt closes and drops sessions not used since now minus the idle TTL.
// Exported for testability; StartCleanup passes wall-clock time.
func (s *Sessions) RemoveIdleAt(now time.Time) int {
	s.mu.Lock()
	var idle []*session
	for userID, sess := range s.byUser {
		if now.Sub(sess.lastSeen) >= s.idleTTL {
			idle = append(idle, sess)
			delete(s.byUser, userID)
		}
	}
	s.mu.Unlock()

	for _, sess := range idle {
		sess.mu.Lock()
		sess.closeForm()
		sess.dash.Close()
		sess.mu.Unlock()
	}
	return len(idle)
}

// StartCleanup evicts idle sessions periodically until ctx is cancelled.
func (s *Sessions) StartCleanup(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := s.RemoveIdleAt(time.Now()); n > 0 {
				s.logger.InfoContext(ctx, "evicted idle kyc sessions", "count", n)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close closes every session.
func (s *Sessions) Close() {
	s.mu.Lock()
	all := s.byUser
	s.byUser = make(map[string]*session)
	s.mu.Unlock()

	for _, sess := range all {
		sess.mu.Lock()
		sess.closeForm()
		sess.dash.Close()
		sess.mu.Unlock()
	}
}
