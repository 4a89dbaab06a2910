package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/fragmede/keyhole/internal/api"
)

var errNoUser = errors.New("current user response had no user")

// AuthClient is the remote API the store drives.
type AuthClient interface {
	CSRFCookie(ctx context.Context) error
	Login(ctx context.Context, creds api.Credentials) error
	Register(ctx context.Context, u api.NewUser) error
	Logout(ctx context.Context) error
	CurrentUser(ctx context.Context) (*api.User, error)
}

// LoginErrors holds the field errors of the last login attempt.
type LoginErrors struct {
	Email    string
	Password string
}

// Empty reports whether no field has an error.
func (e LoginErrors) Empty() bool {
	return e == LoginErrors{}
}

// RegisterErrors holds the field errors of the last registration attempt.
type RegisterErrors struct {
	Name                 string
	Email                string
	Password             string
	PasswordConfirmation string
}

// Empty reports whether no field has an error.
func (e RegisterErrors) Empty() bool {
	return e == RegisterErrors{}
}

// EndReason says why the session is absent.
type EndReason int

const (
	// EndNone is the state before any session existed, and while one does.
	EndNone EndReason = iota
	// EndLogout means Logout cleared the session.
	EndLogout
	// EndRejected means the server answered 401 or 419.
	EndRejected
	// EndUnreachable means a fetch failed without a verdict from the
	// server. The server-side session may still be valid.
	EndUnreachable
)

// Snapshot is a copy of the store state handed to observers.
type Snapshot struct {
	User           *api.User
	LoggedIn       bool
	End            EndReason
	LoginErrors    LoginErrors
	RegisterErrors RegisterErrors
}

// FetchStatus is the outcome of FetchUser.
type FetchStatus int

const (
	// FetchOK means the session is valid and User is set.
	FetchOK FetchStatus = iota
	// FetchNotAuthenticated means the server rejected the session.
	FetchNotAuthenticated
	// FetchFailed means the server could not be reached or answered with
	// an unexpected status.
	FetchFailed
)

func (s FetchStatus) String() string {
	switch s {
	case FetchOK:
		return "ok"
	case FetchNotAuthenticated:
		return "not authenticated"
	case FetchFailed:
		return "failed"
	}
	return fmt.Sprintf("FetchStatus(%d)", int(s))
}

// FetchResult describes what FetchUser found. Err is set for
// FetchNotAuthenticated and FetchFailed.
type FetchResult struct {
	Status FetchStatus
	User   *api.User
	Err    error
}

// Store holds the client-side session: the current user and the field
// errors of the login and registration forms. It is safe for concurrent
// use; operations are not ordered against each other and the last write
// wins.
type Store struct {
	client AuthClient
	log    *slog.Logger
	fetch  singleflight.Group

	mu             sync.Mutex
	user           *api.User
	end            EndReason
	loginErrors    LoginErrors
	registerErrors RegisterErrors
	observers      map[int]func(Snapshot)
	nextObserver   int

	// gen counts session writes that outrank fetches already in flight.
	gen uint64
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for operation outcomes.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// NewStore creates a logged-out store backed by client.
func NewStore(client AuthClient, opts ...Option) *Store {
	s := &Store{
		client:    client,
		log:       slog.New(slog.DiscardHandler),
		observers: make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// User returns the current user, or nil when logged out.
func (s *Store) User() *api.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// IsLoggedIn reports whether a user is present.
func (s *Store) IsLoggedIn() bool {
	return s.User() != nil
}

// LoginErrors returns the field errors of the last login attempt.
func (s *Store) LoginErrors() LoginErrors {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loginErrors
}

// RegisterErrors returns the field errors of the last registration attempt.
func (s *Store) RegisterErrors() RegisterErrors {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registerErrors
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe registers fn to be called with a snapshot after every state
// change. Calls happen on the goroutine that made the change, after the
// store lock is released. The returned func removes the observer.
func (s *Store) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextObserver
	s.nextObserver++
	s.observers[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.observers, id)
			s.mu.Unlock()
		})
	}
}

// FetchUser asks the API for the current user. The session is set on
// success and cleared on any failure; the failure is reported in the
// result, never as an error. Concurrent calls share one request, which is
// not cancelled when one caller's ctx is: a caller that gives up gets a
// FetchFailed result carrying ctx.Err() and the store is left to the
// shared request.
//
// A Login or Logout that completes while the request is in flight wins;
// the late answer is dropped and the result describes the store as it is.
func (s *Store) FetchUser(ctx context.Context) FetchResult {
	ch := s.fetch.DoChan("user", func() (interface{}, error) {
		return s.fetchUser(context.WithoutCancel(ctx)), nil
	})
	select {
	case r := <-ch:
		return r.Val.(FetchResult)
	case <-ctx.Done():
		return FetchResult{Status: FetchFailed, Err: ctx.Err()}
	}
}

func (s *Store) fetchUser(ctx context.Context) FetchResult {
	s.mu.Lock()
	gen := s.gen
	s.mu.Unlock()

	u, err := s.client.CurrentUser(ctx)
	if err == nil && u == nil {
		err = errNoUser
	}
	res := FetchResult{Status: FetchOK, User: u}
	end := EndNone
	if err != nil {
		res = FetchResult{Status: FetchFailed, Err: err}
		end = EndUnreachable
		if api.Classify(err) == api.KindUnauthenticated {
			res.Status = FetchNotAuthenticated
			end = EndRejected
		}
	}

	if !s.applyFetch(gen, res.User, end) {
		s.log.Debug("dropping superseded user fetch", "status", res.Status)
		return s.currentResult()
	}
	switch res.Status {
	case FetchOK:
		s.log.Debug("session active", "user_id", u.ID)
	case FetchNotAuthenticated:
		s.log.Debug("no active session", "error", err)
	default:
		s.log.Warn("fetching current user failed", "error", err)
	}
	return res
}

// applyFetch stores the outcome of a fetch started at gen unless a later
// session write happened meanwhile.
func (s *Store) applyFetch(gen uint64, u *api.User, end EndReason) bool {
	applied := false
	s.update(func() bool {
		if s.gen != gen {
			return false
		}
		applied = true
		changed := s.user != u || s.end != end
		s.user = u
		s.end = end
		return changed
	})
	return applied
}

func (s *Store) currentResult() FetchResult {
	if u := s.User(); u != nil {
		return FetchResult{Status: FetchOK, User: u}
	}
	return FetchResult{Status: FetchNotAuthenticated}
}

// Login requests a CSRF cookie, authenticates, and refreshes the session.
// A 422 response fills LoginErrors and returns nil. Other failures are
// returned; api.Classify tells them apart.
func (s *Store) Login(ctx context.Context, creds api.Credentials) error {
	s.update(func() bool {
		changed := !s.loginErrors.Empty()
		s.loginErrors = LoginErrors{}
		return changed
	})

	if err := s.client.CSRFCookie(ctx); err != nil {
		return fmt.Errorf("requesting csrf cookie: %w", err)
	}

	if err := s.client.Login(ctx, creds); err != nil {
		if se, ok := api.ValidationError(err); ok {
			s.log.Debug("login rejected", "fields", len(se.Fields))
			s.update(func() bool {
				s.loginErrors = LoginErrors{
					Email:    se.Field("email"),
					Password: se.Field("password"),
				}
				return true
			})
			return nil
		}
		s.log.Warn("login failed", "kind", api.Classify(err), "error", err)
		return fmt.Errorf("logging in: %w", err)
	}

	// Fetches sent before the session cookie existed must not land after
	// this one, so it bypasses the shared request.
	s.mu.Lock()
	s.gen++
	s.mu.Unlock()
	if res := s.fetchUser(ctx); res.Status != FetchOK {
		s.log.Warn("logged in but session not confirmed", "status", res.Status)
	}
	return nil
}

// Register requests a CSRF cookie, creates the account, and logs in with
// the new credentials. A 422 response fills RegisterErrors and returns nil.
func (s *Store) Register(ctx context.Context, u api.NewUser) error {
	s.update(func() bool {
		changed := !s.registerErrors.Empty()
		s.registerErrors = RegisterErrors{}
		return changed
	})

	if err := s.client.CSRFCookie(ctx); err != nil {
		return fmt.Errorf("requesting csrf cookie: %w", err)
	}

	if err := s.client.Register(ctx, u); err != nil {
		if se, ok := api.ValidationError(err); ok {
			s.log.Debug("registration rejected", "fields", len(se.Fields))
			s.update(func() bool {
				s.registerErrors = RegisterErrors{
					Name:                 se.Field("name"),
					Email:                se.Field("email"),
					Password:             se.Field("password"),
					PasswordConfirmation: se.Field("password_confirmation"),
				}
				return true
			})
			return nil
		}
		s.log.Warn("registration failed", "kind", api.Classify(err), "error", err)
		return fmt.Errorf("registering: %w", err)
	}

	return s.Login(ctx, api.Credentials{Email: u.Email, Password: u.Password})
}

// Logout ends the server session and clears the local one. The local
// session is cleared even when the API call fails; that failure is still
// returned.
func (s *Store) Logout(ctx context.Context) error {
	err := s.client.Logout(ctx)
	s.update(func() bool {
		s.gen++
		changed := s.user != nil || s.end != EndLogout
		s.user = nil
		s.end = EndLogout
		return changed
	})
	if err != nil {
		s.log.Warn("logout request failed", "kind", api.Classify(err), "error", err)
		return fmt.Errorf("logging out: %w", err)
	}
	return nil
}

// update applies fn under the lock and, if fn reports a change, notifies
// observers after unlocking.
func (s *Store) update(fn func() bool) {
	s.mu.Lock()
	if !fn() {
		s.mu.Unlock()
		return
	}
	snap := s.snapshotLocked()
	observers := make([]func(Snapshot), 0, len(s.observers))
	for _, o := range s.observers {
		observers = append(observers, o)
	}
	s.mu.Unlock()

	for _, o := range observers {
		o(snap)
	}
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		User:           s.user,
		LoggedIn:       s.user != nil,
		End:            s.end,
		LoginErrors:    s.loginErrors,
		RegisterErrors: s.registerErrors,
	}
}
