package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
)

const lastEmailKey = "last_email"

// CookieJar exposes the cookies a client sends to the API.
type CookieJar interface {
	Cookies() []*http.Cookie
	SetCookies(cookies []*http.Cookie)
}

// SessionStorage persists session cookies and small session values.
type SessionStorage interface {
	SaveCookies(cookies []*http.Cookie) error
	LoadCookies() ([]*http.Cookie, error)
	ClearCookies() error
	GetSession(key string) (string, error)
	PutSession(key, value string) error
}

// Keeper persists the session cookies of a Store across runs. It saves them
// when a user becomes present and deletes them when the user logs out or
// the server rejects them.
type Keeper struct {
	store *Store
	jar   CookieJar
	db    SessionStorage
	log   *slog.Logger

	mu          sync.Mutex
	loggedIn    bool
	unsubscribe func()
}

// NewKeeper starts watching store. Call Close to stop.
func NewKeeper(store *Store, jar CookieJar, db SessionStorage, logger *slog.Logger) *Keeper {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	k := &Keeper{store: store, jar: jar, db: db, log: logger}
	k.unsubscribe = store.Subscribe(k.observe)
	return k
}

// Restore loads saved cookies into the jar and validates them with
// FetchUser. Cookies the server no longer accepts are deleted; they are
// kept when the server could not be reached.
func (k *Keeper) Restore(ctx context.Context) (FetchResult, error) {
	cookies, err := k.db.LoadCookies()
	if err != nil {
		return FetchResult{Status: FetchFailed, Err: err}, fmt.Errorf("loading session: %w", err)
	}
	if len(cookies) == 0 {
		return FetchResult{Status: FetchNotAuthenticated}, nil
	}
	k.jar.SetCookies(cookies)

	res := k.store.FetchUser(ctx)
	if res.Status == FetchNotAuthenticated {
		k.log.Info("saved session expired")
		if err := k.db.ClearCookies(); err != nil {
			return res, fmt.Errorf("clearing stale session: %w", err)
		}
	}
	return res, nil
}

// LastEmail returns the e-mail of the last user that logged in here.
func (k *Keeper) LastEmail() string {
	v, err := k.db.GetSession(lastEmailKey)
	if err != nil {
		k.log.Warn("reading last email", "error", err)
		return ""
	}
	return v
}

// Close stops watching the store and saves the current cookies if a user
// is logged in, so a rotated session cookie survives the restart.
func (k *Keeper) Close() error {
	k.unsubscribe()
	if !k.store.IsLoggedIn() {
		return nil
	}
	return k.db.SaveCookies(k.jar.Cookies())
}

func (k *Keeper) observe(snap Snapshot) {
	k.mu.Lock()
	defer k.mu.Unlock()

	switch {
	case snap.LoggedIn && !k.loggedIn:
		if err := k.db.SaveCookies(k.jar.Cookies()); err != nil {
			k.log.Warn("saving session", "error", err)
		}
		if snap.User.Email != "" {
			if err := k.db.PutSession(lastEmailKey, snap.User.Email); err != nil {
				k.log.Warn("saving last email", "error", err)
			}
		}
	case !snap.LoggedIn && k.loggedIn:
		if snap.End == EndUnreachable {
			// The server may still honour the cookies; Restore decides next run.
			k.log.Info("session check failed, keeping saved session")
			if err := k.db.SaveCookies(k.jar.Cookies()); err != nil {
				k.log.Warn("saving session", "error", err)
			}
			break
		}
		if err := k.db.ClearCookies(); err != nil {
			k.log.Warn("clearing session", "error", err)
		}
	}
	k.loggedIn = snap.LoggedIn
}
