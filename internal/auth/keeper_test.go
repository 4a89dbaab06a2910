package auth

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fragmede/keyhole/internal/api"
	"github.com/fragmede/keyhole/internal/cache"
)

type memJar struct {
	cookies []*http.Cookie
}

func (j *memJar) Cookies() []*http.Cookie         { return j.cookies }
func (j *memJar) SetCookies(cookies []*http.Cookie) { j.cookies = cookies }

func openDB(t *testing.T) *cache.DB {
	t.Helper()
	db, err := cache.Open(filepath.Join(t.TempDir(), "keyhole.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func sessionCookies() []*http.Cookie {
	return []*http.Cookie{
		{Name: "XSRF-TOKEN", Value: "tok"},
		{Name: "app_session", Value: "s1"},
	}
}

func TestKeeper_SavesOnLoginAndClearsOnLogout(t *testing.T) {
	db := openDB(t)
	jar := &memJar{cookies: sessionCookies()}
	store := NewStore(&fakeClient{user: ada})
	k := NewKeeper(store, jar, db, nil)
	defer k.Close()
	ctx := context.Background()

	require.NoError(t, store.Login(ctx, api.Credentials{Email: "ada@example.com"}))

	saved, err := db.LoadCookies()
	require.NoError(t, err)
	require.Len(t, saved, 2)
	assert.Equal(t, "app_session", saved[1].Name)
	assert.Equal(t, "ada@example.com", k.LastEmail())

	require.NoError(t, store.Logout(ctx))
	saved, err = db.LoadCookies()
	require.NoError(t, err)
	assert.Empty(t, saved)
	assert.Equal(t, "ada@example.com", k.LastEmail(), "the e-mail outlives the session")
}

func TestKeeper_RestoreValidSession(t *testing.T) {
	db := openDB(t)
	require.NoError(t, db.SaveCookies(sessionCookies()))

	jar := &memJar{}
	store := NewStore(&fakeClient{user: ada})
	k := NewKeeper(store, jar, db, nil)
	defer k.Close()

	res, err := k.Restore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, FetchOK, res.Status)
	assert.Same(t, ada, store.User())
	require.Len(t, jar.cookies, 2)
	assert.Equal(t, "s1", jar.cookies[1].Value)
}

func TestKeeper_RestoreExpiredSession(t *testing.T) {
	db := openDB(t)
	require.NoError(t, db.SaveCookies(sessionCookies()))

	store := NewStore(&fakeClient{userErr: &api.StatusError{Code: http.StatusUnauthorized}})
	k := NewKeeper(store, &memJar{}, db, nil)
	defer k.Close()

	res, err := k.Restore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, FetchNotAuthenticated, res.Status)
	assert.False(t, store.IsLoggedIn())

	saved, err := db.LoadCookies()
	require.NoError(t, err)
	assert.Empty(t, saved, "stale cookies are dropped")
}

func TestKeeper_RestoreOfflineKeepsCookies(t *testing.T) {
	db := openDB(t)
	require.NoError(t, db.SaveCookies(sessionCookies()))

	store := NewStore(&fakeClient{userErr: errors.New("no route to host")})
	k := NewKeeper(store, &memJar{}, db, nil)
	defer k.Close()

	res, err := k.Restore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, FetchFailed, res.Status)
	assert.False(t, store.IsLoggedIn())

	saved, err := db.LoadCookies()
	require.NoError(t, err)
	assert.Len(t, saved, 2)
}

func TestKeeper_RestoreWithoutSavedSession(t *testing.T) {
	fc := &fakeClient{user: ada}
	store := NewStore(fc)
	k := NewKeeper(store, &memJar{}, openDB(t), nil)
	defer k.Close()

	res, err := k.Restore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, FetchNotAuthenticated, res.Status)
	assert.Empty(t, fc.Calls(), "no request without saved cookies")
}

func TestKeeper_CloseSavesRotatedCookies(t *testing.T) {
	db := openDB(t)
	jar := &memJar{cookies: sessionCookies()}
	store := NewStore(&fakeClient{user: ada})
	k := NewKeeper(store, jar, db, nil)
	store.FetchUser(context.Background())

	jar.cookies = []*http.Cookie{{Name: "app_session", Value: "s2"}}
	require.NoError(t, k.Close())

	saved, err := db.LoadCookies()
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, "s2", saved[0].Value)
}

func TestKeeper_KeepsSessionWhenServerUnreachable(t *testing.T) {
	db := openDB(t)
	jar := &memJar{cookies: sessionCookies()}
	fc := &fakeClient{user: ada}
	store := NewStore(fc)
	k := NewKeeper(store, jar, db, nil)
	ctx := context.Background()

	require.Equal(t, FetchOK, store.FetchUser(ctx).Status)

	fc.userErr = errors.New("dial tcp: connection refused")
	require.Equal(t, FetchFailed, store.FetchUser(ctx).Status)
	require.False(t, store.IsLoggedIn())
	require.NoError(t, k.Close())

	saved, err := db.LoadCookies()
	require.NoError(t, err)
	assert.Len(t, saved, 2, "the next run gets to try these cookies again")
}

func TestKeeper_ClearsSessionRejectedByServer(t *testing.T) {
	db := openDB(t)
	jar := &memJar{cookies: sessionCookies()}
	fc := &fakeClient{user: ada}
	store := NewStore(fc)
	k := NewKeeper(store, jar, db, nil)
	defer k.Close()
	ctx := context.Background()

	require.Equal(t, FetchOK, store.FetchUser(ctx).Status)
	saved, err := db.LoadCookies()
	require.NoError(t, err)
	require.Len(t, saved, 2)

	fc.userErr = &api.StatusError{Code: http.StatusUnauthorized}
	require.Equal(t, FetchNotAuthenticated, store.FetchUser(ctx).Status)

	saved, err = db.LoadCookies()
	require.NoError(t, err)
	assert.Empty(t, saved)
}
