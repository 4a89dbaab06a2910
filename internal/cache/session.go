package cache

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

const cookiesKey = "cookies"

// savedCookie is the JSON form of a cookie. The jar only hands back name
// and value for a URL, so that is all that is kept.
type savedCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type savedCookies struct {
	Cookies []savedCookie `json:"cookies"`
	SavedAt time.Time     `json:"saved_at"`
}

// GetSession returns the value stored under key, or "" if there is none.
func (d *DB) GetSession(key string) (string, error) {
	var value string
	err := d.db.QueryRow(`SELECT value FROM session WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading session %q: %w", key, err)
	}
	return value, nil
}

// PutSession stores value under key.
func (d *DB) PutSession(key, value string) error {
	_, err := d.db.Exec(`INSERT OR REPLACE INTO session (key, value, updated_at) VALUES (?, ?, ?)`,
		key, value, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("writing session %q: %w", key, err)
	}
	return nil
}

// DeleteSession removes key.
func (d *DB) DeleteSession(key string) error {
	if _, err := d.db.Exec(`DELETE FROM session WHERE key = ?`, key); err != nil {
		return fmt.Errorf("deleting session %q: %w", key, err)
	}
	return nil
}

// SaveCookies replaces the saved cookie set.
func (d *DB) SaveCookies(cookies []*http.Cookie) error {
	sc := make([]savedCookie, len(cookies))
	for i, c := range cookies {
		sc[i] = savedCookie{Name: c.Name, Value: c.Value}
	}
	data, err := json.Marshal(savedCookies{Cookies: sc, SavedAt: time.Now()})
	if err != nil {
		return err
	}
	return d.PutSession(cookiesKey, string(data))
}

// LoadCookies returns the saved cookie set, or nil if none was saved.
func (d *DB) LoadCookies() ([]*http.Cookie, error) {
	raw, err := d.GetSession(cookiesKey)
	if err != nil || raw == "" {
		return nil, err
	}
	var saved savedCookies
	if err := json.Unmarshal([]byte(raw), &saved); err != nil {
		return nil, fmt.Errorf("decoding saved cookies: %w", err)
	}
	cookies := make([]*http.Cookie, 0, len(saved.Cookies))
	for _, sc := range saved.Cookies {
		if sc.Name == "" {
			continue
		}
		cookies = append(cookies, &http.Cookie{Name: sc.Name, Value: sc.Value})
	}
	return cookies, nil
}

// ClearCookies deletes the saved cookie set.
func (d *DB) ClearCookies() error {
	return d.DeleteSession(cookiesKey)
}
