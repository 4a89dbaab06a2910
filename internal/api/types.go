package api

import (
	"encoding/json"
	"time"
)

// Credentials is the login form payload.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Remember bool   `json:"remember,omitempty"`
}

// NewUser is the registration form payload.
type NewUser struct {
	Name                 string `json:"name"`
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
}

// User is the authenticated user as returned by the API. The payload is
// application defined; the common fields are decoded and the full body is
// kept in Raw.
type User struct {
	ID              int64      `json:"id"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	EmailVerifiedAt *time.Time `json:"email_verified_at"`
	CreatedAt       *time.Time `json:"created_at"`

	Raw json.RawMessage `json:"-"`
}

// UnmarshalJSON decodes the known fields and keeps a copy of the payload.
func (u *User) UnmarshalJSON(data []byte) error {
	type plain User
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*u = User(p)
	u.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// Field returns a top-level payload field that User does not decode.
func (u *User) Field(name string) (json.RawMessage, bool) {
	if u == nil || len(u.Raw) == 0 {
		return nil, false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(u.Raw, &fields); err != nil {
		return nil, false
	}
	v, ok := fields[name]
	return v, ok
}

// errorBody is the JSON error envelope: {"message": "...", "errors": {...}}.
// Field values are either a string or a list of strings.
type errorBody struct {
	Message string                     `json:"message"`
	Errors  map[string]json.RawMessage `json:"errors"`
}

func (b errorBody) fields() map[string]string {
	if len(b.Errors) == 0 {
		return nil
	}
	out := make(map[string]string, len(b.Errors))
	for name, raw := range b.Errors {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			out[name] = s
			continue
		}
		var list []string
		if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
			out[name] = list[0]
			continue
		}
		out[name] = ""
	}
	return out
}
