package messages

import (
	"errors"
	"fmt"

	"github.com/fragmede/keyhole/internal/api"
	"github.com/fragmede/keyhole/internal/auth"
)

// View transition messages.
type (
	OpenLoginMsg    struct{}
	OpenRegisterMsg struct{}
	GoBackMsg       struct{}
)

// Data messages.
type (
	// SessionChangedMsg carries a store snapshot into the program.
	SessionChangedMsg struct {
		Snapshot auth.Snapshot
	}

	LoginResultMsg struct {
		Err error
	}

	RegisterResultMsg struct {
		Err error
	}

	LogoutResultMsg struct {
		Err error
	}

	// FetchResultMsg reports a session restore or refresh.
	FetchResultMsg struct {
		Result auth.FetchResult
		Err    error
	}

	StatusMsg struct {
		Text    string
		IsError bool
	}
)

// ErrorText turns an error returned by a store operation into a short
// line for the user.
func ErrorText(err error) string {
	if err == nil {
		return ""
	}
	var se *api.StatusError
	switch api.Classify(err) {
	case api.KindUnauthenticated:
		return "Session expired, please try again"
	case api.KindTransport:
		return "Cannot reach the server"
	case api.KindValidation:
		if errors.As(err, &se) && se.Message != "" {
			return "Please check the form: " + se.Message
		}
		return "Please check the form"
	case api.KindServer:
		if errors.As(err, &se) && se.Message != "" {
			return fmt.Sprintf("Server error (HTTP %d): %s", se.Code, se.Message)
		}
		if errors.As(err, &se) {
			return fmt.Sprintf("Server error (HTTP %d)", se.Code)
		}
	}
	return err.Error()
}
