package render

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPlainText(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		width int
		want  string
	}{
		{"empty", "", 40, ""},
		{"plain", "The email has already been taken.", 0, "The email has already been taken."},
		{"entities", "The &quot;email&quot; field is required.", 0, `The "email" field is required.`},
		{"tags", "<strong>Too many</strong> attempts.<br>Try again in 60 seconds.", 0, "Too many attempts.\nTry again in 60 seconds."},
		{"link", `Please <a href="https://app.example.com/verify">verify</a> first.`, 0, "Please verify [https://app.example.com/verify] first."},
		{"wrap", "The password must be at least eight characters.", 20, "The password must be\nat least eight\ncharacters."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PlainText(tt.raw, tt.width))
		})
	}
}

func TestTimeAgo(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "just now", timeAgo(now.Add(-10*time.Second), now))
	assert.Equal(t, "1 minute ago", timeAgo(now.Add(-time.Minute), now))
	assert.Equal(t, "5 hours ago", timeAgo(now.Add(-5*time.Hour), now))
	assert.Equal(t, "3 days ago", timeAgo(now.Add(-72*time.Hour), now))
	assert.Equal(t, "2 months ago", timeAgo(now.Add(-61*24*time.Hour), now))
	assert.Equal(t, "2 years ago", timeAgo(now.Add(-800*24*time.Hour), now))
}
