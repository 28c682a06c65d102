package actions

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHappyFamily(t *testing.T) {
	tests := []struct {
		path string
		want string
		ok   bool
	}{
		{"/home/me/src/main.rs", "src/main.rs", true},
		{"main.rs", "main.rs", true},
		{"/main.rs", "/main.rs", true},
		{"a/b/", "a/b", true},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := happyFamily(tt.path)
		assert.Equal(t, tt.ok, ok, tt.path)
		assert.Equal(t, tt.want, got, tt.path)
	}
}

func TestRegisterText(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		search bool
		want   string
		ok     bool
	}{
		{"single line", "  hello  ", false, "hello", true},
		{"trailing newline only", "hello\n", false, "hello", true},
		{"multi line", "first\nsecond", false, "first⏎", true},
		{"leading blanks", "\n   \n  body\n", false, "body⏎", true},
		{"blank", " \n\t\n", false, "", false},
		{"search anchors", `\bword\b`, true, "word", true},
		{"anchors kept outside search", `\bword\b`, false, `\bword\b`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := registerText(tt.text, "⏎", tt.search)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 50))
	assert.Equal(t, "ün", truncate("ünïcödé", 2))
}
