package terminal

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		in   string
		want string
		size int
	}{
		{"a", "a", 1},
		{"A", "A", 1},
		{",", ",", 1},
		{"\x1b", "<esc>", 1},
		{"\x1b[A", "<up>", 3},
		{"\x1b[D", "<left>", 3},
		{"\x1bx", "<esc>", 1},
		{"\t", "<tab>", 1},
		{"\r", "<ret>", 1},
		{"\x7f", "<backspace>", 1},
		{"\x08", "<backspace>", 1},
		{" ", "<space>", 1},
		{"\x04", "<C-d>", 1},
		{"\x01", "<C-a>", 1},
		{"é", "é", 2},
		{"日本", "日", 3},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got, size := Decode([]byte(tt.in))
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.size, size)
		})
	}
}

func TestDecode_PartialRune(t *testing.T) {
	_, size := Decode([]byte("日")[:2])
	assert.Zero(t, size)

	_, size = Decode(nil)
	assert.Zero(t, size)
}

func TestKeys_NextKey(t *testing.T) {
	k := NewKeys(strings.NewReader("a\t\x04\x1b"))
	ctx := context.Background()

	var got []string
	for {
		key, err := k.NextKey(ctx)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		got = append(got, key)
	}
	assert.Equal(t, []string{"a", "<tab>", "<C-d>", "<esc>"}, got)
	assert.NoError(t, k.Close())
}

func TestKeys_RuneSplitAcrossReads(t *testing.T) {
	r, w := io.Pipe()
	k := NewKeys(r)

	go func() {
		b := []byte("é")
		w.Write(b[:1])
		time.Sleep(10 * time.Millisecond)
		w.Write(b[1:])
		w.Close()
	}()

	key, err := k.NextKey(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "é", key)
}

func TestKeys_ContextCancel(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()
	k := NewKeys(r)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := k.NextKey(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
