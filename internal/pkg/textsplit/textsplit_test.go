package textsplit

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecursiveSplit(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		size    int
		overlap int
		want    []string
	}{
		{name: "blank text", text: " \n\t \n", size: 10, overlap: 2, want: nil},
		{name: "fits in one chunk", text: "  short text  ", size: 100, overlap: 10, want: []string{"short text"}},
		{
			name:    "paragraphs merged",
			text:    "First paragraph.\n\nSecond paragraph.",
			size:    100,
			overlap: 10,
			want:    []string{"First paragraph.\n\nSecond paragraph."},
		},
		{
			name:    "words with overlap",
			text:    "aaa bbb ccc ddd",
			size:    7,
			overlap: 3,
			want:    []string{"aaa bbb", "bbb ccc", "ccc ddd"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewRecursive(tt.size, tt.overlap).Split(tt.text)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRecursiveSplitRespectsChunkSize(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 40; i++ {
		b.WriteString("Paragraph line with several words in it.\n")
		if i%5 == 4 {
			b.WriteString("\n")
		}
	}
	b.WriteString(strings.Repeat("x", 250))

	chunks := NewRecursive(120, 20).Split(b.String())
	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 120)
		assert.NotEmpty(t, strings.TrimSpace(c))
	}
}

func TestRecursiveSplitIsDeterministic(t *testing.T) {
	text := strings.Repeat("Gophers dig tunnels. ", 200)
	s := NewRecursive(200, 30)
	assert.Equal(t, s.Split(text), s.Split(text))
}

func TestWindowSplit(t *testing.T) {
	assert.Equal(t, []string{"abcd", "cdef", "efgh", "ghij"}, NewWindow(4, 2).Split("abcdefghij"))
	assert.Equal(t, []string{"héllo"}, NewWindow(10, 2).Split("héllo"))
	assert.Empty(t, NewWindow(4, 1).Split("   "))
}
