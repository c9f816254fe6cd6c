package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTMLToText(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		width int
		want  string
	}{
		{"empty", "", 80, ""},
		{"plain", "hello world", 80, "hello world"},
		{"entities", "Tom &amp; Jerry", 80, "Tom & Jerry"},
		{"paragraphs", "<p>one</p><p>two</p>", 80, "one\n\ntwo"},
		{"link", `see <a href="https://x.io/a">docs</a>`, 80, "see docs [https://x.io/a]"},
		{"link equal to text", `<a href="https://x.io">https://x.io</a>`, 80, "https://x.io"},
		{
			"error page",
			"<html><head><title>502</title><style>b{}</style></head><body><h1>Bad Gateway</h1><p>upstream down</p></body></html>",
			80,
			"Bad Gateway\n\nupstream down",
		},
		{"wrap", "aaa bbb ccc", 7, "aaa bbb\nccc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTMLToText(tt.in, tt.width))
		})
	}
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "502 Bad Gateway", Title("<html><head><title> 502  Bad Gateway </title></head></html>"))
	assert.Equal(t, "", Title("<p>no title</p>"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "abcd…", Truncate("abcdefgh", 5))
	assert.Equal(t, "héll…", Truncate("héllo wörld", 5))
}

func TestLooksLikeHTML(t *testing.T) {
	assert.True(t, LooksLikeHTML("<p>hello</p>"))
	assert.True(t, LooksLikeHTML("  <div><b>x</b></div>"))
	assert.True(t, LooksLikeHTML("<b>bold</b><br>next"))

	assert.False(t, LooksLikeHTML(""))
	assert.False(t, LooksLikeHTML("x<y"))
	assert.False(t, LooksLikeHTML("I like a<b>c and Tom &amp; Jerry"))
	assert.False(t, LooksLikeHTML("<b>bold only</b>"))
	assert.False(t, LooksLikeHTML("<3 cats"))
}

func TestWrap(t *testing.T) {
	assert.Equal(t, "a<b>c\n&amp; d", Wrap("a<b>c &amp; d", 10))
	assert.Equal(t, "one\ntwo", Wrap("one\ntwo", 80))
	assert.Equal(t, "as is", Wrap("as is", 0))
}
