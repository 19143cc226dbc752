package content

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderMarkdown(t *testing.T) {
	t.Parallel()
	out := RenderMarkdown("# Title\n\nSome **bold** text\n\n<script>alert(1)</script>")
	assert.Contains(t, out, "<h1")
	assert.Contains(t, out, "<strong>bold</strong>")
	assert.NotContains(t, out, "<script")
}

func TestRenderMarkdown_Links(t *testing.T) {
	t.Parallel()
	out := RenderMarkdown("[go](https://go.dev) [bad](javascript:alert(1))")
	assert.Contains(t, out, `href="https://go.dev"`)
	assert.Contains(t, out, `target="_blank"`)
	assert.NotContains(t, out, "javascript:")
}

func TestStripTags(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want string
	}{
		{"  plain  ", "plain"},
		{"<b>hi</b>", "hi"},
		{"<img src=x onerror=alert(1)>", ""},
		{"a & b", "a &amp; b"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StripTags(tt.in), tt.in)
	}
	assert.NotContains(t, StripTags("ok<script>alert(1)</script>"), "<script")
}

func TestExcerpt(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "short", Excerpt("short", 150))
	long := strings.Repeat("é", 151)
	got := Excerpt(long, 150)
	assert.Equal(t, strings.Repeat("é", 150)+"...", got)
	assert.Equal(t, strings.Repeat("a", 150), Excerpt(strings.Repeat("a", 150), 150))
}
