package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJSString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"plain", `'plain'`},
		{"O'Brien's guide", `'O\'Brien\'s guide'`},
		{`back\slash`, `'back\\slash'`},
		{"two\nlines\r", `'two\nlines\r'`},
		{"tab\there", `'tab\x09here'`},
		{"bell\a", `'bell\x07'`},
		{"sep\u2028", `'sep\u2028'`},
		{"émoji 🎉", "'émoji 🎉'"},
		{"", `''`},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, jsString(tc.in), tc.in)
	}
}

func TestInjectionScript(t *testing.T) {
	t.Parallel()

	got := InjectionScript("O'Brien's guide", "It's \"quoted\"")
	assert.Equal(t, "setText('O\\'Brien\\'s guide', 'It\\'s \"quoted\"');\nfitText();", got)
}
