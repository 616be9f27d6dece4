package corpus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseListLiteral(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"single quotes", `['winter squash', 'mexican seasoning']`, []string{"winter squash", "mexican seasoning"}},
		{"mixed quotes", `["baker's chocolate", 'salt']`, []string{"baker's chocolate", "salt"}},
		{"escapes", `['it\'s', "say \"hi\"", 'a\\b', 'tab\there']`, []string{"it's", `say "hi"`, `a\b`, "tab\there"}},
		{"hex and unicode", `['caf\xe9', 'jalapeño']`, []string{"café", "jalapeño"}},
		{"unicode passthrough", `['crème fraîche']`, []string{"crème fraîche"}},
		{"trailing comma", `['a', 'b',]`, []string{"a", "b"}},
		{"whitespace", "  [ 'a' ,\n 'b' ]  ", []string{"a", "b"}},
		{"empty", `[]`, []string{}},
		{"unknown escape kept", `['a\qb']`, []string{`a\qb`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseListLiteral(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseListLiteralRejectsMalformed(t *testing.T) {
	for _, in := range []string{
		``,
		`'a'`,
		`['a'`,
		`['a' 'b']`,
		`['a', b]`,
		`[__import__('os').system('ls')]`,
		`['unterminated]`,
		`['a'] extra`,
		`['\x4']`,
		`[,]`,
	} {
		_, err := ParseListLiteral(in)
		assert.Error(t, err, in)
	}
}
