package cadastral

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeFragment(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"json string", `"<table>\r\n\t<tr><td class=\"key\">A</td></tr></table>"`, `<table><tr><td class="key">A</td></tr></table>`},
		{"raw html", "<table>\n<tr></tr>\n</table>", "<table><tr></tr></table>"},
		{"blank", "  \n", ""},
		{"empty json string", `""`, ""},
		{"invalid escape", `"C:\Temp\x"`, `C:\Temp\x`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeFragment([]byte(tt.body))
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeFragmentMalformedJSON(t *testing.T) {
	_, err := DecodeFragment([]byte(`"unterminated`))
	require.Error(t, err)
}

func TestRepairEscapes(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`"a\"b"`, `"a\"b"`},
		{`"a\\b"`, `"a\\b"`},
		{`"\u00e9\n"`, `"\u00e9\n"`},
		{`"a\qb"`, `"a\\qb"`},
		{`"trailing\`, `"trailing\\`},
		{`"\\\d"`, `"\\\\d"`},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, string(RepairEscapes([]byte(tt.in))), tt.in)
	}
}
