package cadastral

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

var controlChars = strings.NewReplacer("\r", "", "\n", "", "\t", "")

// DecodeFragment turns a raw fragment response body into HTML. Bodies that
// are JSON string literals are unquoted first; carriage returns, newlines
// and tabs are stripped either way.
func DecodeFragment(body []byte) (string, error) {
	trimmed := bytes.TrimSpace(body)
	text := string(trimmed)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var decoded string
		if err := json.Unmarshal(RepairEscapes(trimmed), &decoded); err != nil {
			return "", fmt.Errorf("cadastral: decode fragment: %w", err)
		}
		text = decoded
	}
	return controlChars.Replace(text), nil
}

// RepairEscapes doubles every backslash in a JSON document that does not
// begin a valid escape sequence. The subdivision search endpoint emits
// Windows paths and stray backslashes inside its string payload.
func RepairEscapes(data []byte) []byte {
	out := make([]byte, 0, len(data)+8)
	for i := 0; i < len(data); i++ {
		c := data[i]
		if c != '\\' {
			out = append(out, c)
			continue
		}
		if i+1 < len(data) && strings.IndexByte(`"\/bfnrtu`, data[i+1]) >= 0 {
			out = append(out, c, data[i+1])
			i++
			continue
		}
		out = append(out, '\\', '\\')
	}
	return out
}
