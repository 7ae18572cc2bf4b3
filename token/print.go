package token

import "strings"

// Render re-serializes a token stream to text, space-separating tokens on
// each logical line and breaking on EOL (spec §8: "lexing followed by
// round-trip printing of tokens ... preserves token sequence"; this is
// what backs `-p`, which writes the preprocessed token stream back out as
// KASM source for a later `-a` run to re-lex unchanged).
func Render(toks []Token) string {
	var sb strings.Builder
	atLineStart := true
	for _, t := range toks {
		switch t.Kind {
		case EOF:
			continue
		case EOL:
			sb.WriteByte('\n')
			atLineStart = true
			continue
		}
		if !atLineStart {
			sb.WriteByte(' ')
		}
		sb.WriteString(t.String())
		atLineStart = false
	}
	return sb.String()
}
