package commands

import (
	"strings"
	"unicode"

	"github.com/renato0307/conduit/internal/domain"
)

// Token is a trigger-prefixed word in the input. Offsets are rune indexes;
// End is exclusive and covers the whole word, even past the caret.
type Token struct {
	End   int
	Query string
	Start int
}

// InsideCodeBlock reports whether caret sits inside a ``` fenced block
func InsideCodeBlock(text []rune, caret int) bool {
	caret = clamp(caret, len(text))
	return strings.Count(string(text[:caret]), "```")%2 == 1
}

// FindSlashToken locates the /command being typed at caret
func FindSlashToken(text []rune, caret int) (Token, bool) {
	if InsideCodeBlock(text, caret) {
		return Token{}, false
	}
	return findToken(text, caret, '/')
}

// FindMentionToken locates the @file being typed at caret
func FindMentionToken(text []rune, caret int) (Token, bool) {
	if InsideCodeBlock(text, caret) {
		return Token{}, false
	}
	return findToken(text, caret, '@')
}

// findToken matches (^|\s)<trigger>(\S*) ending at caret
func findToken(text []rune, caret int, trigger rune) (Token, bool) {
	caret = clamp(caret, len(text))

	start := caret
	for start > 0 && !unicode.IsSpace(text[start-1]) {
		start--
	}
	if start == caret || text[start] != trigger {
		return Token{}, false
	}

	end := caret
	for end < len(text) && !unicode.IsSpace(text[end]) {
		end++
	}

	return Token{
		End:   end,
		Query: string(text[start+1 : caret]),
		Start: start,
	}, true
}

// InsertCommand replaces the /token at caret with the command name. A space
// follows the name unless whitespace already does; the caret lands right
// after the name. It reports false when no token is at caret.
func InsertCommand(text []rune, caret int, cmd domain.SlashCommand) ([]rune, int, bool) {
	tok, ok := FindSlashToken(text, caret)
	if !ok {
		return text, caret, false
	}
	return replaceToken(text, tok, []rune(cmd.Name)), tok.Start + len([]rune(cmd.Name)), true
}

// InsertMention replaces the @token at caret with @path
func InsertMention(text []rune, caret int, path string) ([]rune, int, bool) {
	tok, ok := FindMentionToken(text, caret)
	if !ok {
		return text, caret, false
	}
	insert := []rune("@" + path)
	out := replaceToken(text, tok, insert)
	// Mentions are complete once inserted; move past the separating space
	return out, tok.Start + len(insert) + 1, true
}

func replaceToken(text []rune, tok Token, insert []rune) []rune {
	rest := text[tok.End:]
	out := make([]rune, 0, len(text)+len(insert)+1)
	out = append(out, text[:tok.Start]...)
	out = append(out, insert...)
	if len(rest) == 0 || !unicode.IsSpace(rest[0]) {
		out = append(out, ' ')
	}
	return append(out, rest...)
}

// ParseInvocation splits "/name arg1 arg2" into the command name and its args
func ParseInvocation(input string) (string, []string, bool) {
	fields := strings.Fields(strings.TrimSpace(input))
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") || len(fields[0]) == 1 {
		return "", nil, false
	}
	return fields[0], fields[1:], true
}

func clamp(caret, n int) int {
	if caret < 0 {
		return 0
	}
	if caret > n {
		return n
	}
	return caret
}
