package model

import (
	"strings"
	"unicode"
)

// Tokenizer splits text into word and punctuation tokens.
// Apostrophes inside a word are kept, so "don't" stays one token.
type Tokenizer struct {
	lowercase bool
	maxLength int
}

// NewTokenizer creates a tokenizer truncating to maxLength tokens
func NewTokenizer(lowercase bool, maxLength int) *Tokenizer {
	return &Tokenizer{lowercase: lowercase, maxLength: maxLength}
}

// Tokenize returns at most maxLength tokens of text
func (t *Tokenizer) Tokenize(text string) []string {
	if t.lowercase {
		text = strings.ToLower(text)
	}
	runes := []rune(text)

	tokens := make([]string, 0, len(runes)/4+1)
	var word strings.Builder

	flush := func() {
		if word.Len() > 0 {
			tokens = append(tokens, word.String())
			word.Reset()
		}
	}

	for i, r := range runes {
		if t.maxLength > 0 && len(tokens) >= t.maxLength {
			break
		}
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			word.WriteRune(r)
		case isApostrophe(r) && word.Len() > 0 && i+1 < len(runes) && unicode.IsLetter(runes[i+1]):
			word.WriteRune('\'')
		case unicode.IsSpace(r):
			flush()
		default:
			flush()
			tokens = append(tokens, string(r))
		}
	}
	flush()

	if t.maxLength > 0 && len(tokens) > t.maxLength {
		tokens = tokens[:t.maxLength]
	}
	return tokens
}

func isApostrophe(r rune) bool {
	return r == '\'' || r == '’'
}
