// Package sentence turns the word-by-word output of the recognition engine
// into readable text fragments. The engine sends words and punctuation as
// separate tokens ("hello", "world", "."); the assembler decides spacing and
// capitalization from a single token of lookback and emits each fragment
// immediately.
package sentence

import (
	"strings"
	"sync"
	"unicode"
)

// noSpaceBefore holds the tokens that attach directly to the preceding
// text. Membership is whole-token: a token that merely starts with one of
// these still gets a space.
var noSpaceBefore = map[string]bool{
	".": true, ",": true, "!": true, "?": true,
	":": true, ";": true, ")": true, "]": true,
	"}": true, `"`: true,
}

// Assembler is the per-session formatting state. One lives per relay
// session; AddWord is called from the engine's receive goroutine and Flush
// from session cleanup, so everything runs under one mutex.
type Assembler struct {
	mu          sync.Mutex
	newSentence bool
	emit        func(fragment string)
}

// New returns an assembler that calls emit once per accepted token. The
// first token starts a new sentence.
func New(emit func(fragment string)) *Assembler {
	return &Assembler{newSentence: true, emit: emit}
}

// AddWord formats one engine token and emits the resulting fragment.
// Whitespace-only tokens are discarded without touching the sentence state.
// A token ending in ".", "!" or "?" marks the next token as a sentence
// start, which gets its first letter or digit uppercased. The emitted
// fragment carries exactly one leading space unless the token is attaching
// punctuation or starts with an apostrophe.
func (a *Assembler) AddWord(token string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	token = strings.TrimSpace(token)
	if token == "" {
		return
	}

	if a.newSentence {
		runes := []rune(token)
		if unicode.IsLetter(runes[0]) || unicode.IsNumber(runes[0]) {
			runes[0] = unicode.ToUpper(runes[0])
			token = string(runes)
		}
	}

	prefix := " "
	if noSpaceBefore[token] || strings.HasPrefix(token, "'") {
		prefix = ""
	}

	a.emit(prefix + token)

	a.newSentence = strings.HasSuffix(token, ".") ||
		strings.HasSuffix(token, "!") ||
		strings.HasSuffix(token, "?")
}

// Flush is the end-of-session hook. Fragments are emitted as tokens arrive,
// so there is never buffered text to release; the hook stays so cleanup has
// a defined place to call.
func (a *Assembler) Flush() {}
