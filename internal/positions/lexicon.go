package positions

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/mcarecon/mcarecon/internal/similarity"
)

// Lexicon decides which descriptions are lender payments and extracts
// normalized lender names from them. It holds no mutable state and may be
// shared between goroutines.
type Lexicon struct {
	allow      []string
	allowWords [][]string
	deny       []string
	prefixes   [][]string
	noise      map[string]bool
	nameTokens int
}

// NewLexicon builds a Lexicon. Keywords and prefixes match whole words,
// case-insensitively. Noise words are dropped from lender names.
func NewLexicon(allow, deny, prefixes, noise []string, nameTokens int) *Lexicon {
	if nameTokens < 1 {
		nameTokens = 3
	}
	l := &Lexicon{
		allow:      normalizePhrases(allow),
		deny:       normalizePhrases(deny),
		noise:      make(map[string]bool, len(noise)),
		nameTokens: nameTokens,
	}
	for _, a := range l.allow {
		l.allowWords = append(l.allowWords, strings.Fields(a))
	}
	for _, n := range normalizePhrases(noise) {
		for _, w := range strings.Fields(n) {
			l.noise[w] = true
		}
	}
	for _, p := range normalizePhrases(prefixes) {
		l.prefixes = append(l.prefixes, strings.Fields(p))
	}
	// Longest prefix first so "ach debit" wins over "ach".
	sort.SliceStable(l.prefixes, func(i, j int) bool {
		return len(l.prefixes[i]) > len(l.prefixes[j])
	})
	return l
}

// IsLender reports whether desc names a lender. The deny list wins over the
// allow list.
func (l *Lexicon) IsLender(desc string) bool {
	norm := normalizeText(desc)
	for _, d := range l.deny {
		if containsPhrase(norm, d) {
			return false
		}
	}
	for _, a := range l.allow {
		if containsPhrase(norm, a) {
			return true
		}
	}
	return false
}

// LenderName strips boilerplate prefixes and noise words from desc, stops
// at the first word containing a digit, and ends the name after the first
// run of lender keywords ("XYZ CAPITAL ACH PMT" is "Xyz Capital"). At most
// nameTokens words are kept.
func (l *Lexicon) LenderName(desc string) string {
	words := strings.Fields(normalizeText(desc))
	for stripped := true; stripped; {
		stripped = false
		for _, p := range l.prefixes {
			if hasPrefixWords(words, p) {
				words = words[len(p):]
				stripped = true
				break
			}
		}
	}

	var name []string
	for _, w := range words {
		if hasDigit(w) {
			if len(name) > 0 {
				break
			}
			continue
		}
		if l.noise[w] || len(w) < 2 {
			continue
		}
		name = append(name, w)
	}
	if end := l.keywordEnd(name); end > 0 {
		name = name[:end]
	}
	if len(name) > l.nameTokens {
		name = name[:l.nameTokens]
	}
	// A Caser carries per-call state; build one per name.
	return cases.Title(language.English).String(strings.Join(name, " "))
}

// keywordEnd returns the index just past the first run of lender keywords
// in words, or 0 when words contain none.
func (l *Lexicon) keywordEnd(words []string) int {
	end := 0
	for i := 0; i < len(words); {
		n := l.keywordAt(words, i)
		if n == 0 {
			if end > 0 {
				break
			}
			i++
			continue
		}
		i += n
		end = i
	}
	return end
}

// keywordAt returns the length of the longest lender keyword starting at
// words[i], or 0.
func (l *Lexicon) keywordAt(words []string, i int) int {
	longest := 0
	for _, kw := range l.allowWords {
		if len(kw) <= longest || i+len(kw) > len(words) {
			continue
		}
		match := true
		for k, w := range kw {
			if words[i+k] != w {
				match = false
				break
			}
		}
		if match {
			longest = len(kw)
		}
	}
	return longest
}

// Mentions reports whether desc contains the lender name as whole words.
func Mentions(desc, lender string) bool {
	lender = normalizeText(lender)
	return lender != "" && containsPhrase(normalizeText(desc), lender)
}

func normalizeText(s string) string {
	return strings.ToLower(strings.Join(similarity.Tokens(s), " "))
}

func normalizePhrases(in []string) []string {
	out := make([]string, 0, len(in))
	for _, p := range in {
		if n := normalizeText(p); n != "" {
			out = append(out, n)
		}
	}
	return out
}

func containsPhrase(text, phrase string) bool {
	return strings.Contains(" "+text+" ", " "+phrase+" ")
}

func hasPrefixWords(words, prefix []string) bool {
	if len(words) <= len(prefix) {
		return false
	}
	for i, p := range prefix {
		if words[i] != p {
			return false
		}
	}
	return true
}

func hasDigit(s string) bool {
	return strings.IndexFunc(s, unicode.IsDigit) >= 0
}
