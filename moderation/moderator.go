// Package moderation masks blocked words in chat messages before they are stored.
package moderation

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"unicode"

	"folio-chat/errors"

	goahocorasick "github.com/anknown/ahocorasick"
)

// Moderator finds blocked words through obfuscation (case, leet speak, punctuation between letters).
type Moderator struct {
	matcher *goahocorasick.Machine
	mask    rune
	log     *slog.Logger
}

// folded is a text reduced to its matchable runes. positions[i] is the index in the
// original runes of folded rune i.
type folded struct {
	runes     []rune
	positions []int
}

// NewModerator builds the automaton. Words made only of noise are ignored.
func NewModerator(words []string, mask rune, log *slog.Logger) (*Moderator, error) {
	patterns := make([][]rune, 0, len(words))
	for _, word := range words {
		if pattern := fold(word).runes; len(pattern) > 0 {
			patterns = append(patterns, pattern)
		}
	}
	if len(patterns) == 0 {
		return nil, errors.ErrEmptyWords
	}

	matcher := new(goahocorasick.Machine)
	if err := matcher.Build(patterns); err != nil {
		return nil, fmt.Errorf("building moderation automaton: %w", err)
	}
	log.Debug(fmt.Sprintf("Moderation loaded with %d words", len(patterns)))
	return &Moderator{matcher: matcher, mask: mask, log: log}, nil
}

// ReadWords reads one word per line. Blank lines and lines starting with # are skipped.
func ReadWords(r io.Reader) ([]string, error) {
	var words []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words = append(words, line)
	}
	return words, scanner.Err()
}

// Censor masks every blocked word of text, keeping its length and the characters around it.
// It also returns the blocked words found, in their folded form.
func (m *Moderator) Censor(text string) (string, []string) {
	f := fold(text)
	if len(f.runes) == 0 {
		return text, nil
	}
	hits := m.matcher.MultiPatternSearch(f.runes, false)
	if len(hits) == 0 {
		return text, nil
	}

	out := []rune(text)
	var found []string
	for _, hit := range hits {
		start, end := hit.Pos, hit.Pos+len(hit.Word)
		if start < 0 || end > len(f.positions) {
			continue
		}
		for i := f.positions[start]; i <= f.positions[end-1]; i++ {
			out[i] = m.mask
		}
		found = append(found, string(hit.Word))
	}
	if len(found) > 0 {
		m.log.Debug("Message censored", "words", found)
	}
	return string(out), found
}

func fold(text string) folded {
	runes := []rune(text)
	f := folded{runes: make([]rune, 0, len(runes)), positions: make([]int, 0, len(runes))}
	for i, r := range runes {
		r = unleet(r)
		if unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r) {
			continue
		}
		f.runes = append(f.runes, unicode.ToLower(r))
		f.positions = append(f.positions, i)
	}
	return f
}

func unleet(r rune) rune {
	switch r {
	case '4', '@':
		return 'a'
	case '3', '€':
		return 'e'
	case '1', '!', '|':
		return 'i'
	case '0':
		return 'o'
	case '5', '$':
		return 's'
	default:
		return r
	}
}
