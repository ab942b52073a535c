package moderation

import (
	"log/slog"
	"strings"
	"testing"

	"folio-chat/errors"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

const mask = '*'

// The dictionary uses specific words to avoid partial collisions (e.g., "he" inside "The")
func TestModerator_Censor(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	mod, err := NewModerator([]string{"casino", "crypto", "viagra"}, mask, log)
	req.NoError(err)

	tests := []struct {
		name     string
		input    string
		expected string
		words    []string
	}{
		{
			name:     "Simple word and space preservation",
			input:    "Best casino in town",
			expected: "Best ****** in town",
			words:    []string{"casino"},
		},
		{
			name:     "Leet speak and internal punctuation",
			input:    "Try c.4.5.1.n.0 now",
			expected: "Try *********** now",
			words:    []string{"casino"},
		},
		{
			name:     "Uppercase and dashes",
			input:    "C-R-Y-P-T-O tips",
			expected: "*********** tips",
			words:    []string{"crypto"},
		},
		{
			name:     "Accents are left alone",
			input:    "Un été sans casino",
			expected: "Un été sans ******",
			words:    []string{"casino"},
		},
		{
			name:     "Word adjacent to trailing punctuation",
			input:    "No viagra!",
			expected: "No ******!",
			words:    []string{"viagra"},
		},
		{
			name:     "Nothing to censor",
			input:    "Nice portfolio, love the 3D model",
			expected: "Nice portfolio, love the 3D model",
		},
		{
			name:     "Empty string",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content, words := mod.Censor(tt.input)
			req.Equal(tt.expected, content, "test=%s,", tt.name)
			req.Equal(tt.words, words)
		})
	}
}

func TestModerator_NoiseOnlyWordsAreIgnored(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	// Given a dictionary holding punctuation only entries
	mod, err := NewModerator([]string{"...", ",,,", "", "casino"}, mask, log)
	req.NoError(err)

	// Then real words are still censored
	content, words := mod.Censor("The casino is closed")
	req.Equal("The ****** is closed", content)
	req.Equal([]string{"casino"}, words)

	// And punctuation is left untouched
	content, words = mod.Censor("Hello ...")
	req.Equal("Hello ...", content)
	req.Nil(words)

	// And a dictionary of noise only is refused
	_, err = NewModerator([]string{"...", " "}, mask, log)
	req.ErrorIs(err, errors.ErrEmptyWords)
}

func TestReadWords(t *testing.T) {
	req := require.New(t)
	words, err := ReadWords(strings.NewReader("# blocked words\ncasino\n\n  crypto  \n"))
	req.NoError(err)
	req.Equal([]string{"casino", "crypto"}, words)
}
