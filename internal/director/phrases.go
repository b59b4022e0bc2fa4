package director

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/ivlev/montage/internal/transcribe"
)

var numberPattern = regexp.MustCompile(`^\d+([.,]\d+)*`)

// partOfNumber reports whether a transcribed word belongs to a number that
// must not be split across subtitles, like "3", ".", "14".
func partOfNumber(text string) bool {
	return numberPattern.MatchString(text) || text == "," || text == "."
}

// GroupPhrases splits words into phrases whose spoken duration stays within
// maxDuration. Runs of number parts are kept in one phrase even when that
// overshoots.
func GroupPhrases(words []transcribe.Word, maxDuration float64) [][]transcribe.Word {
	var phrases [][]transcribe.Word
	var current []transcribe.Word
	var spoken float64

	flush := func() {
		if len(current) > 0 {
			phrases = append(phrases, current)
		}
		current, spoken = nil, 0
	}

	for i := 0; i < len(words); {
		run := words[i : i+1]
		if partOfNumber(words[i].Text) {
			j := i + 1
			for j < len(words) && partOfNumber(words[j].Text) {
				j++
			}
			run = words[i:j]
		}

		runDuration := 0.0
		for _, w := range run {
			runDuration += w.Duration()
		}
		if spoken+runDuration > maxDuration && len(current) > 0 {
			flush()
		}
		current = append(current, run...)
		spoken += runDuration
		i += len(run)

		if spoken >= maxDuration {
			flush()
		}
	}
	flush()
	return phrases
}

// PhraseText joins the words of a phrase.
func PhraseText(phrase []transcribe.Word) string {
	parts := make([]string, len(phrase))
	for i, w := range phrase {
		parts[i] = w.Text
	}
	return strings.Join(parts, " ")
}

// SplitSentences breaks text after terminal punctuation followed by a space.
func SplitSentences(text string) []string {
	var out []string
	var b strings.Builder
	runes := []rune(strings.TrimSpace(text))
	for i, r := range runes {
		b.WriteRune(r)
		terminal := r == '.' || r == '!' || r == '?'
		if terminal && (i+1 == len(runes) || unicode.IsSpace(runes[i+1])) {
			if s := strings.TrimSpace(b.String()); s != "" {
				out = append(out, s)
			}
			b.Reset()
		}
	}
	if s := strings.TrimSpace(b.String()); s != "" {
		out = append(out, s)
	}
	return out
}
