package director

import (
	"testing"

	"github.com/ivlev/montage/internal/transcribe"
)

func words(pairs ...any) []transcribe.Word {
	var out []transcribe.Word
	t := 0.0
	for i := 0; i < len(pairs); i += 2 {
		d := pairs[i+1].(float64)
		out = append(out, transcribe.Word{Text: pairs[i].(string), Start: t, End: t + d})
		t += d
	}
	return out
}

func TestGroupPhrases(t *testing.T) {
	tests := []struct {
		name  string
		words []transcribe.Word
		max   float64
		want  []string
	}{
		{
			name:  "split on duration",
			words: words("one", 1.0, "two", 1.0, "three", 1.0),
			max:   2,
			want:  []string{"one two", "three"},
		},
		{
			name:  "numbers stay together",
			words: words("costs", 1.0, "3", 0.5, ".", 0.2, "14", 0.5, "now", 1.0),
			max:   1.5,
			want:  []string{"costs", "3 . 14", "now"},
		},
		{
			name:  "long word alone",
			words: words("supercalifragilistic", 3.0, "ok", 0.5),
			max:   2,
			want:  []string{"supercalifragilistic", "ok"},
		},
		{
			name: "empty",
			max:  2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GroupPhrases(tt.words, tt.max)
			if len(got) != len(tt.want) {
				t.Fatalf("Expected %d phrases, got %d", len(tt.want), len(got))
			}
			for i, ph := range got {
				if PhraseText(ph) != tt.want[i] {
					t.Errorf("Phrase %d: expected %q, got %q", i, tt.want[i], PhraseText(ph))
				}
			}
		})
	}
}

func TestSplitSentences(t *testing.T) {
	got := SplitSentences("Version 2.5 is out! Try it. Or not")
	want := []string{"Version 2.5 is out!", "Try it.", "Or not"}
	if len(got) != len(want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Sentence %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}
