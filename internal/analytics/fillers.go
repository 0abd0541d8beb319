package analytics

import (
	"sort"
	"strings"
	"unicode"
)

// DefaultFillers is the filler dictionary. Multi-word entries match as a run
// of whole words.
var DefaultFillers = []string{
	"um", "umm", "uh", "uhh", "uhm", "er", "erm", "ah", "hmm",
	"like", "basically", "actually", "literally", "so", "right",
	"you know", "i mean", "kind of", "sort of",
}

// FillerOccurrence is the tally of one filler word within one answer.
type FillerOccurrence struct {
	Word          string `json:"word"`
	Count         int    `json:"count"`
	QuestionIndex int    `json:"question_index"`
}

type fillerEntry struct {
	word   string
	tokens []string
}

type answerTally struct {
	counts map[string]int
	words  int
}

type fillerTracker struct {
	dict        []fillerEntry
	answers     map[int]answerTally
	occurrences *window[FillerOccurrence]
}

func newFillerTracker(words []string) *fillerTracker {
	t := &fillerTracker{
		answers:     make(map[int]answerTally),
		occurrences: newWindow[FillerOccurrence](SampleWindowSize),
	}
	for _, w := range words {
		if tokens := tokenize(w); len(tokens) > 0 {
			t.dict = append(t.dict, fillerEntry{word: strings.Join(tokens, " "), tokens: tokens})
		}
	}
	return t
}

// observe replaces the tally for question with the counts found in text.
func (t *fillerTracker) observe(question int, text string) {
	tally := countFillers(t.dict, text)
	prev := t.answers[question]
	t.answers[question] = tally

	words := make([]string, 0, len(tally.counts))
	for w := range tally.counts {
		words = append(words, w)
	}
	sort.Strings(words)
	for _, w := range words {
		if n := tally.counts[w]; n > prev.counts[w] {
			t.occurrences.push(FillerOccurrence{Word: w, Count: n, QuestionIndex: question})
		}
	}
}

func (t *fillerTracker) breakdown() map[string]int {
	out := make(map[string]int)
	for _, a := range t.answers {
		for w, n := range a.counts {
			out[w] += n
		}
	}
	return out
}

func (t *fillerTracker) total() int {
	n := 0
	for _, a := range t.answers {
		for _, c := range a.counts {
			n += c
		}
	}
	return n
}

func (t *fillerTracker) words() int {
	n := 0
	for _, a := range t.answers {
		n += a.words
	}
	return n
}

// ratio is fillers per spoken word.
func (t *fillerTracker) ratio() float64 {
	w := t.words()
	if w == 0 {
		return 0
	}
	return float64(t.total()) / float64(w)
}

// countFillers tallies whole-word dictionary matches in text.
func countFillers(dict []fillerEntry, text string) answerTally {
	tokens := tokenize(text)
	tally := answerTally{counts: make(map[string]int), words: len(tokens)}
	for _, entry := range dict {
		n := len(entry.tokens)
		for i := 0; i+n <= len(tokens); i++ {
			if equalRun(tokens[i:i+n], entry.tokens) {
				tally.counts[entry.word]++
			}
		}
	}
	return tally
}

func equalRun(a, b []string) bool {
	for i := range b {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}

// WordCount returns the number of words in text.
func WordCount(text string) int {
	return len(tokenize(text))
}
