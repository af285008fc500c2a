package service

import (
	"errors"
	"strings"
	"unicode"

	"github.com/aliskhannn/citizenship-quiz-bot/internal/domain/entities"
)

var ErrAmbiguousAnswer = errors.New("answer matches more than one option")

// AnswerMatcher resolves loosely typed answers to the canonical option text.
type AnswerMatcher struct {
	threshold float64 // minimum similarity (0.0 - 1.0) for a fuzzy match
}

// NewAnswerMatcher creates a new AnswerMatcher.
func NewAnswerMatcher() *AnswerMatcher {
	return &AnswerMatcher{
		threshold: 0.85,
	}
}

// Resolve returns the option of q that input refers to.
// It accepts the exact option, a case/whitespace variant, a letter ("b") or
// 1-based number ("2"), or a close misspelling of exactly one option.
func (m *AnswerMatcher) Resolve(q entities.Question, input string) (string, error) {
	if q.OptionIndex(input) >= 0 {
		return input, nil
	}

	in := normalize(input)
	if in == "" {
		return "", entities.ErrInvalidAnswer
	}

	for _, opt := range q.Options {
		if normalize(opt) == in {
			return opt, nil
		}
	}

	if idx, ok := optionPosition(in, len(q.Options)); ok {
		return q.Options[idx], nil
	}

	best, bestScore, tie := -1, 0.0, false
	for i, opt := range q.Options {
		score := similarity(in, normalize(opt))
		switch {
		case score > bestScore:
			best, bestScore, tie = i, score, false
		case score == bestScore:
			tie = true
		}
	}
	if best < 0 || bestScore < m.threshold {
		return "", entities.ErrInvalidAnswer
	}
	if tie {
		return "", ErrAmbiguousAnswer
	}
	return q.Options[best], nil
}

// normalize lowercases s, drops trailing punctuation and collapses whitespace.
func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimRightFunc(s, unicode.IsPunct)
	return strings.Join(strings.Fields(s), " ")
}

// optionPosition parses "a".."z" or "1".."n" into a zero-based option index.
func optionPosition(s string, n int) (int, bool) {
	r := []rune(s)
	if len(r) != 1 {
		return 0, false
	}

	var idx int
	switch {
	case r[0] >= 'a' && r[0] <= 'z':
		idx = int(r[0] - 'a')
	case r[0] >= '1' && r[0] <= '9':
		idx = int(r[0] - '1')
	default:
		return 0, false
	}
	if idx >= n {
		return 0, false
	}
	return idx, true
}

// similarity calculates the similarity between two strings using Levenshtein distance.
func similarity(s1, s2 string) float64 {
	maxLen := max(len([]rune(s1)), len([]rune(s2)))
	if maxLen == 0 {
		return 1.0
	}
	return 1.0 - float64(levenshteinDistance(s1, s2))/float64(maxLen)
}

// levenshteinDistance calculates the Levenshtein distance between two strings.
func levenshteinDistance(s1, s2 string) int {
	r1 := []rune(s1)
	r2 := []rune(s2)

	// Two rows instead of the full matrix.
	prev := make([]int, len(r2)+1)
	curr := make([]int, len(r2)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(r1); i++ {
		curr[0] = i
		for j := 1; j <= len(r2); j++ {
			cost := 1
			if r1[i-1] == r2[j-1] {
				cost = 0
			}
			curr[j] = min(
				curr[j-1]+1,    // insertion
				prev[j]+1,      // deletion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[len(r2)]
}
