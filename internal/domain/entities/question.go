// Package entities contains domain entities used across the application.
package entities

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownCountry  = errors.New("unknown country")
	ErrInvalidQuestion = errors.New("invalid question")
	ErrChapterNotFound = errors.New("chapter not found")
	ErrCountryNotFound = errors.New("no questions available for country")
)

// Country identifies the citizenship test a question bank belongs to.
type Country string

const (
	CountryCanada Country = "canada"
	CountryUK     Country = "uk"
)

// Countries lists every supported country in display order.
var Countries = []Country{CountryCanada, CountryUK}

// ParseCountry converts user input into a Country.
func ParseCountry(s string) (Country, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "canada", "ca":
		return CountryCanada, nil
	case "uk", "gb", "united kingdom":
		return CountryUK, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownCountry, s)
	}
}

// Title returns a human-readable country name.
func (c Country) Title() string {
	switch c {
	case CountryCanada:
		return "Canada"
	case CountryUK:
		return "United Kingdom"
	default:
		return string(c)
	}
}

// Question is a single multiple-choice question of a chapter. It is immutable once loaded.
type Question struct {
	ID            string   `json:"id"`
	Chapter       string   `json:"chapter"`
	Text          string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
	Explanation   string   `json:"explanation,omitempty"`
}

// Validate checks that the question is answerable.
func (q Question) Validate() error {
	if strings.TrimSpace(q.Text) == "" {
		return fmt.Errorf("%w %s: empty text", ErrInvalidQuestion, q.ID)
	}
	if len(q.Options) < 2 {
		return fmt.Errorf("%w %s: need at least 2 options, got %d", ErrInvalidQuestion, q.ID, len(q.Options))
	}
	seen := make(map[string]struct{}, len(q.Options))
	for i, o := range q.Options {
		if strings.TrimSpace(o) == "" {
			return fmt.Errorf("%w %s: option %d is blank", ErrInvalidQuestion, q.ID, i+1)
		}
		if _, ok := seen[o]; ok {
			return fmt.Errorf("%w %s: duplicate option %q", ErrInvalidQuestion, q.ID, o)
		}
		seen[o] = struct{}{}
	}
	if q.OptionIndex(q.CorrectAnswer) < 0 {
		return fmt.Errorf("%w %s: correct answer %q is not an option", ErrInvalidQuestion, q.ID, q.CorrectAnswer)
	}
	return nil
}

// IsCorrect reports whether answer is the correct option.
func (q Question) IsCorrect(answer string) bool {
	return answer != Unanswered && answer == q.CorrectAnswer
}

// OptionIndex returns the index of option or -1.
func (q Question) OptionIndex(option string) int {
	for i, o := range q.Options {
		if o == option {
			return i
		}
	}
	return -1
}

// Chapter groups the questions of one study-guide chapter.
type Chapter struct {
	Name      string     `json:"chapterName"`
	Questions []Question `json:"questions"`
}

// ChapterSummary is a chapter name with the number of questions it holds.
type ChapterSummary struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}
