package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/aliskhannn/citizenship-quiz-bot/internal/domain/entities"
)

// QuestionRepository serves question banks loaded from JSON datasets, one file per country.
type QuestionRepository struct {
	banks map[entities.Country][]entities.Chapter
}

// NewQuestionRepository loads and validates the dataset of every country in paths.
func NewQuestionRepository(paths map[entities.Country]string) (*QuestionRepository, error) {
	banks := make(map[entities.Country][]entities.Chapter, len(paths))
	for country, path := range paths {
		chapters, err := LoadChapters(path)
		if err != nil {
			return nil, fmt.Errorf("load %s questions: %w", country, err)
		}
		banks[country] = chapters
	}

	return &QuestionRepository{banks: banks}, nil
}

// NewQuestionRepositoryFromChapters builds a repository from chapters already in memory.
func NewQuestionRepositoryFromChapters(banks map[entities.Country][]entities.Chapter) *QuestionRepository {
	return &QuestionRepository{banks: banks}
}

// All returns every question of a country in dataset order.
func (r *QuestionRepository) All(_ context.Context, country entities.Country) ([]entities.Question, error) {
	chapters, ok := r.banks[country]
	if !ok {
		return nil, fmt.Errorf("%w: %s", entities.ErrCountryNotFound, country)
	}

	var out []entities.Question
	for _, ch := range chapters {
		out = append(out, ch.Questions...)
	}
	return out, nil
}

// Chapter returns the questions of one chapter.
func (r *QuestionRepository) Chapter(_ context.Context, country entities.Country, name string) ([]entities.Question, error) {
	chapters, ok := r.banks[country]
	if !ok {
		return nil, fmt.Errorf("%w: %s", entities.ErrCountryNotFound, country)
	}

	for _, ch := range chapters {
		if ch.Name == name {
			return ch.Questions, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", entities.ErrChapterNotFound, name)
}

// Chapters returns chapter names and their question counts.
func (r *QuestionRepository) Chapters(_ context.Context, country entities.Country) ([]entities.ChapterSummary, error) {
	chapters, ok := r.banks[country]
	if !ok {
		return nil, fmt.Errorf("%w: %s", entities.ErrCountryNotFound, country)
	}

	out := make([]entities.ChapterSummary, 0, len(chapters))
	for _, ch := range chapters {
		out = append(out, entities.ChapterSummary{Name: ch.Name, Count: len(ch.Questions)})
	}
	return out, nil
}

// Banks returns the loaded chapters per country.
func (r *QuestionRepository) Banks() map[entities.Country][]entities.Chapter {
	return r.banks
}

type datasetFile struct {
	Chapters []datasetChapter `json:"chapters"`
}

type datasetChapter struct {
	Name      string            `json:"chapterName"`
	Questions []datasetQuestion `json:"questions"`
}

type datasetQuestion struct {
	ID            flexibleID `json:"id"`
	Question      string     `json:"question"`
	Options       []string   `json:"options"`
	CorrectAnswer string     `json:"correct_answer"`
	Explanation   string     `json:"explanation"`
}

// flexibleID accepts both numeric and string IDs.
type flexibleID string

func (id *flexibleID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		s, err := strconv.Unquote(string(data))
		if err != nil {
			return fmt.Errorf("question id: %w", err)
		}
		*id = flexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("question id: %w", err)
	}
	*id = flexibleID(n.String())
	return nil
}

// LoadChapters reads a dataset file of the form {"chapters": [{"chapterName", "questions"}]}.
// A top-level array of such objects is also accepted and its chapters are concatenated.
func LoadChapters(path string) ([]entities.Chapter, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseChapters(data)
}

// ParseChapters decodes and validates a dataset.
// Questions without an ID get one derived from their position.
func ParseChapters(data []byte) ([]entities.Chapter, error) {
	file, err := decodeDataset(data)
	if err != nil {
		return nil, err
	}
	if len(file.Chapters) == 0 {
		return nil, errors.New("dataset has no chapters")
	}

	seen := make(map[string]string)
	chapters := make([]entities.Chapter, 0, len(file.Chapters))
	for ci, dc := range file.Chapters {
		ch := entities.Chapter{
			Name:      dc.Name,
			Questions: make([]entities.Question, 0, len(dc.Questions)),
		}
		for qi, dq := range dc.Questions {
			id := string(dq.ID)
			if id == "" {
				id = fmt.Sprintf("%d-%d", ci+1, qi+1)
			}
			q := entities.Question{
				ID:            id,
				Chapter:       dc.Name,
				Text:          dq.Question,
				Options:       dq.Options,
				CorrectAnswer: dq.CorrectAnswer,
				Explanation:   dq.Explanation,
			}
			if err := q.Validate(); err != nil {
				return nil, fmt.Errorf("chapter %q: %w", dc.Name, err)
			}
			if prev, ok := seen[id]; ok {
				return nil, fmt.Errorf("chapter %q: duplicate question id %q (also in %q)", dc.Name, id, prev)
			}
			seen[id] = dc.Name
			ch.Questions = append(ch.Questions, q)
		}
		chapters = append(chapters, ch)
	}

	return chapters, nil
}

func decodeDataset(data []byte) (datasetFile, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var books []datasetFile
		if err := json.Unmarshal(data, &books); err != nil {
			return datasetFile{}, fmt.Errorf("failed to unmarshal questions JSON: %w", err)
		}
		var merged datasetFile
		for _, b := range books {
			merged.Chapters = append(merged.Chapters, b.Chapters...)
		}
		return merged, nil
	}

	var file datasetFile
	if err := json.Unmarshal(data, &file); err != nil {
		return datasetFile{}, fmt.Errorf("failed to unmarshal questions JSON: %w", err)
	}
	return file, nil
}
