package repository

import (
	"context"
	"fmt"
	"slices"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aliskhannn/citizenship-quiz-bot/internal/domain/entities"
)

const schema = `
	CREATE TABLE IF NOT EXISTS chapters (
		id       BIGSERIAL PRIMARY KEY,
		country  TEXT NOT NULL,
		name     TEXT NOT NULL,
		position INT  NOT NULL,
		UNIQUE (country, name)
	);

	CREATE TABLE IF NOT EXISTS questions (
		id             BIGSERIAL PRIMARY KEY,
		chapter_id     BIGINT NOT NULL REFERENCES chapters (id) ON DELETE CASCADE,
		external_id    TEXT   NOT NULL,
		position       INT    NOT NULL,
		question       TEXT   NOT NULL,
		options        TEXT[] NOT NULL,
		correct_answer TEXT   NOT NULL,
		explanation    TEXT   NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_questions_chapter ON questions (chapter_id, position);
`

// QuestionRepository provides access to question banks stored in PostgreSQL.
type QuestionRepository struct {
	db *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository with the provided database pool.
func NewQuestionRepository(db *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{db: db}
}

// EnsureSchema creates the question tables if they do not exist.
func (r *QuestionRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// All returns every question of a country ordered by chapter and position.
func (r *QuestionRepository) All(ctx context.Context, country entities.Country) ([]entities.Question, error) {
	query := `
		SELECT q.external_id, c.name, q.question, q.options, q.correct_answer, q.explanation
		FROM questions q
		JOIN chapters c ON c.id = q.chapter_id
		WHERE c.country = $1
		ORDER BY c.position, q.position
	`

	questions, err := r.queryQuestions(ctx, query, string(country))
	if err != nil {
		return nil, fmt.Errorf("get questions: %w", err)
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("%w: %s", entities.ErrCountryNotFound, country)
	}

	return questions, nil
}

// Chapter returns the questions of one chapter.
func (r *QuestionRepository) Chapter(ctx context.Context, country entities.Country, name string) ([]entities.Question, error) {
	query := `
		SELECT q.external_id, c.name, q.question, q.options, q.correct_answer, q.explanation
		FROM questions q
		JOIN chapters c ON c.id = q.chapter_id
		WHERE c.country = $1 AND c.name = $2
		ORDER BY q.position
	`

	questions, err := r.queryQuestions(ctx, query, string(country), name)
	if err != nil {
		return nil, fmt.Errorf("get chapter questions: %w", err)
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("%w: %q", entities.ErrChapterNotFound, name)
	}

	return questions, nil
}

// Chapters returns chapter names with their question counts.
func (r *QuestionRepository) Chapters(ctx context.Context, country entities.Country) ([]entities.ChapterSummary, error) {
	query := `
		SELECT c.name, COUNT(q.id)
		FROM chapters c
		LEFT JOIN questions q ON q.chapter_id = c.id
		WHERE c.country = $1
		GROUP BY c.id, c.name, c.position
		ORDER BY c.position
	`

	rows, err := r.db.Query(ctx, query, string(country))
	if err != nil {
		return nil, fmt.Errorf("get chapters: %w", err)
	}
	defer rows.Close()

	var out []entities.ChapterSummary
	for rows.Next() {
		var s entities.ChapterSummary
		if err := rows.Scan(&s.Name, &s.Count); err != nil {
			return nil, fmt.Errorf("scan chapter: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chapters: %w", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s", entities.ErrCountryNotFound, country)
	}

	return out, nil
}

// ImportWithTx replaces the question bank of a country within a transaction.
func (r *QuestionRepository) ImportWithTx(
	ctx context.Context, tx pgx.Tx, country entities.Country, chapters []entities.Chapter,
) (int, error) {
	if _, err := tx.Exec(ctx, `DELETE FROM chapters WHERE country = $1`, string(country)); err != nil {
		return 0, fmt.Errorf("delete chapters: %w", err)
	}

	imported := 0
	for pos, ch := range chapters {
		var chapterID int64
		err := tx.QueryRow(ctx,
			`INSERT INTO chapters (country, name, position) VALUES ($1, $2, $3) RETURNING id`,
			string(country), ch.Name, pos,
		).Scan(&chapterID)
		if err != nil {
			return 0, fmt.Errorf("insert chapter %q: %w", ch.Name, err)
		}

		batch := &pgx.Batch{}
		for qpos, q := range ch.Questions {
			batch.Queue(`
				INSERT INTO questions (chapter_id, external_id, position, question, options, correct_answer, explanation)
				VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				chapterID, q.ID, qpos, q.Text, q.Options, q.CorrectAnswer, q.Explanation,
			)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return 0, fmt.Errorf("insert questions of %q: %w", ch.Name, err)
		}
		imported += len(ch.Questions)
	}

	return imported, nil
}

// ImportBanksWithTx replaces every bank in banks within tx, in country order.
// It returns the number of imported questions per country.
func (r *QuestionRepository) ImportBanksWithTx(
	ctx context.Context, tx pgx.Tx, banks map[entities.Country][]entities.Chapter,
) (map[entities.Country]int, error) {
	countries := make([]entities.Country, 0, len(banks))
	for country := range banks {
		countries = append(countries, country)
	}
	slices.Sort(countries)

	imported := make(map[entities.Country]int, len(banks))
	for _, country := range countries {
		n, err := r.ImportWithTx(ctx, tx, country, banks[country])
		if err != nil {
			return nil, fmt.Errorf("import %s: %w", country, err)
		}
		imported[country] = n
	}
	return imported, nil
}

func (r *QuestionRepository) queryQuestions(ctx context.Context, query string, args ...any) ([]entities.Question, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (entities.Question, error) {
		var q entities.Question
		err := row.Scan(&q.ID, &q.Chapter, &q.Text, &q.Options, &q.CorrectAnswer, &q.Explanation)
		return q, err
	})
}
