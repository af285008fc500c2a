package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aliskhannn/citizenship-quiz-bot/internal/domain/entities"
	"github.com/aliskhannn/citizenship-quiz-bot/internal/repository"
	"github.com/aliskhannn/citizenship-quiz-bot/internal/service"
	"github.com/aliskhannn/citizenship-quiz-bot/internal/storage"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	questions := make([]entities.Question, 3)
	for i := range questions {
		questions[i] = entities.Question{
			ID:            fmt.Sprintf("s%d", i+1),
			Chapter:       "Symbols",
			Text:          fmt.Sprintf("Symbol question %d?", i+1),
			Options:       []string{"Beaver", "Lion", "Eagle"},
			CorrectAnswer: "Beaver",
			Explanation:   "The beaver is a national symbol.",
		}
	}
	bank := repository.NewQuestionRepositoryFromChapters(map[entities.Country][]entities.Chapter{
		entities.CountryCanada: {{Name: "Symbols", Questions: questions}},
	})
	policies := map[entities.Country]service.CountryPolicy{
		entities.CountryCanada: service.DefaultCountryPolicy(),
	}

	quiz := service.NewQuizService(
		bank,
		service.NewQuestionSelector(bank, policies),
		service.NewSessionEngine(entities.DefaultPassMark),
		storage.NewQuizStorage(),
		zap.NewNop(),
	)
	return NewRouter(NewHandler(quiz, zap.NewNop()), zap.NewNop())
}

func do(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, rec.Code, rec.Body.String())
	}
}

func TestHealthAndChapters(t *testing.T) {
	router := newTestRouter(t)

	expectStatus(t, do(t, router, http.MethodGet, "/healthz", nil), http.StatusOK)

	rec := do(t, router, http.MethodGet, "/api/countries/canada/chapters", nil)
	expectStatus(t, rec, http.StatusOK)
	body := decode[struct {
		Chapters []entities.ChapterSummary `json:"chapters"`
	}](t, rec)
	if len(body.Chapters) != 1 || body.Chapters[0].Count != 3 {
		t.Fatalf("unexpected chapters %+v", body.Chapters)
	}

	expectStatus(t, do(t, router, http.MethodGet, "/api/countries/france/chapters", nil), http.StatusBadRequest)
	expectStatus(t, do(t, router, http.MethodGet, "/api/countries/uk/chapters", nil), http.StatusNotFound)
}

func TestPracticeSessionLifecycle(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/api/sessions", gin.H{"country": "canada", "mode": "practice", "chapter": "Symbols"})
	expectStatus(t, rec, http.StatusCreated)
	session := decode[sessionView](t, rec)
	if session.Total != 3 || session.Status != string(entities.StatusInProgress) || session.RemainingSeconds != nil {
		t.Fatalf("unexpected session %+v", session)
	}
	base := "/api/sessions/" + session.ID

	expectStatus(t, do(t, router, http.MethodPost, base+"/advance", nil), http.StatusConflict)
	expectStatus(t, do(t, router, http.MethodPut, base+"/answers/1", gin.H{"answer": "Beaver"}), http.StatusConflict)
	expectStatus(t, do(t, router, http.MethodPut, base+"/answers/0", gin.H{"answer": "Tiger"}), http.StatusBadRequest)
	expectStatus(t, do(t, router, http.MethodPut, base+"/answers/x", gin.H{"answer": "a"}), http.StatusBadRequest)

	answers := []string{"a", "lion", "Beaver"}
	for i, a := range answers {
		rec = do(t, router, http.MethodPut, fmt.Sprintf("%s/answers/%d", base, i), gin.H{"answer": a})
		expectStatus(t, rec, http.StatusOK)
		view := decode[sessionView](t, rec)
		if view.Answers[i].Correct == nil {
			t.Fatalf("practice answers must reveal correctness")
		}
		expectStatus(t, do(t, router, http.MethodPost, base+"/advance", nil), http.StatusOK)
	}

	rec = do(t, router, http.MethodGet, base+"/score", nil)
	expectStatus(t, rec, http.StatusOK)
	score := decode[struct {
		Status string         `json:"status"`
		Score  entities.Score `json:"score"`
	}](t, rec)
	want := entities.Score{Correct: 2, Total: 3, Percentage: 67}
	if score.Status != string(entities.StatusCompleted) || score.Score != want {
		t.Fatalf("unexpected score %+v", score)
	}

	expectStatus(t, do(t, router, http.MethodPost, base+"/back", nil), http.StatusConflict)
	expectStatus(t, do(t, router, http.MethodDelete, base, nil), http.StatusNoContent)
	expectStatus(t, do(t, router, http.MethodGet, base, nil), http.StatusNotFound)
}

func TestMockSessionHidesScore(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/api/sessions", gin.H{"country": "ca", "mode": "mock", "size": 2})
	expectStatus(t, rec, http.StatusCreated)
	session := decode[sessionView](t, rec)
	if session.RemainingSeconds == nil || *session.RemainingSeconds != 30*60 {
		t.Fatalf("mock session must show the countdown, got %+v", session.RemainingSeconds)
	}
	base := "/api/sessions/" + session.ID

	rec = do(t, router, http.MethodPut, base+"/answers/0", gin.H{"answer": "Beaver"})
	expectStatus(t, rec, http.StatusOK)
	view := decode[sessionView](t, rec)
	if view.Score != nil || view.Answers[0].Correct != nil {
		t.Fatalf("mock sessions must not reveal results before completion")
	}

	rec = do(t, router, http.MethodGet, base+"/score", nil)
	expectStatus(t, rec, http.StatusOK)
	progress := decode[scoreView](t, rec)
	if progress.Score != nil || progress.Answered != 1 || progress.Total != 2 {
		t.Fatalf("running mock must report progress only, got %+v", progress)
	}

	rec = do(t, router, http.MethodPost, base+"/jump", gin.H{"index": 1})
	expectStatus(t, rec, http.StatusOK)
	if decode[sessionView](t, rec).CurrentIndex != 1 {
		t.Fatalf("jump did not move to question 1")
	}
	expectStatus(t, do(t, router, http.MethodPost, base+"/jump", gin.H{}), http.StatusBadRequest)

	rec = do(t, router, http.MethodPost, base+"/finish", nil)
	expectStatus(t, rec, http.StatusOK)
	view = decode[sessionView](t, rec)
	if view.Score == nil || view.CompletionReason != string(entities.CompletedFinished) {
		t.Fatalf("finished mock must reveal the score, got %+v", view)
	}

	rec = do(t, router, http.MethodGet, base+"/score", nil)
	expectStatus(t, rec, http.StatusOK)
	if final := decode[scoreView](t, rec); final.Score == nil || final.Score.Correct != 1 {
		t.Fatalf("finished mock score endpoint must reveal the score, got %+v", final)
	}
}

func TestStartSessionErrors(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		name string
		body any
		want int
	}{
		{name: "missing mode", body: gin.H{"country": "canada"}, want: http.StatusBadRequest},
		{name: "unknown mode", body: gin.H{"country": "canada", "mode": "exam"}, want: http.StatusBadRequest},
		{name: "practice without chapter", body: gin.H{"country": "canada", "mode": "practice"}, want: http.StatusBadRequest},
		{name: "unknown chapter", body: gin.H{"country": "canada", "mode": "practice", "chapter": "Law"}, want: http.StatusNotFound},
		{name: "negative size", body: gin.H{"country": "canada", "mode": "quiz", "size": -1}, want: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectStatus(t, do(t, router, http.MethodPost, "/api/sessions", tt.body), tt.want)
		})
	}

	expectStatus(t, do(t, router, http.MethodGet, "/api/sessions/not-a-uuid", nil), http.StatusBadRequest)
	expectStatus(t, do(t, router, http.MethodGet, "/api/sessions/"+uuid.NewString(), nil), http.StatusNotFound)
}
