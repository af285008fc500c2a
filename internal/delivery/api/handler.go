package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aliskhannn/citizenship-quiz-bot/internal/domain/entities"
	"github.com/aliskhannn/citizenship-quiz-bot/internal/service"
)

// Handler serves the quiz JSON API.
type Handler struct {
	quiz   QuizService
	logger *zap.Logger
}

func NewHandler(quiz QuizService, logger *zap.Logger) *Handler {
	return &Handler{
		quiz:   quiz,
		logger: logger,
	}
}

// HandleHealth reports that the API is up.
func (h *Handler) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// HandleListChapters lists the chapters of a country with their question counts.
func (h *Handler) HandleListChapters(c *gin.Context) {
	country, err := entities.ParseCountry(c.Param("country"))
	if err != nil {
		h.fail(c, err)
		return
	}

	chapters, err := h.quiz.Chapters(c.Request.Context(), country)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"country": country, "chapters": chapters})
}

// HandleStartSession starts a new quiz session.
func (h *Handler) HandleStartSession(c *gin.Context) {
	var req startSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	country, err := entities.ParseCountry(req.Country)
	if err != nil {
		h.fail(c, err)
		return
	}
	mode, err := entities.ParseMode(req.Mode)
	if err != nil {
		h.fail(c, err)
		return
	}

	session, err := h.quiz.Start(c.Request.Context(), service.StartRequest{
		Country: country,
		Mode:    mode,
		Chapter: req.Chapter,
		Size:    req.Size,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, newSessionView(session, h.quiz.Score(session)))
}

// HandleGetSession returns the current state of a session.
func (h *Handler) HandleGetSession(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}

	session, err := h.quiz.Get(c.Request.Context(), id)
	h.respond(c, session, err)
}

// HandleAnswer records an answer for the question at :index.
func (h *Handler) HandleAnswer(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}

	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "question index must be an integer"})
		return
	}

	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	session, err := h.quiz.Answer(c.Request.Context(), id, index, req.Answer)
	h.respond(c, session, err)
}

// HandleAdvance moves to the next question.
func (h *Handler) HandleAdvance(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}

	session, err := h.quiz.Advance(c.Request.Context(), id)
	h.respond(c, session, err)
}

// HandleBack moves to the previous question.
func (h *Handler) HandleBack(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}

	session, err := h.quiz.Back(c.Request.Context(), id)
	h.respond(c, session, err)
}

// HandleJump moves directly to a question.
func (h *Handler) HandleJump(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}

	var req jumpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	session, err := h.quiz.Jump(c.Request.Context(), id, *req.Index)
	h.respond(c, session, err)
}

// HandleFinish ends a session early.
func (h *Handler) HandleFinish(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}

	session, err := h.quiz.Finish(c.Request.Context(), id)
	h.respond(c, session, err)
}

// HandleScore returns the score of a session. A running mock session only reports progress.
func (h *Handler) HandleScore(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}

	session, err := h.quiz.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, newScoreView(session, h.quiz.Score(session)))
}

// HandleDiscard drops a session.
func (h *Handler) HandleDiscard(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}

	if err := h.quiz.Discard(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) sessionID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) respond(c *gin.Context, session *entities.QuizSession, err error) {
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newSessionView(session, h.quiz.Score(session)))
}

func (h *Handler) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("api request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, entities.ErrChapterNotFound),
		errors.Is(err, entities.ErrCountryNotFound):
		return http.StatusNotFound

	case errors.Is(err, entities.ErrUnknownCountry),
		errors.Is(err, entities.ErrUnknownMode),
		errors.Is(err, entities.ErrInvalidAnswer),
		errors.Is(err, entities.ErrQuestionIndexOutOfRange),
		errors.Is(err, service.ErrAmbiguousAnswer),
		errors.Is(err, service.ErrChapterRequired):
		return http.StatusBadRequest

	case errors.Is(err, entities.ErrSessionCompleted),
		errors.Is(err, entities.ErrOutOfOrderAnswer),
		errors.Is(err, entities.ErrUnansweredQuestion),
		errors.Is(err, service.ErrConcurrentUpdate):
		return http.StatusConflict

	case errors.Is(err, entities.ErrInsufficientQuestions):
		return http.StatusUnprocessableEntity

	default:
		return http.StatusInternalServerError
	}
}
