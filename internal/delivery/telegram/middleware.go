package telegram

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type HandlerFunc func(ctx context.Context, chatID int64) error

func (h *Handler) withErrorHandling(fn HandlerFunc) HandlerFunc {
	return func(ctx context.Context, chatID int64) error {
		if err := fn(ctx, chatID); err != nil {
			h.logger.Error("handle error",
				zap.Int64("chat_id", chatID),
				zap.Error(err),
			)
			_ = h.send(newPlainMessage(chatID, msgInternalError))
			return nil
		}
		return nil
	}
}

// chatLimiter throttles updates per chat with a token bucket.
type chatLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[int64]*rate.Limiter
}

// newChatLimiter creates a limiter that accepts perSecond updates per chat.
// A non-positive perSecond disables throttling.
func newChatLimiter(perSecond float64, burst int) *chatLimiter {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &chatLimiter{
		limit:    limit,
		burst:    burst,
		limiters: make(map[int64]*rate.Limiter),
	}
}

func (l *chatLimiter) allow(chatID int64) bool {
	l.mu.Lock()
	lim, ok := l.limiters[chatID]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[chatID] = lim
	}
	l.mu.Unlock()

	return lim.Allow()
}

func (h *Handler) withRateLimit(fn HandlerFunc) HandlerFunc {
	return func(ctx context.Context, chatID int64) error {
		if !h.limiter.allow(chatID) {
			h.logger.Debug("update throttled", zap.Int64("chat_id", chatID))
			return nil
		}
		return fn(ctx, chatID)
	}
}
