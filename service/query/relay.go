package query

import (
	"context"
	"errors"
	"log/slog"

	"tds-relay/assistant"
)

// Assistant is the external service questions are forwarded to.
type Assistant interface {
	Chat(ctx context.Context, msg assistant.Message) (*assistant.Reply, error)
}

// Relay forwards a Query to the assistant and normalizes what comes back. It holds no per request
// state and is safe for concurrent use as long as the Assistant is.
type Relay struct {
	assistant Assistant
	logger    *slog.Logger
}

func NewRelay(a Assistant, logger *slog.Logger) *Relay {
	if logger == nil {
		logger = slog.Default()
	}
	return &Relay{
		assistant: a,
		logger:    logger,
	}
}

// Answer makes exactly one call to the assistant. Any failure is returned as is, there are no
// retries.
func (r *Relay) Answer(ctx context.Context, q Query) (*Response, error) {
	reply, err := r.assistant.Chat(ctx, assistant.NewUserMessage(q.Question, q.Image))
	if err != nil {
		var serviceErr *assistant.ServiceError
		if !errors.As(err, &serviceErr) {
			err = &assistant.ServiceError{Err: err}
		}
		return nil, err
	}

	r.logger.DebugContext(ctx, "assistant replied", slog.String("model", reply.Model), slog.String("finish_reason", reply.FinishReason))

	response, err := Normalize(reply.Content)
	if err != nil {
		r.logger.WarnContext(ctx, "assistant reply did not match the response contract", slog.Any("error", err), slog.String("content", reply.Content.String()))
		return nil, err
	}
	return response, nil
}
