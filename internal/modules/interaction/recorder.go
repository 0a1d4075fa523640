package interaction

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"tabiplan/internal/ai"
)

const recordTimeout = 3 * time.Second

// Recorder persists one interaction.
type Recorder interface {
	Record(ctx context.Context, in *Interaction) error
}

// RecordingProvider wraps an ai.LLMProvider and logs every call to a Recorder.
// Recording failures are logged and never change the call's outcome.
type RecordingProvider struct {
	next     ai.LLMProvider
	recorder Recorder
	logger   *slog.Logger
}

func NewRecordingProvider(next ai.LLMProvider, recorder Recorder, logger *slog.Logger) *RecordingProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecordingProvider{next: next, recorder: recorder, logger: logger}
}

func (p *RecordingProvider) Model() string { return p.next.Model() }

func (p *RecordingProvider) Complete(ctx context.Context, req ai.CompletionRequest) (string, error) {
	start := time.Now()
	out, err := p.next.Complete(ctx, req)

	model := req.Model
	if model == "" {
		model = p.next.Model()
	}
	in := &Interaction{
		ID:        uuid.NewString(),
		SessionID: req.SessionID,
		Kind:      Kind(req.Purpose),
		Model:     model,
		LatencyMS: time.Since(start).Milliseconds(),
		Success:   err == nil,
		CreatedAt: start,
	}
	if err != nil {
		in.Error = err.Error()
	}

	// The caller's deadline may already be spent; the log row is written regardless.
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	if rerr := p.recorder.Record(rctx, in); rerr != nil {
		p.logger.Warn("record interaction failed", "session", req.SessionID, "kind", req.Purpose, "err", rerr)
	}
	return out, err
}
