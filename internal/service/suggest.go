package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"tabiplan/internal/ai"
	"tabiplan/internal/modules/interaction"
	"tabiplan/internal/modules/session"
	"tabiplan/internal/types"
)

const (
	suggestionCount     = 3
	suggestionMaxTokens = 800
	temperature         = 0.7
)

const suggestionSystemPrompt = "あなたは日本の優れた旅行コンシェルジュです。" +
	"ユーザーの要望に基づいて、おすすめの旅行先を「3つ」提案してください。\n" +
	"それぞれの提案には次の項目を含めてください。\n" +
	"・place：国、都道府県、具体的な地名\n" +
	"・summary：その場所の特徴や魅力（100字程度）\n" +
	"・reason：なぜその場所をおすすめするのか、具体的な説明（150字程度）\n" +
	"出力は次の形式のJSONオブジェクトのみとし、前置きや説明は一切不要です。\n" +
	`{"suggestions":[{"place":"...","summary":"...","reason":"..."}]}`

// SuggestResult is a fresh batch with its previews, in candidate order.
type SuggestResult struct {
	Session  *session.Session `json:"session"`
	Previews []Preview        `json:"previews"`
}

// Suggest asks the model for a new batch of destinations for trip. The
// session's previous batch, selection and conversation are discarded even
// when the model fails.
func (p *Planner) Suggest(ctx context.Context, sessionID string, trip types.TripRequest) (*SuggestResult, error) {
	if err := trip.Validate(); err != nil {
		return nil, err
	}
	start, _ := trip.Start()

	unlock := p.locks.lock(sessionID)
	sess, err := p.sessions.Get(ctx, sessionID)
	if err != nil {
		unlock()
		return nil, err
	}
	sess.ResetForSuggestions(trip)

	raw, err := p.complete(ctx, ai.CompletionRequest{
		Messages: []ai.Message{
			{Role: ai.RoleSystem, Content: suggestionSystemPrompt},
			{Role: ai.RoleUser, Content: suggestionUserPrompt(trip)},
		},
		MaxTokens:   suggestionMaxTokens,
		Temperature: temperature,
		JSON:        true,
		Purpose:     string(interaction.KindSuggest),
		SessionID:   sessionID,
	})
	var candidates []types.DestinationCandidate
	if err != nil {
		p.logger.Error("suggestion call failed", "session", sessionID, "err", err)
		err = fmt.Errorf("%w: %v", ErrNoSuggestions, err)
	} else if candidates, err = parseSuggestions(raw); err != nil {
		p.logger.Warn("suggestion response unusable", "session", sessionID, "err", err)
	}
	sess.SetCandidates(candidates)
	if serr := p.sessions.Save(ctx, sess); serr != nil {
		unlock()
		return nil, serr
	}
	unlock()
	if err != nil {
		return nil, err
	}

	return &SuggestResult{
		Session:  sess,
		Previews: p.previewAll(ctx, candidates, trip.Residence, start, trip.Length()),
	}, nil
}

func suggestionUserPrompt(t types.TripRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "現在地は「%s」です。", t.Residence)
	fmt.Fprintf(&b, "旅行のメンバーは「%s」で、期間は「%s」、", t.Companion, t.Duration)
	fmt.Fprintf(&b, "一人当たりの予算は「%s」です。", t.Budget)
	fmt.Fprintf(&b, "気分は「%s」で、場所は「%s」の中からお願いします。", t.Mood, t.Scope)
	if t.StartDate != "" {
		fmt.Fprintf(&b, "出発日は%sです。", t.StartDate)
	}
	b.WriteString("これらの情報をもとに、最適な旅行先を提案してください。")
	if r := strings.TrimSpace(t.Request); r != "" {
		fmt.Fprintf(&b, "\nその他、以下の具体的な要望があります。「%s」。この要望を最優先してください。", r)
	}
	return b.String()
}

// parseSuggestions decodes the model's JSON. Entries without a place are
// dropped and at most three are kept.
func parseSuggestions(raw string) ([]types.DestinationCandidate, error) {
	var payload struct {
		Suggestions []types.DestinationCandidate `json:"suggestions"`
	}
	if err := json.Unmarshal([]byte(ai.CleanJSON(raw)), &payload); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrNoSuggestions, err)
	}

	out := make([]types.DestinationCandidate, 0, suggestionCount)
	for _, c := range payload.Suggestions {
		c.Place = strings.TrimSpace(c.Place)
		if c.Place == "" {
			continue
		}
		c.Summary = strings.TrimSpace(c.Summary)
		c.Reason = strings.TrimSpace(c.Reason)
		out = append(out, c)
		if len(out) == suggestionCount {
			break
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: response had no places", ErrNoSuggestions)
	}
	return out, nil
}
