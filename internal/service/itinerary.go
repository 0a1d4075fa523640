package service

import (
	"context"
	"fmt"
	"strings"

	"tabiplan/internal/ai"
	"tabiplan/internal/modules/interaction"
	"tabiplan/internal/modules/session"
	"tabiplan/internal/types"
)

const itineraryMaxTokens = 1000

// ErrorReplyPrefix starts the assistant turn recorded when the model fails.
const ErrorReplyPrefix = "エラーが発生しました: "

const itinerarySystemPrompt = "あなたはプロの優れた旅行プランナーです。" +
	"指定された場所と期間で、魅力的で具体的なモデルコースを提案してください。\n" +
	"行き先はユーザーが選んだ場所に確定しています。別の行き先に変更しないでください。\n" +
	"タイムスケジュール（例：午前9時〜10時、午前10時〜11時など）と、" +
	"各時間帯のアクティビティや訪問地、おすすめの食事場所などを具体的に記載してください。" +
	"**重要**: 提案するレストラン、ホテル、観光施設などの固有名詞には、必ずGoogle検索用のURLをMarkdown形式でリンク付けしてください。" +
	"例: `[東京スカイツリー](https://www.google.com/search?q=東京スカイツリー)`\n" +
	"箇条書きと見出しを使って、分かりやすく記述してください。"

const petClause = "\n**重要**: 必ずペット同伴が可能な施設（レストラン、観光地、宿泊施設など）のみを選んでください。" +
	"ペット不可の場所は提案に含めないでください。"

// Reply is the assistant's answer plus the conversation as the user sees it.
type Reply struct {
	Content  string       `json:"content"`
	Failed   bool         `json:"failed"`
	Selected string       `json:"selected"`
	Messages []ai.Message `json:"messages"`
}

// SelectDestination commits the candidate at index, seeds a new
// conversation and returns the first itinerary.
func (p *Planner) SelectDestination(ctx context.Context, sessionID string, index int) (*Reply, error) {
	unlock := p.locks.lock(sessionID)
	defer unlock()

	sess, err := p.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Trip == nil || len(sess.Candidates) == 0 {
		return nil, ErrNoCandidates
	}
	if index < 0 || index >= len(sess.Candidates) {
		return nil, fmt.Errorf("%w: %d of %d", ErrCandidateIndex, index, len(sess.Candidates))
	}

	place := sess.Candidates[index].Place
	sess.ResetForSelection(place)
	sess.Append(ai.RoleSystem, itineraryInstruction(*sess.Trip))
	sess.Append(ai.RoleUser, itineraryUserPrompt(*sess.Trip, place))
	return p.respond(ctx, sess)
}

// SendMessage appends the user's refinement and returns the model's answer.
func (p *Planner) SendMessage(ctx context.Context, sessionID, text string) (*Reply, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	unlock := p.locks.lock(sessionID)
	defer unlock()

	sess, err := p.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Selected == "" || len(sess.Messages) == 0 {
		return nil, ErrNoDestination
	}
	sess.Append(ai.RoleUser, text)
	return p.respond(ctx, sess)
}

// respond sends the full history and appends the assistant turn. A failed
// call still produces a turn carrying the error text so the history keeps
// alternating between user and assistant.
func (p *Planner) respond(ctx context.Context, sess *session.Session) (*Reply, error) {
	out, err := p.complete(ctx, ai.CompletionRequest{
		Messages:    sess.Messages,
		MaxTokens:   itineraryMaxTokens,
		Temperature: temperature,
		Purpose:     string(interaction.KindItinerary),
		SessionID:   sess.ID,
	})
	failed := err != nil
	if failed {
		p.logger.Error("itinerary call failed", "session", sess.ID, "turns", len(sess.Messages), "err", err)
		out = ErrorReplyPrefix + err.Error()
	}
	sess.Append(ai.RoleAssistant, out)

	if err := p.sessions.Save(ctx, sess); err != nil {
		return nil, err
	}
	return &Reply{Content: out, Failed: failed, Selected: sess.Selected, Messages: sess.Visible()}, nil
}

func itineraryInstruction(t types.TripRequest) string {
	if t.HasPet() {
		return itinerarySystemPrompt + petClause
	}
	return itinerarySystemPrompt
}

func itineraryUserPrompt(t types.TripRequest, place string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "現在地は「%s」です。", t.Residence)
	fmt.Fprintf(&b, "旅行のメンバーは「%s」で、期間は「%s」、", t.Companion, t.Duration)
	fmt.Fprintf(&b, "一人当たりの予算は「%s」です。", t.Budget)
	fmt.Fprintf(&b, "気分は「%s」で、場所は「%s」の中からお願いします。", t.Mood, t.Scope)
	if t.StartDate != "" {
		fmt.Fprintf(&b, "出発日は%sです。", t.StartDate)
	}
	if r := strings.TrimSpace(t.Request); r != "" {
		fmt.Fprintf(&b, "\nその他、以下の具体的な要望があります。「%s」。この要望を最優先してください。", r)
	}
	fmt.Fprintf(&b, "\n行き先は「%s」に決定しました。この場所での詳細なモデルコースを作成してください。", place)
	return b.String()
}
