package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"tabiplan/internal/ai"
	"tabiplan/internal/types"
)

func suggested(t *testing.T, h *harness, trip types.TripRequest) string {
	t.Helper()
	id := h.newSession()
	if _, err := h.planner.Suggest(context.Background(), id, trip); err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	return id
}

func TestSelectDestination_SeedsConversation(t *testing.T) {
	h := newHarness(&fakeLLM{replies: []string{threeSuggestions, "# 1日目"}})
	id := suggested(t, h, validTrip())

	reply, err := h.planner.SelectDestination(context.Background(), id, 1)
	if err != nil {
		t.Fatalf("SelectDestination: %v", err)
	}
	if reply.Content != "# 1日目" || reply.Failed || reply.Selected != "日光" {
		t.Fatalf("unexpected reply: %+v", reply)
	}
	if len(reply.Messages) != 2 {
		t.Fatalf("expected user+assistant visible, got %d", len(reply.Messages))
	}

	req := h.llm.request(1)
	if len(req.Messages) != 2 || req.Messages[0].Role != ai.RoleSystem || req.Messages[1].Role != ai.RoleUser {
		t.Fatalf("unexpected seed: %+v", req.Messages)
	}
	if req.MaxTokens != 1000 || req.JSON {
		t.Errorf("unexpected itinerary settings: %+v", req)
	}
	if !strings.Contains(req.Messages[1].Content, "「日光」") {
		t.Error("committed destination missing from user turn")
	}
	if strings.Contains(req.Messages[0].Content, "ペット") {
		t.Error("pet clause added for a family trip")
	}
}

func TestSelectDestination_PetClause(t *testing.T) {
	h := newHarness(&fakeLLM{replies: []string{threeSuggestions, "plan"}})
	trip := validTrip()
	trip.Companion = types.PetCompanion
	id := suggested(t, h, trip)

	if _, err := h.planner.SelectDestination(context.Background(), id, 0); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(h.llm.request(1).Messages[0].Content, "ペット同伴が可能な施設") {
		t.Error("pet-friendly instruction missing")
	}
}

func TestSelectDestination_Errors(t *testing.T) {
	h := newHarness(&fakeLLM{replies: []string{threeSuggestions}})
	ctx := context.Background()

	empty := h.newSession()
	if _, err := h.planner.SelectDestination(ctx, empty, 0); !errors.Is(err, ErrNoCandidates) {
		t.Errorf("before suggestions: got %v", err)
	}

	id := suggested(t, h, validTrip())
	for _, idx := range []int{-1, 3} {
		if _, err := h.planner.SelectDestination(ctx, id, idx); !errors.Is(err, ErrCandidateIndex) {
			t.Errorf("index %d: got %v", idx, err)
		}
	}
	if _, err := h.planner.SelectDestination(ctx, "missing", 0); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("unknown session: got %v", err)
	}
}

func TestSelectDestination_ReselectResets(t *testing.T) {
	h := newHarness(&fakeLLM{replies: []string{threeSuggestions, "p1", "p2", "p3"}})
	id := suggested(t, h, validTrip())
	ctx := context.Background()

	if _, err := h.planner.SelectDestination(ctx, id, 0); err != nil {
		t.Fatal(err)
	}
	if _, err := h.planner.SendMessage(ctx, id, "もっとアクティブに"); err != nil {
		t.Fatal(err)
	}
	reply, err := h.planner.SelectDestination(ctx, id, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(reply.Messages) != 2 || reply.Selected != "軽井沢周辺" {
		t.Fatalf("conversation not reset: %+v", reply)
	}
	if len(h.llm.request(3).Messages) != 2 {
		t.Error("reselection resent the previous conversation")
	}
}

func TestSendMessage_ResendsFullHistory(t *testing.T) {
	h := newHarness(&fakeLLM{replies: []string{threeSuggestions, "p1", "p2", "p3"}})
	id := suggested(t, h, validTrip())
	ctx := context.Background()

	if _, err := h.planner.SelectDestination(ctx, id, 0); err != nil {
		t.Fatal(err)
	}
	if _, err := h.planner.SendMessage(ctx, id, "雨の日の予定も"); err != nil {
		t.Fatal(err)
	}
	reply, err := h.planner.SendMessage(ctx, id, "  夕食は海鮮で  ")
	if err != nil {
		t.Fatal(err)
	}

	req := h.llm.request(3)
	if len(req.Messages) != 6 {
		t.Fatalf("expected system+5 turns, got %d", len(req.Messages))
	}
	if last := req.Messages[5]; last.Role != ai.RoleUser || last.Content != "夕食は海鮮で" {
		t.Errorf("unexpected last turn: %+v", last)
	}
	if reply.Content != "p3" || len(reply.Messages) != 6 {
		t.Errorf("unexpected reply: %+v", reply)
	}
}

func TestSendMessage_Errors(t *testing.T) {
	h := newHarness(&fakeLLM{replies: []string{threeSuggestions}})
	ctx := context.Background()
	id := suggested(t, h, validTrip())

	if _, err := h.planner.SendMessage(ctx, id, "hi"); !errors.Is(err, ErrNoDestination) {
		t.Errorf("before selection: got %v", err)
	}
	if _, err := h.planner.SendMessage(ctx, id, "   "); !errors.Is(err, ErrEmptyMessage) {
		t.Errorf("blank message: got %v", err)
	}
}

func TestSendMessage_ModelFailureKeepsAlternation(t *testing.T) {
	llm := &fakeLLM{
		replies: []string{threeSuggestions, "p1"},
		errs:    []error{nil, nil, errors.New("context deadline exceeded")},
	}
	h := newHarness(llm)
	id := suggested(t, h, validTrip())
	ctx := context.Background()

	if _, err := h.planner.SelectDestination(ctx, id, 0); err != nil {
		t.Fatal(err)
	}
	reply, err := h.planner.SendMessage(ctx, id, "変更して")
	if err != nil {
		t.Fatalf("model failure should not be an error: %v", err)
	}
	if !reply.Failed || !strings.HasPrefix(reply.Content, ErrorReplyPrefix) {
		t.Fatalf("unexpected reply: %+v", reply)
	}

	sess, _ := h.planner.GetSession(ctx, id)
	vis := sess.Visible()
	for i, m := range vis {
		want := ai.RoleUser
		if i%2 == 1 {
			want = ai.RoleAssistant
		}
		if m.Role != want {
			t.Fatalf("turn %d has role %s", i, m.Role)
		}
	}
}

func TestSendMessage_SerializesPerSession(t *testing.T) {
	llm := &fakeLLM{replies: []string{threeSuggestions}}
	h := newHarness(llm)
	id := suggested(t, h, validTrip())
	ctx := context.Background()
	if _, err := h.planner.SelectDestination(ctx, id, 0); err != nil {
		t.Fatal(err)
	}
	llm.delay = 20 * time.Millisecond

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := h.planner.SendMessage(ctx, id, "追加"); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	if llm.overlap != 0 {
		t.Error("model calls for one session overlapped")
	}
	sess, _ := h.planner.GetSession(ctx, id)
	if got := len(sess.Visible()); got != 10 {
		t.Errorf("expected 10 visible turns, got %d", got)
	}
}
