package service

import (
	"context"
	"regexp"
	"strings"

	"tabiplan/internal/ai"
)

// ExportFilename is the suggested name of the downloaded plan.
const ExportFilename = "travel_plan.txt"

// ExportScope selects what Export returns.
type ExportScope string

const (
	ExportPlan       ExportScope = "plan"
	ExportTranscript ExportScope = "transcript"
)

var (
	mdLink    = regexp.MustCompile(`\[([^\]]*)\]\(([^)]*)\)`)
	mdHeading = regexp.MustCompile(`(?m)^[ \t]*#{1,6}[ \t]*`)
	mdBold    = regexp.MustCompile(`\*\*|__`)
	mdBullet  = regexp.MustCompile(`(?m)^([ \t]*)(?:[-*+][ \t]+|・[ \t]*)`)
)

// CleanMarkdownForDownload turns an itinerary written in Markdown into plain
// text: links become "label (url)", heading and bold markers and leading list
// bullets are removed.
func CleanMarkdownForDownload(text string) string {
	text = mdLink.ReplaceAllString(text, "$1 ($2)")
	text = mdBold.ReplaceAllString(text, "")
	text = mdHeading.ReplaceAllString(text, "")
	text = mdBullet.ReplaceAllString(text, "$1")
	return text
}

// Export returns the downloadable text for a session: by default the
// cleaned final plan, or with ExportTranscript the whole visible exchange.
func (p *Planner) Export(ctx context.Context, sessionID string, scope ExportScope) (string, error) {
	sess, err := p.sessions.Get(ctx, sessionID)
	if err != nil {
		return "", err
	}
	last, ok := sess.LastAssistant()
	if !ok {
		return "", ErrNothingToExport
	}
	if scope == ExportTranscript {
		return transcript(sess.Visible()), nil
	}
	return CleanMarkdownForDownload(last), nil
}

func transcript(msgs []ai.Message) string {
	var b strings.Builder
	for _, m := range msgs {
		switch m.Role {
		case ai.RoleUser:
			b.WriteString("ユーザーの入力:\n")
		case ai.RoleAssistant:
			b.WriteString("AIの応答:\n")
		default:
			continue
		}
		b.WriteString(m.Content)
		b.WriteString("\n\n")
	}
	return b.String()
}
