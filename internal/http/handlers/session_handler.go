// README: Session endpoints: suggestions, destination choice, itinerary chat and export.
package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"tabiplan/internal/ai"
	"tabiplan/internal/modules/session"
	"tabiplan/internal/service"
	"tabiplan/internal/types"
)

// modelActionTimeout covers one model call plus the preview lookups.
const modelActionTimeout = 2 * time.Minute

type SessionHandler struct {
	planner *service.Planner
}

func NewSessionHandler(planner *service.Planner) *SessionHandler {
	return &SessionHandler{planner: planner}
}

type sessionView struct {
	ID         string                       `json:"id"`
	Trip       *types.TripRequest           `json:"trip,omitempty"`
	Candidates []types.DestinationCandidate `json:"candidates"`
	Selected   string                       `json:"selected,omitempty"`
	Messages   []ai.Message                 `json:"messages"`
	UpdatedAt  time.Time                    `json:"updated_at"`
}

func toView(s *session.Session) sessionView {
	return sessionView{
		ID:         s.ID,
		Trip:       s.Trip,
		Candidates: s.Candidates,
		Selected:   s.Selected,
		Messages:   s.Visible(),
		UpdatedAt:  s.UpdatedAt,
	}
}

type suggestionsResp struct {
	SessionID  string                       `json:"session_id"`
	Candidates []types.DestinationCandidate `json:"candidates"`
	Previews   []service.Preview            `json:"previews"`
}

type selectReq struct {
	Index *int `json:"index"`
}

type messageReq struct {
	Message string `json:"message"`
}

// Create handles POST /api/sessions.
func (h *SessionHandler) Create(c *gin.Context) {
	s, err := h.planner.CreateSession(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, gin.H{"id": s.ID})
}

// Get handles GET /api/sessions/:id.
func (h *SessionHandler) Get(c *gin.Context) {
	s, err := h.planner.GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toView(s))
}

// Suggest handles POST /api/sessions/:id/suggestions.
func (h *SessionHandler) Suggest(c *gin.Context) {
	var trip types.TripRequest
	if err := c.ShouldBindJSON(&trip); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), modelActionTimeout)
	defer cancel()

	res, err := h.planner.Suggest(ctx, c.Param("id"), trip)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, suggestionsResp{
		SessionID:  res.Session.ID,
		Candidates: res.Session.Candidates,
		Previews:   res.Previews,
	})
}

// Select handles POST /api/sessions/:id/select.
func (h *SessionHandler) Select(c *gin.Context) {
	var req selectReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Index == nil {
		writeError(c, http.StatusBadRequest, "missing index")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), modelActionTimeout)
	defer cancel()

	reply, err := h.planner.SelectDestination(ctx, c.Param("id"), *req.Index)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, reply)
}

// Message handles POST /api/sessions/:id/messages.
func (h *SessionHandler) Message(c *gin.Context) {
	var req messageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), modelActionTimeout)
	defer cancel()

	reply, err := h.planner.SendMessage(ctx, c.Param("id"), req.Message)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, reply)
}

// Export handles GET /api/sessions/:id/export.
func (h *SessionHandler) Export(c *gin.Context) {
	scope := service.ExportScope(c.DefaultQuery("scope", string(service.ExportPlan)))
	if scope != service.ExportPlan && scope != service.ExportTranscript {
		writeError(c, http.StatusBadRequest, "scope must be plan or transcript")
		return
	}

	text, err := h.planner.Export(c.Request.Context(), c.Param("id"), scope)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, service.ExportFilename))
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(text))
}
