package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/yungbote/episode-duplication/internal/domain"
	"github.com/yungbote/episode-duplication/internal/http/response"
	"github.com/yungbote/episode-duplication/internal/pkg/dbctx"
	"github.com/yungbote/episode-duplication/internal/platform/apierr"
	"github.com/yungbote/episode-duplication/internal/platform/logger"
	"github.com/yungbote/episode-duplication/internal/services"
)

type DuplicationHandler struct {
	log          *logger.Logger
	duplications services.DuplicationService
}

func NewDuplicationHandler(log *logger.Logger, duplications services.DuplicationService) *DuplicationHandler {
	return &DuplicationHandler{
		log:          log.With("handler", "DuplicationHandler"),
		duplications: duplications,
	}
}

type duplicationView struct {
	ID              uuid.UUID                 `json:"id"`
	SourceEpisodeID uuid.UUID                 `json:"source_episode_id"`
	TargetEpisodeID *uuid.UUID                `json:"target_episode_id,omitempty"`
	Status          types.DuplicationStatus   `json:"status"`
	Progress        types.DuplicationProgress `json:"progress"`
}

func viewOf(d *types.Duplication) duplicationView {
	return duplicationView{
		ID:              d.ID,
		SourceEpisodeID: d.SourceEpisodeID,
		TargetEpisodeID: d.TargetEpisodeID,
		Status:          d.Status,
		Progress:        d.ProgressMap(),
	}
}

// POST /api/episodes/:id/duplications
func (h *DuplicationHandler) Begin(c *gin.Context) {
	episodeID, err := uuid.Parse(c.Param("id"))
	if err != nil || episodeID == uuid.Nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_episode_id", err)
		return
	}
	d, err := h.duplications.Begin(dbctx.Context{Ctx: c.Request.Context()}, episodeID)
	if err != nil {
		h.respondServiceError(c, "begin_duplication_failed", err)
		return
	}
	response.RespondAccepted(c, gin.H{"duplication": viewOf(d)})
}

// GET /api/duplications/:id
func (h *DuplicationHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil || id == uuid.Nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_duplication_id", err)
		return
	}
	d, err := h.duplications.Get(dbctx.Context{Ctx: c.Request.Context()}, id)
	if err != nil {
		h.respondServiceError(c, "load_duplication_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"duplication": viewOf(d)})
}

// GET /api/episodes/:id/duplications
func (h *DuplicationHandler) ListForEpisode(c *gin.Context) {
	episodeID, err := uuid.Parse(c.Param("id"))
	if err != nil || episodeID == uuid.Nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_episode_id", err)
		return
	}
	list, err := h.duplications.ListForEpisode(dbctx.Context{Ctx: c.Request.Context()}, episodeID)
	if err != nil {
		h.respondServiceError(c, "list_duplications_failed", err)
		return
	}
	out := make([]duplicationView, 0, len(list))
	for _, d := range list {
		out = append(out, viewOf(d))
	}
	response.RespondOK(c, gin.H{"duplications": out})
}

func (h *DuplicationHandler) respondServiceError(c *gin.Context, code string, err error) {
	var ae *apierr.Error
	if errors.As(err, &ae) {
		response.RespondError(c, ae.Status, ae.Code, ae.Err)
		return
	}
	h.log.Error("Duplication request failed", "code", code, "error", err)
	response.RespondError(c, http.StatusInternalServerError, code, err)
}
