package services

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/episode-duplication/internal/data/repos"
	types "github.com/yungbote/episode-duplication/internal/domain"
	"github.com/yungbote/episode-duplication/internal/domain/duplication"
	"github.com/yungbote/episode-duplication/internal/jobs/orchestrator"
	"github.com/yungbote/episode-duplication/internal/pkg/dbctx"
	pkgerrors "github.com/yungbote/episode-duplication/internal/pkg/errors"
	"github.com/yungbote/episode-duplication/internal/platform/apierr"
	"github.com/yungbote/episode-duplication/internal/platform/logger"
)

type DuplicationService interface {
	// Begin creates a pending duplication record for sourceEpisodeID and hands
	// its chain to the configured runner. The returned record's id is the
	// duplication id.
	Begin(dbc dbctx.Context, sourceEpisodeID uuid.UUID) (*types.Duplication, error)
	Get(dbc dbctx.Context, id uuid.UUID) (*types.Duplication, error)
	ListForEpisode(dbc dbctx.Context, sourceEpisodeID uuid.UUID) ([]*types.Duplication, error)
}

type duplicationService struct {
	db        *gorm.DB
	log       *logger.Logger
	episodes  repos.EpisodeRepo
	repo      repos.DuplicationRepo
	submitter orchestrator.Submitter
	now       func() time.Time
}

func NewDuplicationService(
	db *gorm.DB,
	baseLog *logger.Logger,
	episodes repos.EpisodeRepo,
	repo repos.DuplicationRepo,
	submitter orchestrator.Submitter,
) DuplicationService {
	return &duplicationService{
		db:        db,
		log:       baseLog.With("service", "DuplicationService"),
		episodes:  episodes,
		repo:      repo,
		submitter: submitter,
		now:       time.Now,
	}
}

func (s *duplicationService) Begin(dbc dbctx.Context, sourceEpisodeID uuid.UUID) (*types.Duplication, error) {
	if sourceEpisodeID == uuid.Nil {
		return nil, apierr.New(http.StatusBadRequest, "invalid_episode_id", fmt.Errorf("%w: missing source_episode_id", pkgerrors.ErrInvalidArgument))
	}
	if s.submitter == nil {
		return nil, fmt.Errorf("duplication runner not configured")
	}
	// The record must be committed before the chain can see it, so Begin never
	// joins a caller transaction.
	own := dbctx.Context{Ctx: dbc.Ctx}

	ep, err := s.episodes.GetByID(own, sourceEpisodeID)
	if err != nil {
		return nil, fmt.Errorf("load source episode: %w", err)
	}
	if ep == nil {
		return nil, apierr.New(http.StatusNotFound, "episode_not_found", fmt.Errorf("episode %s: %w", sourceEpisodeID, pkgerrors.ErrNotFound))
	}

	d := duplication.New(sourceEpisodeID, s.now().UTC())
	if err := s.repo.Create(own, d); err != nil {
		return nil, fmt.Errorf("create duplication: %w", err)
	}

	log := s.log.With("duplication_id", d.ID, "source_episode_id", sourceEpisodeID)
	if err := s.submitter.Submit(own.Ctx, orchestrator.DuplicationChain(d.ID, sourceEpisodeID)); err != nil {
		log.Error("Failed to submit duplication chain; marking failed", "error", err)
		if merr := s.repo.MarkFailed(own, d.ID); merr != nil {
			log.Error("Failed to mark unsubmitted duplication failed", "error", merr)
		}
		return nil, fmt.Errorf("submit duplication chain: %w", err)
	}
	log.Info("Duplication submitted")
	return d, nil
}

func (s *duplicationService) Get(dbc dbctx.Context, id uuid.UUID) (*types.Duplication, error) {
	if id == uuid.Nil {
		return nil, apierr.New(http.StatusBadRequest, "invalid_duplication_id", fmt.Errorf("%w: missing duplication id", pkgerrors.ErrInvalidArgument))
	}
	d, err := s.repo.GetByID(dbc, id)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, apierr.New(http.StatusNotFound, "duplication_not_found", fmt.Errorf("duplication %s: %w", id, pkgerrors.ErrNotFound))
	}
	return d, nil
}

func (s *duplicationService) ListForEpisode(dbc dbctx.Context, sourceEpisodeID uuid.UUID) ([]*types.Duplication, error) {
	if sourceEpisodeID == uuid.Nil {
		return nil, apierr.New(http.StatusBadRequest, "invalid_episode_id", fmt.Errorf("%w: missing source_episode_id", pkgerrors.ErrInvalidArgument))
	}
	return s.repo.ListBySourceEpisode(dbc, sourceEpisodeID)
}

// IsNotFound reports whether err came from a missing episode or duplication.
func IsNotFound(err error) bool { return errors.Is(err, pkgerrors.ErrNotFound) }

// IsInvalid reports whether err came from bad caller input.
func IsInvalid(err error) bool { return errors.Is(err, pkgerrors.ErrInvalidArgument) }
