package duplication

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	types "github.com/yungbote/episode-duplication/internal/domain"
)

var (
	ErrOriginalEpisodeNotFound = errors.New("original episode not found")
	ErrNewEpisodeIDMissing     = errors.New("new episode id missing")
)

// Stable names for the fatal conditions, used wherever errors cross a process
// boundary (workflow failures, logs).
const (
	ErrorTypeOriginalEpisodeNotFound = "OriginalEpisodeNotFound"
	ErrorTypeNewEpisodeIDMissing     = "NewEpisodeIdMissing"
)

type OriginalEpisodeNotFoundError struct {
	DuplicationID uuid.UUID
	EpisodeID     uuid.UUID
}

func (e *OriginalEpisodeNotFoundError) Error() string {
	return fmt.Sprintf("original episode %s not found (duplication %s)", e.EpisodeID, e.DuplicationID)
}

func (e *OriginalEpisodeNotFoundError) Is(target error) bool {
	return target == ErrOriginalEpisodeNotFound
}

type NewEpisodeIDMissingError struct {
	DuplicationID uuid.UUID
	Stage         types.DuplicationStage
}

func (e *NewEpisodeIDMissingError) Error() string {
	return fmt.Sprintf("new episode id not set on duplication %s before %s stage", e.DuplicationID, e.Stage)
}

func (e *NewEpisodeIDMissingError) Is(target error) bool {
	return target == ErrNewEpisodeIDMissing
}

// IsFatal reports whether err can never succeed on retry.
func IsFatal(err error) bool {
	return errors.Is(err, ErrOriginalEpisodeNotFound) || errors.Is(err, ErrNewEpisodeIDMissing)
}

// ErrorType names err for logs and workflow failures.
func ErrorType(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrOriginalEpisodeNotFound):
		return ErrorTypeOriginalEpisodeNotFound
	case errors.Is(err, ErrNewEpisodeIDMissing):
		return ErrorTypeNewEpisodeIDMissing
	default:
		inner := err
		for next := errors.Unwrap(inner); next != nil; next = errors.Unwrap(inner) {
			inner = next
		}
		return fmt.Sprintf("%T", inner)
	}
}
