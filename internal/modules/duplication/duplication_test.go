package duplication

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
)

func TestTypedErrorsMatchSentinels(t *testing.T) {
	notFound := fmt.Errorf("episode stage: %w", &OriginalEpisodeNotFoundError{EpisodeID: uuid.New()})
	if !errors.Is(notFound, ErrOriginalEpisodeNotFound) {
		t.Fatalf("errors.Is: wrapped OriginalEpisodeNotFoundError should match sentinel")
	}
	if ErrorType(notFound) != ErrorTypeOriginalEpisodeNotFound || !IsFatal(notFound) {
		t.Fatalf("ErrorType/IsFatal: got=%s fatal=%v", ErrorType(notFound), IsFatal(notFound))
	}

	missing := &NewEpisodeIDMissingError{DuplicationID: uuid.New(), Stage: "items"}
	if !errors.Is(missing, ErrNewEpisodeIDMissing) || errors.Is(missing, ErrOriginalEpisodeNotFound) {
		t.Fatalf("errors.Is: NewEpisodeIDMissingError matched the wrong sentinel")
	}
	if IsFatal(errors.New("connection reset")) {
		t.Fatalf("IsFatal: plain error should not be fatal")
	}
}

func TestLoadSettingsLayersFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "duplication.yaml")
	body := []byte("duplication:\n  inner_chunk_size: 50\n  block_chunk_size: 400\n  tx_attempts: 5\n")
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("DUPLICATION_CONFIG_PATH", path)
	t.Setenv("DUPLICATION_TX_ATTEMPTS", "2")

	s, err := LoadSettings(nil)
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if s.InnerChunkSize != 50 || s.BlockChunkSize != 400 {
		t.Fatalf("LoadSettings file overlay: inner=%d block=%d", s.InnerChunkSize, s.BlockChunkSize)
	}
	if s.TxAttempts != 2 {
		t.Fatalf("LoadSettings env override: want=2 got=%d", s.TxAttempts)
	}
	if s.OuterChunkSize() != 500 {
		t.Fatalf("OuterChunkSize: want=500 got=%d", s.OuterChunkSize())
	}
	if s.ThrottleMaxExceptions != 5 || s.FeatureDeferSeconds != 30 {
		t.Fatalf("LoadSettings defaults lost: %+v", s)
	}
}

func TestLoadSettingsRejectsInvalid(t *testing.T) {
	t.Setenv("DUPLICATION_CONFIG_PATH", "")
	t.Setenv("DUPLICATION_INNER_CHUNK_SIZE", "0")
	if _, err := LoadSettings(nil); err == nil {
		t.Fatalf("LoadSettings: expected error for zero chunk size")
	}
}
