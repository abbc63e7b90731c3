package duplication

import "fmt"

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Runnable reports whether a stage may do work while the record is in s.
func (s Status) Runnable() bool {
	switch s {
	case StatusPending, StatusInProgress:
		return true
	case StatusCompleted, StatusFailed:
		return false
	default:
		return false
	}
}

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

func ParseStatus(raw string) (Status, error) {
	switch s := Status(raw); s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusFailed:
		return s, nil
	default:
		return "", fmt.Errorf("unknown duplication status %q", raw)
	}
}
