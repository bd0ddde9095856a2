package download

import (
	"encoding/json"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// checkpointState is persisted as JSON so an interrupted download can
// resume where it stopped.
type checkpointState struct {
	LastCompletedDate string    `json:"last_completed_date"`
	NumRows           int       `json:"num_rows"`
	Timestamp         time.Time `json:"timestamp"`
}

// CheckpointManager manages download checkpoints for resumability.
type CheckpointManager struct {
	path   string
	state  checkpointState
	logger zerolog.Logger
}

// NewCheckpointManager loads any existing checkpoint at path.
func NewCheckpointManager(path string, logger zerolog.Logger) *CheckpointManager {
	m := &CheckpointManager{path: path, logger: logger}

	data, err := os.ReadFile(path)
	if err != nil {
		return m
	}
	if err := json.Unmarshal(data, &m.state); err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("failed to load checkpoint, starting fresh")
		m.state = checkpointState{}
	}
	return m
}

// Save records the last fully downloaded date and row count.
func (m *CheckpointManager) Save(lastDate time.Time, numRows int) {
	m.state.LastCompletedDate = lastDate.Format("2006-01-02")
	m.state.NumRows = numRows
	m.state.Timestamp = time.Now()

	data, err := json.MarshalIndent(m.state, "", "  ")
	if err != nil {
		m.logger.Error().Err(err).Msg("failed to encode checkpoint")
		return
	}
	if err := os.WriteFile(m.path, data, 0644); err != nil {
		m.logger.Error().Err(err).Str("path", m.path).Msg("failed to save checkpoint")
		return
	}
	m.logger.Info().Str("date", m.state.LastCompletedDate).Msg("checkpoint saved")
}

// LastCompletedDate returns the resume point, if any.
func (m *CheckpointManager) LastCompletedDate() (time.Time, bool) {
	if m.state.LastCompletedDate == "" {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", m.state.LastCompletedDate)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Clear removes the checkpoint file after a completed download.
func (m *CheckpointManager) Clear() {
	if err := os.Remove(m.path); err != nil && !os.IsNotExist(err) {
		m.logger.Warn().Err(err).Msg("failed to clear checkpoint")
	}
	m.state = checkpointState{}
}
