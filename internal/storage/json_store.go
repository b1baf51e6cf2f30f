package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"

	"github.com/julianstephens/autoblock/internal/constants"
	apperrors "github.com/julianstephens/autoblock/internal/errors"
	"github.com/julianstephens/autoblock/internal/models"
)

// JSONRunConfigStore keeps the run config as a single JSON file in the
// state directory.
//
// Not safe for concurrent writers. Only install writes it, runs only read.
type JSONRunConfigStore struct {
	path string
}

func NewJSONRunConfigStore(stateDir string) *JSONRunConfigStore {
	return &JSONRunConfigStore{
		path: filepath.Join(stateDir, constants.RunConfigFileName),
	}
}

func (s *JSONRunConfigStore) Save(set models.ScheduleSet) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	data, err := json.MarshalIndent(set, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize run config: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write run config: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace run config: %w", err)
	}
	return nil
}

func (s *JSONRunConfigStore) Load() (models.ScheduleSet, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return models.ScheduleSet{}, apperrors.Configf("run config %s not found, run 'autoblock install' first", s.path)
		}
		return models.ScheduleSet{}, fmt.Errorf("failed to read run config: %w", err)
	}

	var set models.ScheduleSet
	if err := json.Unmarshal(data, &set); err != nil {
		return models.ScheduleSet{}, apperrors.Configf("run config %s is not valid JSON: %v", s.path, err)
	}
	return set, nil
}

func (s *JSONRunConfigStore) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

func (s *JSONRunConfigStore) Path() string {
	return s.path
}
