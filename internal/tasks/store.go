// Package tasks keeps the run history: one JSON document per completed
// reconciliation task plus the full result alongside it.
package tasks

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"channel-reconciler/internal/models"
	apperrors "channel-reconciler/pkg/errors"
	"channel-reconciler/pkg/logger"
)

const resultSuffix = "-result.json"

// Store persists tasks and their results in one directory
type Store struct {
	dir string
	log logger.Logger
}

// New opens a task store, creating the directory if needed
func New(dir string, log logger.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, apperrors.FileError(apperrors.CodeFileWrite, dir, err)
	}
	return &Store{dir: dir, log: log.WithComponent("tasks")}, nil
}

func (s *Store) taskPath(id string) string {
	return filepath.Join(s.dir, id+".json")
}

func (s *Store) resultPath(id string) string {
	return filepath.Join(s.dir, id+resultSuffix)
}

// Save writes a completed task and its result
func (s *Store) Save(task *models.ReconciliationTask, result *models.ReconciliationResult) error {
	data, err := json.MarshalIndent(task, "", "  ")
	if err != nil {
		return apperrors.InternalError("encode task", err)
	}
	if err := os.WriteFile(s.taskPath(task.TaskID), data, 0o644); err != nil {
		return apperrors.FileError(apperrors.CodeFileWrite, s.taskPath(task.TaskID), err)
	}

	if result != nil {
		data, err = json.Marshal(result)
		if err != nil {
			return apperrors.InternalError("encode result", err)
		}
		if err := os.WriteFile(s.resultPath(task.TaskID), data, 0o644); err != nil {
			return apperrors.FileError(apperrors.CodeFileWrite, s.resultPath(task.TaskID), err)
		}
	}

	s.log.WithFields(logger.Fields{
		"task":   task.TaskID,
		"config": task.ConfigID,
	}).Info("task saved")
	return nil
}

// Load reads one task by id
func (s *Store) Load(id string) (*models.ReconciliationTask, error) {
	data, err := os.ReadFile(s.taskPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.FileError(apperrors.CodeFileNotFound, s.taskPath(id), err)
		}
		return nil, apperrors.FileError(apperrors.CodeFileRead, s.taskPath(id), err)
	}
	task := &models.ReconciliationTask{}
	if err := json.Unmarshal(data, task); err != nil {
		return nil, apperrors.FileError(apperrors.CodeFileRead, s.taskPath(id), err)
	}
	return task, nil
}

// LoadResult reads one task's stored result
func (s *Store) LoadResult(id string) (*models.ReconciliationResult, error) {
	data, err := os.ReadFile(s.resultPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.FileError(apperrors.CodeFileNotFound, s.resultPath(id), err)
		}
		return nil, apperrors.FileError(apperrors.CodeFileRead, s.resultPath(id), err)
	}
	result := &models.ReconciliationResult{}
	if err := json.Unmarshal(data, result); err != nil {
		return nil, apperrors.FileError(apperrors.CodeFileRead, s.resultPath(id), err)
	}
	return result, nil
}

// List returns every task, newest first. Pass an empty configID to list
// across all configs.
func (s *Store) List(configID string) ([]*models.ReconciliationTask, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, apperrors.FileError(apperrors.CodeFileRead, s.dir, err)
	}

	var out []*models.ReconciliationTask
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") || strings.HasSuffix(name, resultSuffix) {
			continue
		}
		task, err := s.Load(strings.TrimSuffix(name, ".json"))
		if err != nil {
			s.log.WithError(err).WithField("file", name).Warn("skipping unreadable task")
			continue
		}
		if configID != "" && task.ConfigID != configID {
			continue
		}
		out = append(out, task)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Delete removes a task and its result
func (s *Store) Delete(id string) error {
	if err := os.Remove(s.taskPath(id)); err != nil {
		if os.IsNotExist(err) {
			return apperrors.FileError(apperrors.CodeFileNotFound, s.taskPath(id), err)
		}
		return apperrors.FileError(apperrors.CodeFileWrite, s.taskPath(id), err)
	}
	if err := os.Remove(s.resultPath(id)); err != nil && !os.IsNotExist(err) {
		return apperrors.FileError(apperrors.CodeFileWrite, s.resultPath(id), err)
	}
	s.log.WithField("task", id).Info("task deleted")
	return nil
}
