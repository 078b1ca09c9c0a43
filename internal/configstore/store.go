// Package configstore persists channel configurations as one JSON document
// per config under a directory. Documents keep the camelCase wire shape so
// files written by earlier tooling load unchanged.
package configstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"channel-reconciler/internal/models"
	apperrors "channel-reconciler/pkg/errors"
	"channel-reconciler/pkg/logger"
)

// Store reads and writes channel configurations in one directory
type Store struct {
	dir string
	log logger.Logger
}

// New opens a config store, creating the directory if needed
func New(dir string, log logger.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, apperrors.FileError(apperrors.CodeFileWrite, dir, err)
	}
	return &Store{dir: dir, log: log.WithComponent("configstore")}, nil
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// Save validates and writes a configuration. A config without an ID gets a
// fresh UUID; timestamps are maintained here.
func (s *Store) Save(cfg *models.ChannelConfig) error {
	cfg.Match.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
		cfg.CreatedAt = now
	}
	cfg.UpdatedAt = now

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return apperrors.InternalError("encode config", err)
	}
	if err := os.WriteFile(s.path(cfg.ID), data, 0o644); err != nil {
		return apperrors.FileError(apperrors.CodeFileWrite, s.path(cfg.ID), err)
	}

	s.log.WithFields(logger.Fields{
		"config": cfg.ID,
		"name":   cfg.Name,
	}).Info("config saved")
	return nil
}

// Load reads one configuration by id. The loaded snapshot is validated so a
// hand-edited file cannot smuggle a broken config into a run.
func (s *Store) Load(id string) (*models.ChannelConfig, error) {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.FileError(apperrors.CodeFileNotFound, s.path(id), err)
		}
		return nil, apperrors.FileError(apperrors.CodeFileRead, s.path(id), err)
	}

	cfg := &models.ChannelConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, apperrors.FileError(apperrors.CodeFileRead, s.path(id), err)
	}
	cfg.Match.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// List returns every stored configuration, sorted by name
func (s *Store) List() ([]*models.ChannelConfig, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, apperrors.FileError(apperrors.CodeFileRead, s.dir, err)
	}

	var out []*models.ChannelConfig
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		cfg, err := s.Load(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			s.log.WithError(err).WithField("file", entry.Name()).Warn("skipping unreadable config")
			continue
		}
		out = append(out, cfg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Delete removes one configuration
func (s *Store) Delete(id string) error {
	if err := os.Remove(s.path(id)); err != nil {
		if os.IsNotExist(err) {
			return apperrors.FileError(apperrors.CodeFileNotFound, s.path(id), err)
		}
		return apperrors.FileError(apperrors.CodeFileWrite, s.path(id), err)
	}
	s.log.WithField("config", id).Info("config deleted")
	return nil
}
