package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/doesntneedname/activity-bot/apperrors"
	"github.com/doesntneedname/activity-bot/collector"
	"go.uber.org/zap"
)

// JSONFile keeps the counters in one human-readable JSON object such as
// {"612": 90, "613": 150}. Every update rewrites the whole file.
type JSONFile struct {
	mu   sync.Mutex
	path string
	log  *zap.Logger
}

// NewJSONFile returns a store backed by path. The file is created lazily.
func NewJSONFile(path string, log *zap.Logger) *JSONFile {
	return &JSONFile{path: path, log: log}
}

func (j *JSONFile) Read() (Counters, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.read()
}

func (j *JSONFile) Get(id collector.MetricID) int64 {
	counters, err := j.Read()
	if err != nil {
		j.log.Warn("counter cache unreadable, using 0", zap.Int("card", int(id)), zap.Error(err))
	}
	return counters[id]
}

func (j *JSONFile) Update(id collector.MetricID, value int64) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	counters, err := j.read()
	if err != nil {
		j.log.Warn("counter cache was reset before update", zap.Error(err))
	}
	counters[id] = value
	if err := j.write(counters); err != nil {
		return apperrors.New(apperrors.ErrorTypeCacheIO, "update "+j.path, err)
	}
	j.log.Info("counter cache updated", zap.Int("card", int(id)), zap.Int64("value", value))
	return nil
}

// Close is a no-op; the file is not held open.
func (j *JSONFile) Close() error { return nil }

// read loads the file and heals it when it is missing, blank or malformed.
// Callers hold j.mu.
func (j *JSONFile) read() (Counters, error) {
	raw, err := os.ReadFile(j.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		j.log.Info("counter cache file missing, creating it", zap.String("path", j.path))
		return j.reset(nil)
	case err != nil:
		return j.reset(err)
	case strings.TrimSpace(string(raw)) == "":
		j.log.Warn("counter cache file is empty, initialising", zap.String("path", j.path))
		return j.reset(nil)
	}

	var stored map[string]json.Number
	if err := json.Unmarshal(raw, &stored); err != nil {
		return j.reset(fmt.Errorf("parse %s: %w", j.path, err))
	}

	counters := make(Counters, len(stored))
	for key, num := range stored {
		id, err := strconv.Atoi(key)
		if err != nil {
			j.log.Warn("dropping non-numeric counter key", zap.String("key", key))
			continue
		}
		v, err := num.Int64()
		if err != nil {
			f, ferr := num.Float64()
			if ferr != nil {
				j.log.Warn("dropping non-numeric counter value", zap.String("key", key))
				continue
			}
			v = int64(f)
		}
		counters[collector.MetricID(id)] = v
	}
	return counters, nil
}

// reset rewrites the file as an empty object. cause is what made the reset
// necessary; nil means the file simply did not exist or was blank.
func (j *JSONFile) reset(cause error) (Counters, error) {
	if werr := j.write(Counters{}); werr != nil {
		j.log.Error("cannot initialise counter cache", zap.String("path", j.path), zap.Error(werr))
		if cause == nil {
			cause = werr
		}
	}
	if cause == nil {
		return Counters{}, nil
	}
	j.log.Error("counter cache unreadable, starting from empty", zap.String("path", j.path), zap.Error(cause))
	return Counters{}, apperrors.New(apperrors.ErrorTypeCacheIO, "read "+j.path, cause)
}

func (j *JSONFile) write(c Counters) error {
	stored := make(map[string]int64, len(c))
	for id, v := range c {
		stored[strconv.Itoa(int(id))] = v
	}
	raw, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return err
	}

	if dir := filepath.Dir(j.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(j.path, raw, 0o644)
}
