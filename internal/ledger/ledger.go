// Package ledger persists the challenge participants and their routes for a
// single challenge year.
//
// Every mutation reads the whole file, changes it in memory and writes it back
// under a mutex, so concurrent callers observe a total order of complete
// files. Athletes and routes are guarded by separate mutexes; no operation
// needs both.
package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/lildude/challengeledger/internal/config"
	"github.com/lildude/challengeledger/internal/metrics"
	"github.com/sirupsen/logrus"
)

const (
	AthletesFile = "athletes.json"
	RoutesFile   = "routes.json"
)

// Store is the file-backed ledger for one challenge year.
type Store struct {
	dir     string
	rules   config.Rules
	log     logrus.FieldLogger
	metrics *metrics.Metrics

	athleteMu sync.Mutex
	routeMu   sync.Mutex
}

// New returns a Store rooted at dir. New athletes get a snapshot of rules.
func New(dir string, rules config.Rules, log logrus.FieldLogger, m *metrics.Metrics) *Store {
	return &Store{dir: dir, rules: rules, log: log, metrics: m}
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name)
}

// readJSON decodes path into v. It reports false, without error, when the
// file is missing or empty.
func readJSON(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", path, err)
	}
	if len(data) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decoding %s: %w", path, err)
	}
	return true, nil
}

// writeJSON replaces path with the indented encoding of v. The data is written
// to a temporary file in the same directory and renamed over path.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", path, err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // gone after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", tmp.Name(), err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}
