// Package settings persists per-game state for smd, most importantly the
// active-unlocker map keyed by app id. The unlocker engine only ever
// talks to the Store interface; persistence stays out of the core.
package settings

import (
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/Midrags/SMD/internal/errors"
	"github.com/Midrags/SMD/internal/paths"
	"github.com/Midrags/SMD/pkg/fileutil"
)

// Store is the external key-value collaborator the unlocker manager reads
// and writes the active technique through.
type Store interface {
	// ActiveUnlocker returns the recorded unlocker name for an app id.
	// ok is false when nothing is recorded.
	ActiveUnlocker(appID int) (name string, ok bool, err error)

	// SetActiveUnlocker records the unlocker name for an app id.
	SetActiveUnlocker(appID int, name string) error

	// ClearActiveUnlocker removes any record for an app id.
	ClearActiveUnlocker(appID int) error
}

// fileData is the on-disk TOML shape.
type fileData struct {
	// ActiveUnlockers maps stringified app id to unlocker name.
	ActiveUnlockers map[string]string `toml:"active_unlockers"`
}

// FileStore is a TOML-file-backed Store. Writes go through a temp file +
// rename so an interrupted write never truncates the settings file.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a store backed by the given file path.
// A missing file reads as an empty store.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Default returns a store at the standard settings location.
func Default() *FileStore {
	return NewFileStore(paths.SettingsPath())
}

// ActiveUnlocker implements Store.
func (s *FileStore) ActiveUnlocker(appID int) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return "", false, err
	}
	name, ok := data.ActiveUnlockers[strconv.Itoa(appID)]
	return name, ok, nil
}

// SetActiveUnlocker implements Store.
func (s *FileStore) SetActiveUnlocker(appID int, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return err
	}
	if data.ActiveUnlockers == nil {
		data.ActiveUnlockers = make(map[string]string)
	}
	data.ActiveUnlockers[strconv.Itoa(appID)] = name
	return s.save(data)
}

// ClearActiveUnlocker implements Store.
func (s *FileStore) ClearActiveUnlocker(appID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := data.ActiveUnlockers[strconv.Itoa(appID)]; !ok {
		return nil
	}
	delete(data.ActiveUnlockers, strconv.Itoa(appID))
	return s.save(data)
}

func (s *FileStore) load() (*fileData, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &fileData{}, nil
		}
		return nil, errors.Wrap(err, "reading settings file")
	}

	var data fileData
	if err := toml.Unmarshal(raw, &data); err != nil {
		return nil, errors.Wrap(err, "parsing settings file")
	}
	return &data, nil
}

func (s *FileStore) save(data *fileData) error {
	if err := paths.EnsureDir(filepath.Dir(s.path), 0); err != nil {
		return errors.Wrap(err, "creating settings directory")
	}

	raw, err := toml.Marshal(data)
	if err != nil {
		return errors.Wrap(err, "marshaling settings")
	}
	return fileutil.AtomicWriteFile(s.path, raw, 0o644)
}
