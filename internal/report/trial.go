package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"
)

// Current schema version - increment when Trial format changes
const trialSchemaVersion uint16 = 1

// TrialExtension is the repro-file suffix.
const TrialExtension = ".trial.mp"

// Trial fully determines a reproducible fuzz run: the same seed over the
// same entry and language always regenerates the identical edit sequence.
type Trial struct {
	// Schema version for safe invalidation when the format changes
	Schema uint16 `msgpack:"schema"`

	Seed      uint64 `msgpack:"seed"`
	Language  string `msgpack:"language"`
	EntryName string `msgpack:"entry_name"`
	EntryFile string `msgpack:"entry_file"`
	EditCount int    `msgpack:"edit_count"`
	TimeoutMS int64  `msgpack:"timeout_ms"`
	Alphabet  string `msgpack:"alphabet"`
	// Encoding: "utf-8" или "raw"
	Encoding string `msgpack:"encoding"`
}

func (t *Trial) String() string {
	return fmt.Sprintf("%s/%s seed=%d edits=%d", t.Language, t.EntryName, t.Seed, t.EditCount)
}

// SaveTrial serializes a trial descriptor next to other repro files in dir,
// via a temp file and atomic rename.
func SaveTrial(dir string, t *Trial) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	t.Schema = trialSchemaVersion

	name := fmt.Sprintf("%s-%s-seed%d%s", t.Language, sanitize(t.EntryName), t.Seed, TrialExtension)
	path := filepath.Join(dir, name)

	f, err := os.CreateTemp(dir, "tmp-*")
	if err != nil {
		return "", err
	}
	defer func() {
		_ = os.Remove(f.Name())
	}()

	if err := msgpack.NewEncoder(f).Encode(t); err != nil {
		_ = f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	// Атомарная замена
	if err := os.Rename(f.Name(), path); err != nil {
		return "", err
	}
	return path, nil
}

// LoadTrial reads a trial descriptor back, rejecting unknown schemas.
func LoadTrial(path string) (*Trial, error) {
	// #nosec G304 -- path is provided by the caller
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()

	var t Trial
	if err := msgpack.NewDecoder(f).Decode(&t); err != nil {
		return nil, fmt.Errorf("decode trial %s: %w", path, err)
	}
	if t.Schema != trialSchemaVersion {
		return nil, fmt.Errorf("trial %s has schema %d, expected %d", path, t.Schema, trialSchemaVersion)
	}
	return &t, nil
}

func sanitize(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}
