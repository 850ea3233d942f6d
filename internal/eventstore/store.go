package eventstore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"tixwatch-backend/internal/model"
	"tixwatch-backend/lib/timezone"
)

// ErrMalformed is returned when a collection file lacks a required key.
var ErrMalformed = errors.New("malformed event collection")

// Decode parses a collection document, rejecting one without "events".
func Decode(data []byte) (model.EventCollection, error) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return model.EventCollection{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if _, ok := keys["events"]; !ok {
		return model.EventCollection{}, fmt.Errorf("%w: missing 'events'", ErrMalformed)
	}

	var out model.EventCollection
	if err := json.Unmarshal(data, &out); err != nil {
		return model.EventCollection{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if out.Events == nil {
		out.Events = []model.EventRecord{}
	}
	return out, nil
}

// Encode renders a collection the way it is persisted: indented, with
// non-ASCII text left unescaped.
func Encode(c model.EventCollection) ([]byte, error) {
	if c.Events == nil {
		c.Events = []model.EventRecord{}
	}
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(c); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Load reads a collection file. A missing file is an error here, callers
// that want to start empty use Open.
func Load(path string) (model.EventCollection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.EventCollection{}, err
	}
	c, err := Decode(data)
	if err != nil {
		return model.EventCollection{}, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Save replaces path with c. The document is written to a temporary file
// in the same directory, synced and then renamed over the target, so a
// reader only ever sees the previous or the new complete document.
func Save(path string, c model.EventCollection) error {
	data, err := Encode(c)
	if err != nil {
		return err
	}
	return WriteAtomic(path, data)
}

// WriteAtomic writes data to path through a synced temporary file.
func WriteAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	_, err = tmp.Write(data)
	if err == nil {
		err = tmp.Sync()
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Store is a collection bound to its backing file. Every Put reconciles one
// record and rewrites the whole file before returning, so an interrupted
// run loses at most the record in flight.
type Store struct {
	path       string
	collection model.EventCollection
}

// Open loads path, starting from an empty collection when it does not exist.
func Open(path string) (*Store, error) {
	c, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Info("starting new event collection", "path", path)
		now := timezone.Stamp()
		c = model.EventCollection{
			ScrapeTime:  now,
			LastUpdate:  now,
			SuccessRate: SuccessRate(0, 0),
			Events:      []model.EventRecord{},
		}
		err = nil
	}
	if err != nil {
		return nil, err
	}
	return &Store{path: path, collection: c}, nil
}

func (s *Store) Path() string {
	return s.path
}

// Collection returns a copy of the current collection.
func (s *Store) Collection() model.EventCollection {
	return s.collection.Clone()
}

// Lookup returns the stored record with the given url.
func (s *Store) Lookup(url string) (model.EventRecord, bool) {
	i := s.collection.Find(url)
	if i < 0 {
		return model.EventRecord{}, false
	}
	return s.collection.Events[i].Clone(), true
}

// Put reconciles rec and persists the result. The in-memory collection is
// only advanced when the write succeeded.
func (s *Store) Put(rec model.EventRecord) error {
	return s.PutAll([]model.EventRecord{rec})
}

// PutAll reconciles records as one batch and persists the result once.
func (s *Store) PutAll(records []model.EventRecord) error {
	next := Reconcile(s.collection, records, timezone.Now())
	if err := Save(s.path, next); err != nil {
		return fmt.Errorf("persist %s: %w", s.path, err)
	}
	s.collection = next
	return nil
}

// Update applies fn to a copy of the collection and persists the result,
// used for run-level metadata that is not part of any record.
func (s *Store) Update(fn func(c *model.EventCollection)) error {
	next := s.collection.Clone()
	fn(&next)
	Recount(&next)
	if err := Save(s.path, next); err != nil {
		return fmt.Errorf("persist %s: %w", s.path, err)
	}
	s.collection = next
	return nil
}
