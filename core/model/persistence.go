package model

import (
	"context"
	"encoding/gob"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/YuminosukeSato/seriesml/pkg/errors"
)

// Store publishes model documents between epochs. Publish returns only after
// the document is durable, so the next epoch may safely read it back.
type Store interface {
	Publish(ctx context.Context, doc *Document) error
	Latest(ctx context.Context, runID string) (*Document, error)
	History(ctx context.Context, runID string) ([]*Document, error)
	Close() error
}

// SaveToWriter gob-encodes doc into w.
func SaveToWriter(doc *Document, w io.Writer) error {
	if err := gob.NewEncoder(w).Encode(doc); err != nil {
		return errors.Wrap(err, "failed to encode model")
	}
	return nil
}

// LoadFromReader decodes a gob-encoded document from r.
func LoadFromReader(r io.Reader) (*Document, error) {
	var doc Document
	if err := gob.NewDecoder(r).Decode(&doc); err != nil {
		return nil, errors.Wrap(err, "failed to decode model")
	}
	return &doc, nil
}

// SaveDocument writes doc to filename atomically.
func SaveDocument(doc *Document, filename string) error {
	return writeAtomic(filename, func(w io.Writer) error { return SaveToWriter(doc, w) })
}

// LoadDocument reads a gob-encoded document from filename.
func LoadDocument(filename string) (*Document, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open file")
	}
	defer file.Close()
	return LoadFromReader(file)
}

// WriteJSON writes doc as indented JSON, atomically.
func WriteJSON(doc *Document, filename string) error {
	data, err := doc.ToJSON()
	if err != nil {
		return errors.Wrap(err, "encode model document")
	}
	return writeAtomic(filename, func(w io.Writer) error {
		_, err := w.Write(append(data, '\n'))
		return err
	})
}

// ReadJSON reads and validates a JSON model document.
func ReadJSON(filename string) (*Document, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read model document")
	}
	var doc Document
	if err := doc.FromJSON(data); err != nil {
		return nil, err
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

func writeAtomic(filename string, write func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0o750); err != nil {
		return errors.Wrap(err, "failed to create directory")
	}
	tmp, err := os.CreateTemp(filepath.Dir(filename), ".tmp-"+filepath.Base(filename))
	if err != nil {
		return errors.Wrap(err, "failed to create file")
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errors.Wrap(err, "failed to sync file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "failed to close file")
	}
	return errors.Wrap(os.Rename(tmp.Name(), filename), "failed to publish file")
}

// FileStore keeps one gob file per epoch under dir/<run id>/ plus a
// model.json copy of the latest document.
type FileStore struct {
	dir string
}

// LatestJSON is the file name of the latest document in a run directory.
const LatestJSON = "model.json"

// NewFileStore creates dir if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, errors.Wrap(err, "failed to create model store")
	}
	return &FileStore{dir: dir}, nil
}

// RunDir returns the directory holding runID's documents.
func (s *FileStore) RunDir(runID string) string {
	return filepath.Join(s.dir, runID)
}

func epochFile(epoch int) string {
	return fmt.Sprintf("epoch-%06d.gob", epoch)
}

// Publish implements Store.
func (s *FileStore) Publish(ctx context.Context, doc *Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if doc.RunID == "" {
		return errors.NewValidationError("run_id", "document has no run id", doc.RunID)
	}
	dir := s.RunDir(doc.RunID)
	if err := SaveDocument(doc, filepath.Join(dir, epochFile(doc.Epoch))); err != nil {
		return errors.NewModelError("FileStore.Publish", "write", err)
	}
	if err := WriteJSON(doc, filepath.Join(dir, LatestJSON)); err != nil {
		return errors.NewModelError("FileStore.Publish", "write", err)
	}
	return nil
}

func (s *FileStore) epochFiles(runID string) ([]string, error) {
	entries, err := os.ReadDir(s.RunDir(runID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(errors.ErrNotFound, "run %s", runID)
		}
		return nil, errors.Wrap(err, "failed to list model store")
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), "epoch-") && strings.HasSuffix(e.Name(), ".gob") {
			files = append(files, e.Name())
		}
	}
	if len(files) == 0 {
		return nil, errors.Wrapf(errors.ErrNotFound, "run %s", runID)
	}
	sort.Strings(files)
	return files, nil
}

// Latest implements Store.
func (s *FileStore) Latest(ctx context.Context, runID string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	files, err := s.epochFiles(runID)
	if err != nil {
		return nil, err
	}
	return LoadDocument(filepath.Join(s.RunDir(runID), files[len(files)-1]))
}

// History implements Store.
func (s *FileStore) History(ctx context.Context, runID string) ([]*Document, error) {
	files, err := s.epochFiles(runID)
	if err != nil {
		return nil, err
	}
	docs := make([]*Document, 0, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		doc, err := LoadDocument(filepath.Join(s.RunDir(runID), f))
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Close implements Store.
func (s *FileStore) Close() error { return nil }
