package model

import (
	"bytes"
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/YuminosukeSato/seriesml/pkg/errors"
	"github.com/YuminosukeSato/seriesml/pkg/log"
)

// BadgerOptions configures a BadgerStore.
type BadgerOptions struct {
	// Path is the database directory; ignored when InMemory is set.
	Path string

	// InMemory keeps everything in memory, for tests.
	InMemory bool

	// SyncWrites fsyncs every publish.
	SyncWrites bool

	Logger log.Logger
}

// badgerLogger routes badger's internal logging to our logger.
type badgerLogger struct {
	logger log.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// BadgerStore keeps model documents in a badger database, keyed by run id and
// zero-padded epoch so key order is epoch order.
type BadgerStore struct {
	db *badger.DB
}

// OpenBadgerStore opens or creates the database.
func OpenBadgerStore(opts BadgerOptions) (*BadgerStore, error) {
	if !opts.InMemory && opts.Path == "" {
		return nil, errors.NewValidationError("path", "path is required for a persistent store", opts.Path)
	}

	var bo badger.Options
	if opts.InMemory {
		bo = badger.DefaultOptions("").WithInMemory(true)
	} else {
		bo = badger.DefaultOptions(opts.Path)
	}
	bo = bo.WithSyncWrites(opts.SyncWrites).WithNumVersionsToKeep(1)
	if opts.Logger != nil {
		bo = bo.WithLogger(&badgerLogger{logger: opts.Logger})
	} else {
		bo = bo.WithLogger(nil)
	}

	db, err := badger.Open(bo)
	if err != nil {
		return nil, errors.Wrap(err, "open badger model store")
	}
	return &BadgerStore{db: db}, nil
}

func runPrefix(runID string) []byte {
	return []byte("model/" + runID + "/")
}

func epochKey(runID string, epoch int) []byte {
	return append(runPrefix(runID), fmt.Sprintf("%010d", epoch)...)
}

// Publish implements Store.
func (s *BadgerStore) Publish(ctx context.Context, doc *Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if doc.RunID == "" {
		return errors.NewValidationError("run_id", "document has no run id", doc.RunID)
	}
	var buf bytes.Buffer
	if err := SaveToWriter(doc, &buf); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(epochKey(doc.RunID, doc.Epoch), buf.Bytes())
	})
	if err != nil {
		return errors.NewModelError("BadgerStore.Publish", "write", err)
	}
	return nil
}

// Latest implements Store.
func (s *BadgerStore) Latest(ctx context.Context, runID string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var doc *Document
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = runPrefix(runID)
		it := txn.NewIterator(opts)
		defer it.Close()

		// seek past the last possible epoch key of the run
		it.Seek(append(runPrefix(runID), 0xff))
		if !it.Valid() {
			return errors.Wrapf(errors.ErrNotFound, "run %s", runID)
		}
		return it.Item().Value(func(val []byte) error {
			d, err := LoadFromReader(bytes.NewReader(val))
			doc = d
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// History implements Store.
func (s *BadgerStore) History(ctx context.Context, runID string) ([]*Document, error) {
	var docs []*Document
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = runPrefix(runID)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			err := it.Item().Value(func(val []byte) error {
				d, err := LoadFromReader(bytes.NewReader(val))
				if err == nil {
					docs = append(docs, d)
				}
				return err
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, errors.Wrapf(errors.ErrNotFound, "run %s", runID)
	}
	return docs, nil
}

// Close implements Store.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}
