package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

// #region keys
// Key layout:
//
//	cycle/<id>                         → CycleRecord JSON
//	idx/<recorded_at>/<id>             → id, for newest-first listing
//	note/<persona>/<created_at>/<id>   → LearningNote JSON
//
// Timestamps use the fixed-width layout from sqlite.go so byte order is
// time order.
const (
	cyclePrefix = "cycle/"
	indexPrefix = "idx/"
	notePrefix  = "note/"
)

func cycleKey(id string) []byte { return []byte(cyclePrefix + id) }

func indexKey(rec CycleRecord) []byte {
	return []byte(indexPrefix + formatTime(rec.RecordedAt) + "/" + rec.CycleID)
}

func noteKey(n LearningNote) []byte {
	return []byte(notePrefix + n.PersonaID + "/" + formatTime(n.CreatedAt) + "/" + n.CycleID)
}

// #endregion keys

// #region store-struct
// BadgerStore keeps cycle records in an embedded badger key-value store.
type BadgerStore struct {
	db     *badger.DB
	logger *zap.Logger
}

// BadgerOptions configures NewBadgerStore.
type BadgerOptions struct {
	// Path is the data directory. Ignored when InMemory is set.
	Path     string
	InMemory bool
}

// badgerLogger routes badger's internal logging through zap.
type badgerLogger struct {
	s *zap.SugaredLogger
}

func (l badgerLogger) Errorf(format string, args ...any)   { l.s.Errorf(format, args...) }
func (l badgerLogger) Warningf(format string, args ...any) { l.s.Warnf(format, args...) }
func (l badgerLogger) Infof(format string, args ...any)    { l.s.Debugf(format, args...) }
func (l badgerLogger) Debugf(format string, args ...any)   { l.s.Debugf(format, args...) }

// #endregion store-struct

// #region constructor
// NewBadgerStore opens (or creates) a badger store.
func NewBadgerStore(opts BadgerOptions, logger *zap.Logger) (*BadgerStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("memory")

	var bopts badger.Options
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if opts.Path == "" {
			return nil, errors.New("badger path is required unless in-memory")
		}
		if err := os.MkdirAll(opts.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create badger dir %s: %w", opts.Path, err)
		}
		bopts = badger.DefaultOptions(opts.Path)
	}
	bopts = bopts.WithLogger(badgerLogger{s: logger.Named("badger").Sugar()})

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &BadgerStore{db: db, logger: logger}, nil
}

// Close closes the database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// #endregion constructor

// #region record-cycle
// RecordCycle writes the record, its index entry and its learning notes in
// one transaction.
func (s *BadgerStore) RecordCycle(ctx context.Context, rec CycleRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal cycle: %w", err)
	}
	notes := rec.LearningNotes()

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(cycleKey(rec.CycleID), body); err != nil {
			return err
		}
		if err := txn.Set(indexKey(rec), []byte(rec.CycleID)); err != nil {
			return err
		}
		for _, n := range notes {
			nb, err := json.Marshal(n)
			if err != nil {
				return err
			}
			if err := txn.Set(noteKey(n), nb); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("record cycle %s: %w", rec.CycleID, err)
	}
	s.logger.Debug("cycle recorded",
		zap.String("cycle_id", rec.CycleID),
		zap.Int("learning_notes", len(notes)))
	return nil
}

// #endregion record-cycle

// #region read
// GetCycle loads one record.
func (s *BadgerStore) GetCycle(ctx context.Context, cycleID string) (CycleRecord, error) {
	if err := ctx.Err(); err != nil {
		return CycleRecord{}, err
	}
	var rec CycleRecord
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, cycleKey(cycleID), &rec)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return CycleRecord{}, fmt.Errorf("get cycle %s: %w", cycleID, ErrCycleNotFound)
	}
	if err != nil {
		return CycleRecord{}, fmt.Errorf("get cycle %s: %w", cycleID, err)
	}
	return rec, nil
}

// ListCycles walks the time index backwards.
func (s *BadgerStore) ListCycles(ctx context.Context, limit int) ([]CycleSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []CycleSummary
	err := s.db.View(func(txn *badger.Txn) error {
		return scanNewestFirst(txn, []byte(indexPrefix), limit, func(id []byte) error {
			var rec CycleRecord
			if err := getJSON(txn, cycleKey(string(id)), &rec); err != nil {
				return err
			}
			out = append(out, rec.Summary())
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list cycles: %w", err)
	}
	return out, nil
}

// LearningNotes walks the persona's notes backwards.
func (s *BadgerStore) LearningNotes(ctx context.Context, personaID string, limit int) ([]LearningNote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []LearningNote
	err := s.db.View(func(txn *badger.Txn) error {
		return scanNewestFirst(txn, []byte(notePrefix+personaID+"/"), limit, func(v []byte) error {
			var n LearningNote
			if err := json.Unmarshal(v, &n); err != nil {
				return err
			}
			out = append(out, n)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("learning notes for %s: %w", personaID, err)
	}
	return out, nil
}

// #endregion read

// #region helpers
func getJSON(txn *badger.Txn, key []byte, dst any) error {
	item, err := txn.Get(key)
	if err != nil {
		return err
	}
	return item.Value(func(v []byte) error {
		return json.Unmarshal(v, dst)
	})
}

// scanNewestFirst calls fn with a copy of each value under prefix in
// reverse key order, stopping after limit values when limit > 0.
func scanNewestFirst(txn *badger.Txn, prefix []byte, limit int, fn func([]byte) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Reverse = true
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	seek := append(append([]byte{}, prefix...), 0xFF)
	n := 0
	for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
		v, err := it.Item().ValueCopy(nil)
		if err != nil {
			return err
		}
		if err := fn(v); err != nil {
			return err
		}
		n++
		if limit > 0 && n >= limit {
			break
		}
	}
	return nil
}

// #endregion helpers
