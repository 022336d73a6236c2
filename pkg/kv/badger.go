package kv

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"

	badger "github.com/dgraph-io/badger/v4"
)

// Badger is a Store backed by BadgerDB v4.
type Badger struct {
	db *badger.DB
}

// BadgerOptions configures the BadgerDB store.
type BadgerOptions struct {
	// Dir is the directory for data files. Required unless InMemory.
	Dir string

	// InMemory runs badger without disk persistence.
	InMemory bool

	// Logger receives badger's warnings and errors. Defaults to
	// slog.Default().
	Logger *slog.Logger
}

func NewBadger(opts BadgerOptions) (*Badger, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, errors.New("kv: BadgerOptions.Dir is required for on-disk mode")
	}
	dbOpts := badger.DefaultOptions(opts.Dir)
	if opts.InMemory {
		dbOpts = badger.DefaultOptions("").WithInMemory(true)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	dbOpts = dbOpts.WithLogger(slogAdapter{logger.With("component", "badger")})

	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("kv: open badger: %w", err)
	}
	return &Badger{db: db}, nil
}

func (b *Badger) Get(_ context.Context, key string) ([]byte, error) {
	var val []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	return val, err
}

func (b *Badger) Set(_ context.Context, key string, value []byte) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
}

func (b *Badger) Delete(_ context.Context, key string) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil
	}
	return err
}

func (b *Badger) List(_ context.Context, prefix string) iter.Seq2[Entry, error] {
	p := []byte(prefix)
	return func(yield func(Entry, error) bool) {
		stopped := false
		err := b.db.View(func(txn *badger.Txn) error {
			iterOpts := badger.DefaultIteratorOptions
			iterOpts.Prefix = p
			it := txn.NewIterator(iterOpts)
			defer it.Close()

			for it.Seek(p); it.ValidForPrefix(p); it.Next() {
				item := it.Item()
				val, err := item.ValueCopy(nil)
				if err != nil {
					return err
				}
				if !yield(Entry{Key: string(item.KeyCopy(nil)), Value: val}, nil) {
					stopped = true
					return nil
				}
			}
			return nil
		})
		if err != nil && !stopped {
			yield(Entry{}, err)
		}
	}
}

func (b *Badger) Close() error {
	return b.db.Close()
}

// slogAdapter routes badger's logger to slog. Info and debug output is
// dropped.
type slogAdapter struct {
	l *slog.Logger
}

func (a slogAdapter) Errorf(f string, v ...any)   { a.l.Error(fmt.Sprintf(f, v...)) }
func (a slogAdapter) Warningf(f string, v ...any) { a.l.Warn(fmt.Sprintf(f, v...)) }
func (slogAdapter) Infof(string, ...any)          {}
func (slogAdapter) Debugf(string, ...any)         {}
