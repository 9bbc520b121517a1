package storage

import (
	"context"
	"strings"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"
)

// BadgerArea keeps one Badger key per top-level key, prefixed with the
// namespace.
type BadgerArea struct {
	db     *badger.DB
	prefix []byte
}

var _ Area = (*BadgerArea)(nil)

// OpenBadgerArea opens the Badger directory at path. An empty path opens an
// in-memory database.
func OpenBadgerArea(path, namespace string) (*BadgerArea, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if strings.TrimSpace(path) == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, "open badger storage")
	}

	return &BadgerArea{db: db, prefix: []byte(namespace + "/")}, nil
}

func (a *BadgerArea) Get(_ context.Context) (map[string]any, error) {
	obj := map[string]any{}

	err := a.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(a.prefix); it.ValidForPrefix(a.prefix); it.Next() {
			item := it.Item()
			key := string(item.Key()[len(a.prefix):])

			raw, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			v, err := decodeValue(key, raw)
			if err != nil {
				return err
			}
			obj[key] = v
		}

		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "read badger storage")
	}

	return obj, nil
}

func (a *BadgerArea) Set(_ context.Context, values map[string]any) error {
	return errors.Wrap(a.db.Update(func(txn *badger.Txn) error {
		for k, v := range values {
			data, err := encodeValue(v)
			if err != nil {
				return err
			}
			if err := txn.Set(a.key(k), data); err != nil {
				return err
			}
		}

		return nil
	}), "write badger storage")
}

func (a *BadgerArea) Clear(_ context.Context) error {
	return errors.Wrap(a.db.DropPrefix(a.prefix), "clear badger storage")
}

func (a *BadgerArea) Close() error {
	return a.db.Close()
}

func (a *BadgerArea) key(k string) []byte {
	return append(append([]byte(nil), a.prefix...), k...)
}
