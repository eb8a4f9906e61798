package diag

import (
	"context"
	"encoding/binary"
	"sync"

	"github.com/2x3systems/worldline/wlmc"
	"github.com/dgraph-io/badger/v3"
	"github.com/pkg/errors"
)

// badgerStore keys each record as uvarint len(RunID), RunID, big-endian Sweep so that a prefix scan yields
// exactly one run, in sweep order.
type badgerStore struct {
	mu sync.RWMutex
	db *badger.DB
}

// OpenBadgerStore opens (or creates) a badger statistics log at dbPath; an empty path keeps it in memory.
func OpenBadgerStore(dbPath string) (Store, error) {
	dbOpts := badger.DefaultOptions(dbPath)
	dbOpts.Logger = nil
	dbOpts.MetricsEnabled = false
	if len(dbPath) == 0 {
		dbOpts = dbOpts.WithInMemory(true)
	}

	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, errors.Wrapf(err, "open badger store %q", dbPath)
	}
	return &badgerStore{db: db}, nil
}

func runPrefix(runID string) []byte {
	key := make([]byte, 0, binary.MaxVarintLen64+len(runID)+8)
	key = binary.AppendUvarint(key, uint64(len(runID)))
	return append(key, runID...)
}

func recordKey(runID string, sweep int64) []byte {
	return binary.BigEndian.AppendUint64(runPrefix(runID), uint64(sweep))
}

func (s *badgerStore) Append(_ context.Context, rec Record) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return wlmc.ErrStoreClosed
	}

	val := EncodeRecord(nil, &rec)
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(recordKey(rec.RunID, rec.Sweep), val)
	})
}

func (s *badgerStore) Records(ctx context.Context, runID string) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, wlmc.ErrStoreClosed
	}

	var recs []Record
	prefix := runPrefix(runID)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		itr := txn.NewIterator(opts)
		defer itr.Close()

		for itr.Seek(prefix); itr.ValidForPrefix(prefix); itr.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			err := itr.Item().Value(func(val []byte) error {
				rec, err := DecodeRecord(val)
				if err == nil {
					recs = append(recs, rec)
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
	return recs, nil
}

func (s *badgerStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
