package storage

import (
	"encoding/binary"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

const (
	transfersPrefix = "TRANSFER"

	ListTransfersDefaultLimit = 100
	ListTransfersMaximumLimit = 500
)

func (s *BadgerStore) WriteTransfer(t *Transfer) error {
	if t.Id == "" {
		return fmt.Errorf("invalid transfer id %v", t)
	}
	if t.FinishedAt < t.StartedAt {
		return fmt.Errorf("invalid transfer time %d %d", t.StartedAt, t.FinishedAt)
	}
	return s.journalDB.Update(func(txn *badger.Txn) error {
		key := transferKey(t.FinishedAt, t.Id)
		val := compressMsgpackMarshalPanic(t)
		return txn.Set(key, val)
	})
}

// ListTransfers returns the journal in finishing order, starting at the
// first transfer finished at or after since.
func (s *BadgerStore) ListTransfers(since uint64, limit int) ([]*Transfer, error) {
	if limit <= 0 {
		limit = ListTransfersDefaultLimit
	}
	if limit > ListTransfersMaximumLimit {
		limit = ListTransfersMaximumLimit
	}

	txn := s.journalDB.NewTransaction(false)
	defer txn.Discard()

	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()

	var transfers []*Transfer
	prefix := []byte(transfersPrefix)
	it.Seek(transferKey(since, ""))
	for ; it.ValidForPrefix(prefix) && len(transfers) < limit; it.Next() {
		val, err := it.Item().ValueCopy(nil)
		if err != nil {
			return nil, err
		}
		var t Transfer
		err = decompressMsgpackUnmarshal(val, &t)
		if err != nil {
			return nil, err
		}
		transfers = append(transfers, &t)
	}
	return transfers, nil
}

func transferKey(finished uint64, id string) []byte {
	key := []byte(transfersPrefix)
	key = binary.BigEndian.AppendUint64(key, finished)
	return append(key, id...)
}
