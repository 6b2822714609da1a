package storage

import (
	"fmt"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
	"github.com/wordstep/wordstep/config"
)

func TestBadger(t *testing.T) {
	require := require.New(t)
	custom, err := config.Initialize("../config/config.example.toml")
	require.Nil(err)

	store, err := NewBadgerStore(custom, t.TempDir())
	require.Nil(err)
	require.NotNil(store)
	defer store.Close()

	transfers, err := store.ListTransfers(0, 0)
	require.Nil(err)
	require.Len(transfers, 0)

	err = store.journalDB.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte("key-not-found"))
	})
	require.Nil(err)

	err = store.Close()
	require.Nil(err)
}

func TestBadgerTransfers(t *testing.T) {
	require := require.New(t)

	store, err := NewBadgerStore(nil, t.TempDir())
	require.Nil(err)
	defer store.Close()

	err = store.WriteTransfer(&Transfer{Filename: "greeting.txt"})
	require.NotNil(err)
	err = store.WriteTransfer(&Transfer{Id: "x", StartedAt: 10, FinishedAt: 5})
	require.NotNil(err)

	for i := 1; i <= 5; i++ {
		err = store.WriteTransfer(&Transfer{
			Id:         fmt.Sprintf("transfer-%d", i),
			Peer:       "127.0.0.1:50000",
			Filename:   "greeting.txt",
			Words:      2,
			Requests:   2,
			Outcome:    TransferOutcomeComplete,
			StartedAt:  uint64(i * 100),
			FinishedAt: uint64(i*100 + 50),
		})
		require.Nil(err)
	}
	err = store.WriteTransfer(&Transfer{
		Id:         "transfer-missing",
		Peer:       "127.0.0.1:50001",
		Filename:   "missing.txt",
		Outcome:    TransferOutcomeNotFound,
		StartedAt:  600,
		FinishedAt: 600,
	})
	require.Nil(err)

	transfers, err := store.ListTransfers(0, 0)
	require.Nil(err)
	require.Len(transfers, 6)
	require.Equal("transfer-1", transfers[0].Id)
	require.Equal(uint64(2), transfers[0].Words)
	require.Equal("127.0.0.1:50000", transfers[0].Peer)
	require.Equal(uint64(50), uint64(transfers[0].Duration()))
	require.Equal(TransferOutcomeNotFound, transfers[5].Outcome)
	require.Equal(uint64(0), transfers[5].Words)

	transfers, err = store.ListTransfers(350, 2)
	require.Nil(err)
	require.Len(transfers, 2)
	require.Equal("transfer-3", transfers[0].Id)
	require.Equal("transfer-4", transfers[1].Id)

	transfers, err = store.ListTransfers(1000, 10)
	require.Nil(err)
	require.Len(transfers, 0)
}

func TestCompressMsgpack(t *testing.T) {
	require := require.New(t)

	val := compressMsgpackMarshalPanic(&Transfer{Id: "transfer", Words: 3})
	require.Equal(CompressionVersionZero, val[:4])

	var tr Transfer
	err := decompressMsgpackUnmarshal(val, &tr)
	require.Nil(err)
	require.Equal("transfer", tr.Id)
	require.Equal(uint64(3), tr.Words)

	err = decompressMsgpackUnmarshal([]byte{1, 2}, &tr)
	require.NotNil(err)
	err = decompressMsgpackUnmarshal(append([]byte{0, 0, 0, 1}, val[4:]...), &tr)
	require.NotNil(err)
}
