package storage

import (
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/wordstep/wordstep/config"
	"github.com/wordstep/wordstep/logger"
)

type BadgerStore struct {
	custom     *config.Custom
	journalDB  *badger.DB
	closing    atomic.Bool
	gcInterval time.Duration
}

func NewBadgerStore(custom *config.Custom, dir string) (*BadgerStore, error) {
	store := &BadgerStore{custom: custom, gcInterval: 5 * time.Minute}
	db, err := store.openDB(dir + "/journal")
	if err != nil {
		return nil, err
	}
	store.journalDB = db
	return store, nil
}

func (store *BadgerStore) Close() error {
	store.closing.Store(true)
	return store.journalDB.Close()
}

func (store *BadgerStore) openDB(dir string) (*badger.DB, error) {
	opts := badger.DefaultOptions(dir)
	opts = opts.WithSyncWrites(true)
	opts = opts.WithCompression(options.None)
	opts = opts.WithBlockCacheSize(0)
	opts = opts.WithIndexCacheSize(0)
	opts = opts.WithMetricsEnabled(false)
	opts = opts.WithLoggingLevel(badger.WARNING)
	opts = opts.WithNumVersionsToKeep(1)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	if store.custom != nil && store.custom.Storage.ValueLogGC {
		go store.runValueLogGC(db)
	}

	return db, nil
}

func (store *BadgerStore) runValueLogGC(db *badger.DB) {
	for !store.closing.Load() {
		time.Sleep(store.gcInterval)
		if store.closing.Load() || db.IsClosed() {
			return
		}
		lsm, vlog := db.Size()
		logger.Verbosef("Badger LSM %d VLOG %d\n", lsm, vlog)
		if lsm > 1024*1024*8 || vlog > 1024*1024*32 {
			err := db.RunValueLogGC(0.5)
			logger.Verbosef("Badger RunValueLogGC %v\n", err)
		}
	}
}
