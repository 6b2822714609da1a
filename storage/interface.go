package storage

type Store interface {
	Close() error

	WriteTransfer(t *Transfer) error
	ListTransfers(since uint64, limit int) ([]*Transfer, error)
}
