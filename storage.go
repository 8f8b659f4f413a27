package carmine

// Storage is the embedded transactional key-value engine that a Store runs on
// top of. Bolt is the default; NewMemoryStorage provides a transient engine.
//
// Implementations must provide snapshot isolation: a read transaction sees the
// state as of BeginTx, and at most one writable transaction exists at a time.
type Storage interface {
	// BeginTx starts a new transaction.
	BeginTx(writable bool) (StorageTx, error)

	// Compact reclaims unused space. It is only called while no transactions
	// are open.
	Compact() error

	// Check verifies the integrity of the stored data.
	Check() error

	// Close closes the storage.
	Close() error
}

// StorageTx represents a storage transaction.
type StorageTx interface {
	// Writable returns true if this is a writable transaction.
	Writable() bool

	// Bucket returns a bucket, or nil if the bucket doesn't exist.
	Bucket(name string) StorageBucket

	// CreateBucket creates a bucket if it doesn't exist.
	CreateBucket(name string) (StorageBucket, error)

	// DeleteBucket deletes a bucket, returning ErrBucketNotFound if it is
	// absent.
	DeleteBucket(name string) error

	// ForEachBucket calls f with the name of every bucket in sorted order.
	ForEachBucket(f func(name string) error) error

	// Commit commits the transaction.
	Commit() error

	// Rollback aborts the transaction. It should be safe to call multiple times.
	Rollback() error
}

// StorageBucket represents a bucket (sorted key-value collection). Slices
// returned by a bucket are only valid until the transaction ends.
type StorageBucket interface {
	// Get retrieves a value by key. Returns nil if not found.
	Get(key []byte) []byte

	// Put stores a key-value pair.
	Put(key, value []byte) error

	// Delete removes a key.
	Delete(key []byte) error

	// Cursor returns a cursor for iteration.
	Cursor() StorageCursor

	// KeyCount returns the number of keys in the bucket.
	KeyCount() int
}

// StorageCursor iterates over a sorted bucket.
type StorageCursor interface {
	// First moves to the first key-value pair.
	First() (key, value []byte)

	// Seek moves to the first key >= seek.
	Seek(seek []byte) (key, value []byte)

	// Next moves to the next key-value pair.
	Next() (key, value []byte)

	// Last moves to the last key-value pair.
	Last() (key, value []byte)

	// Prev moves to the previous key-value pair.
	Prev() (key, value []byte)
}
