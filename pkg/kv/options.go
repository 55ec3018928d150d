package kv

// DatabaseOptions configures Open. Attribute is the generic
// string/string escape hatch; Location, Perf, and the CC-specific knobs are
// promoted to typed fields because every backend reads them directly.
type DatabaseOptions struct {
	// Location is the filesystem path for persistent backends.
	Location string

	// Lock enables the in-process backend's single coarse transaction
	// mutex when true (the backend's default). Ignored by other backends.
	Lock *bool

	// Perf enables call-count and timing tracking via pkg/kvmetrics.
	Perf bool

	// StartupMode, when "maintenance", opens the CC backend accepting
	// only READ_ONLY transactions; BeginTransaction rejects SHORT and
	// LONG requests with ERR_ILLEGAL_OPERATION. Ignored by other
	// backends.
	StartupMode string

	// Epoch/thread-pool knobs honored by the CC backend only.
	EpochDuration          int
	WaitingResolverThreads int
	RecoverMaxParallelism  int
	IndexRestoreThreads    int

	attrs map[string]string
}

// Attribute records an arbitrary string attribute, for backend-specific
// knobs not promoted to a typed field.
func (o *DatabaseOptions) Attribute(key, value string) {
	if o.attrs == nil {
		o.attrs = map[string]string{}
	}
	o.attrs[key] = value
}

// AttributeValue looks up a previously recorded attribute.
func (o *DatabaseOptions) AttributeValue(key string) (string, bool) {
	if o.attrs == nil {
		return "", false
	}
	v, ok := o.attrs[key]
	return v, ok
}

// LockEnabled resolves the in-process backend's mutex toggle, defaulting to
// true when unset.
func (o *DatabaseOptions) LockEnabled() bool {
	if o.Lock == nil {
		return true
	}
	return *o.Lock
}

// TransactionOptions configures Begin.
type TransactionOptions struct {
	Type TransactionType

	// WritePreserves declares the storages a LONG transaction will
	// mutate; writes to storages outside this set fail with
	// ERR_WRITE_WITHOUT_WRITE_PRESERVE.
	WritePreserves []string

	// ReadAreaInclusive and ReadAreaExclusive restrict a READ_ONLY
	// transaction's visible storages. At most one should be non-empty;
	// when both are set, inclusive is consulted first.
	ReadAreaInclusive []string
	ReadAreaExclusive []string

	// Async, when true, makes Commit return without waiting for the
	// durability marker; the caller must use CommitWithCallback to learn
	// the final outcome in that case.
	Async bool
}

// StorageOptions configures storage Create/SetOptions.
type StorageOptions struct {
	// StorageID requests a specific id; zero means "assign one".
	StorageID uint64

	// Payload is an opaque byte string the caller attaches to the
	// storage record; it is round-tripped by GetOptions/SetOptions and
	// otherwise unexamined.
	Payload []byte
}
