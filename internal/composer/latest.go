package composer

// Latest holds the most recent value written to it. The composer writes on
// every edit so callbacks queued earlier still read what the user typed last.
type Latest[T any] struct {
	v T
}

// Set stores v
func (l *Latest[T]) Set(v T) { l.v = v }

// Get returns the last stored value
func (l *Latest[T]) Get() T { return l.v }
