package cache

// ScopedKeyer prefixes every key of an inner Keyer. The HTTP server uses it
// to keep its entries apart from the CLI's when both share a backend.
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer wraps inner, or the default keyer when inner is nil.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// ResultKey implements Keyer.
func (k *ScopedKeyer) ResultKey(designHash string, opts ResultKeyOpts) string {
	return k.prefix + k.inner.ResultKey(designHash, opts)
}

// ArtifactKey implements Keyer.
func (k *ScopedKeyer) ArtifactKey(resultKey string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(resultKey, opts)
}
