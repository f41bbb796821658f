package cache

// Keyer builds cache keys for each kind of cached value.
type Keyer interface {
	// HTTPKey identifies a cached HTTP response.
	HTTPKey(namespace, key string) string
	// PlanKey identifies an install plan built from the given inputs.
	PlanKey(parts ...any) string
}

// DefaultKeyer produces plain, unscoped keys:
//
//	http:<namespace>:<key>
//	plan:<sha256(parts...)>
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default key layout.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

func (DefaultKeyer) HTTPKey(namespace, key string) string {
	return "http:" + namespace + ":" + key
}

func (DefaultKeyer) PlanKey(parts ...any) string {
	return hashKey("plan", parts...)
}

// ScopedKeyer prefixes every key of an inner Keyer, so that tenants sharing
// one backend (for example one Redis instance behind the API server) never
// see each other's entries.
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

func (k *ScopedKeyer) HTTPKey(namespace, key string) string {
	return k.prefix + k.inner.HTTPKey(namespace, key)
}

func (k *ScopedKeyer) PlanKey(parts ...any) string {
	return k.prefix + k.inner.PlanKey(parts...)
}
