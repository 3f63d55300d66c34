package cache

// NewBackend validates cfg and constructs the backend it selects. The zero
// type defaults to the in-process store. This is tagged construction over a
// capability interface, not a type hierarchy: both backends conform to
// Backend and callers never learn which one they got.
func NewBackend(cfg Config) (Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Type {
	case "", TypeMemory:
		return NewInMemoryCache(), nil
	case TypeRedis:
		return NewRedisCache(*cfg.Redis), nil
	default:
		// Validate already rejects unknown types; kept for direct callers.
		return nil, &ConfigError{Field: "type", Reason: "unknown backend type " + cfg.Type}
	}
}
