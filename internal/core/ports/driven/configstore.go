package driven

// ConfigStore holds settings as dotted keys ("agent.model",
// "chunker.window_size"). Typed getters return the zero value for a
// missing key or a value of the wrong type, so the settings service can
// layer its defaults on top.
type ConfigStore interface {
	Get(key string) (any, bool)
	GetString(key string) string
	GetInt(key string) int
	// GetFloat also accepts integer values.
	GetFloat(key string) float64
	GetBool(key string) bool

	// Set stores value under key and persists it before returning.
	Set(key string, value any) error

	// Load re-reads the backing storage.
	Load() error

	// Path is the backing file, or ":memory:" for an in-memory store.
	Path() string
}
