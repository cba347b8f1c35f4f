package driven

// ConfigStore holds flat, dot-keyed configuration ("embedding.model").
// Typed getters return the zero value for a missing key or a value of the
// wrong type; use Get to tell the two apart.
type ConfigStore interface {
	Get(key string) (any, bool)
	GetString(key string) string
	GetInt(key string) int
	GetFloat(key string) float64
	GetBool(key string) bool
	GetStringSlice(key string) []string

	// Set stores a value. File-backed stores persist it immediately.
	Set(key string, value any) error

	// Save writes the whole configuration.
	Save() error

	// Path names the backing file.
	Path() string
}
