package config

// GetDefaults returns the default configuration values
func GetDefaults() map[string]interface{} {
	out := make(map[string]interface{}, len(KnownKeys))
	for key, schema := range KnownKeys {
		out[key] = schema.Default
	}
	return out
}
