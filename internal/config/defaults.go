package config

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		Profile: ProfileConfig{
			Dir: "~/.config/profilestore/default",
		},
		Storage: StorageConfig{
			JournalMode:   "wal",
			BusyTimeoutMS: 5000,
		},
		Query: QueryConfig{
			DefaultLimit: 10,
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "text",
		},
	}
}
