package config

const (
	defaultBaseURL   = "http://localhost:3000"
	defaultAgent     = "share-agent"
	defaultProtocol  = "sentinel"
	defaultTimeout   = "5m"
	defaultReadSize  = 4096
	defaultAPIListen = ":8081"

	defaultStorageDriver = StorageSQLite

	defaultEventStreamProvider = EventStreamNop
	defaultEventStreamTopic    = "agentchat.messages"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Client: ClientConfig{
			BaseURL:  defaultBaseURL,
			Agent:    defaultAgent,
			Protocol: defaultProtocol,
			Timeout:  defaultTimeout,
			ReadSize: defaultReadSize,
		},
		Storage: StorageConfig{
			Driver: defaultStorageDriver,
		},
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		EventStream: EventStreamConfig{
			Provider: defaultEventStreamProvider,
			Topic:    defaultEventStreamTopic,
		},
	}
}
