package server

type SyncServerConfig struct {
	Schedule        string         `mapstructure:"schedule"         yaml:"schedule"`
	OnStartup       bool           `mapstructure:"on_startup"       yaml:"on_startup"`
	DownloadTimeout string         `mapstructure:"download_timeout" yaml:"download_timeout"`
	Lock            SyncLockConfig `mapstructure:"lock"             yaml:"lock"`
}

// SyncLockConfig enables a Redis lock shared by every agent pointing at the same store.
type SyncLockConfig struct {
	Redis    bool   `mapstructure:"redis"    yaml:"redis"`
	Addr     string `mapstructure:"addr"     yaml:"addr"`
	Password string `mapstructure:"password" yaml:"password"`
	Key      string `mapstructure:"key"      yaml:"key"`
	TTL      string `mapstructure:"ttl"      yaml:"ttl"`
}
