package server

import "github.com/spf13/viper"

func GetServerDefault() BaseServerConfig {
	return BaseServerConfig{
		ShutdownTimeout: "10s",

		Log: LogServerConfig{
			Level:      "INFO",
			TimeFormat: "2006-01-02 15:04:05",
			File:       "",
			NoColor:    false,
			JSON:       false,
			NoTerminal: false,
			Rotation: LogServerRotationConfig{
				MaxSize:    128,
				MaxBackups: 5,
				MaxAge:     16,
				Compress:   false,
			},
		},

		HTTP: HTTPServerConfig{
			Enabled: true,
			Address: ":3000",
		},

		Metadata: MetadataServerConfig{
			Type:     "sqlite",
			LogLevel: "silent",
			SQLite: MetadataSQLiteConfig{
				Path: "./data/photos.db",
			},
			Postgres: MetadataPostgresConfig{
				MaxOpenConns: 4,
			},
		},

		Storage: StorageServerConfig{
			Root:            "./uploads/images",
			MaxFilesPerDir:  5000,
			MaxDownloadSize: 32 * 1024 * 1024,
		},

		Sync: SyncServerConfig{
			Schedule:        "0 */6 * * *",
			OnStartup:       true,
			DownloadTimeout: "60s",
			Lock: SyncLockConfig{
				Redis: false,
				Addr:  "localhost:6379",
				Key:   "photosync:lock:sync",
				TTL:   "2h",
			},
		},

		Marketplaces: MarketplacesServerConfig{
			Ozon: OzonMarketplaceConfig{
				MarketplaceClientConfig: MarketplaceClientConfig{
					Endpoint: "https://api-seller.ozon.ru",
					PageSize: 100,
					Timeout:  "30s",
					RPS:      5,
					Burst:    1,
				},
			},
			WB: WBMarketplaceConfig{
				MarketplaceClientConfig: MarketplaceClientConfig{
					Endpoint: "https://content-api.wildberries.ru",
					PageSize: 100,
					Timeout:  "30s",
					RPS:      1,
					Burst:    1,
				},
			},
		},

		Replica: ReplicaServerConfig{
			Bucket: "photos",
			Prefix: "images",
			UseSSL: true,
		},
	}
}

func setDefaults() {
	defaults := GetServerDefault()

	viper.SetDefault("shutdown_timeout", defaults.ShutdownTimeout)

	viper.SetDefault("log.level", defaults.Log.Level)
	viper.SetDefault("log.time_format", defaults.Log.TimeFormat)
	viper.SetDefault("log.file", defaults.Log.File)
	viper.SetDefault("log.no_color", defaults.Log.NoColor)
	viper.SetDefault("log.json", defaults.Log.JSON)
	viper.SetDefault("log.no_terminal", defaults.Log.NoTerminal)
	viper.SetDefault("log.rotation.max_size", defaults.Log.Rotation.MaxSize)
	viper.SetDefault("log.rotation.max_backups", defaults.Log.Rotation.MaxBackups)
	viper.SetDefault("log.rotation.max_age", defaults.Log.Rotation.MaxAge)
	viper.SetDefault("log.rotation.compress", defaults.Log.Rotation.Compress)

	viper.SetDefault("http.enabled", defaults.HTTP.Enabled)
	viper.SetDefault("http.address", defaults.HTTP.Address)

	viper.SetDefault("metadata.type", defaults.Metadata.Type)
	viper.SetDefault("metadata.log_level", defaults.Metadata.LogLevel)
	viper.SetDefault("metadata.sqlite.path", defaults.Metadata.SQLite.Path)
	viper.SetDefault("metadata.postgres.dsn", defaults.Metadata.Postgres.DSN)
	viper.SetDefault("metadata.postgres.max_open_conns", defaults.Metadata.Postgres.MaxOpenConns)

	viper.SetDefault("storage.root", defaults.Storage.Root)
	viper.SetDefault("storage.max_files_per_dir", defaults.Storage.MaxFilesPerDir)
	viper.SetDefault("storage.max_download_size", defaults.Storage.MaxDownloadSize)

	viper.SetDefault("sync.schedule", defaults.Sync.Schedule)
	viper.SetDefault("sync.on_startup", defaults.Sync.OnStartup)
	viper.SetDefault("sync.download_timeout", defaults.Sync.DownloadTimeout)
	viper.SetDefault("sync.lock.redis", defaults.Sync.Lock.Redis)
	viper.SetDefault("sync.lock.addr", defaults.Sync.Lock.Addr)
	viper.SetDefault("sync.lock.password", defaults.Sync.Lock.Password)
	viper.SetDefault("sync.lock.key", defaults.Sync.Lock.Key)
	viper.SetDefault("sync.lock.ttl", defaults.Sync.Lock.TTL)

	viper.SetDefault("marketplaces.ozon.enabled", defaults.Marketplaces.Ozon.Enabled)
	viper.SetDefault("marketplaces.ozon.client_id", defaults.Marketplaces.Ozon.ClientID)
	viper.SetDefault("marketplaces.ozon.api_key", defaults.Marketplaces.Ozon.APIKey)
	viper.SetDefault("marketplaces.ozon.endpoint", defaults.Marketplaces.Ozon.Endpoint)
	viper.SetDefault("marketplaces.ozon.page_size", defaults.Marketplaces.Ozon.PageSize)
	viper.SetDefault("marketplaces.ozon.timeout", defaults.Marketplaces.Ozon.Timeout)
	viper.SetDefault("marketplaces.ozon.rps", defaults.Marketplaces.Ozon.RPS)
	viper.SetDefault("marketplaces.ozon.burst", defaults.Marketplaces.Ozon.Burst)

	viper.SetDefault("marketplaces.wb.enabled", defaults.Marketplaces.WB.Enabled)
	viper.SetDefault("marketplaces.wb.api_key", defaults.Marketplaces.WB.APIKey)
	viper.SetDefault("marketplaces.wb.endpoint", defaults.Marketplaces.WB.Endpoint)
	viper.SetDefault("marketplaces.wb.page_size", defaults.Marketplaces.WB.PageSize)
	viper.SetDefault("marketplaces.wb.timeout", defaults.Marketplaces.WB.Timeout)
	viper.SetDefault("marketplaces.wb.rps", defaults.Marketplaces.WB.RPS)
	viper.SetDefault("marketplaces.wb.burst", defaults.Marketplaces.WB.Burst)

	viper.SetDefault("replica.enabled", defaults.Replica.Enabled)
	viper.SetDefault("replica.endpoint", defaults.Replica.Endpoint)
	viper.SetDefault("replica.access_key", defaults.Replica.AccessKey)
	viper.SetDefault("replica.secret_key", defaults.Replica.SecretKey)
	viper.SetDefault("replica.bucket", defaults.Replica.Bucket)
	viper.SetDefault("replica.prefix", defaults.Replica.Prefix)
	viper.SetDefault("replica.use_ssl", defaults.Replica.UseSSL)
}
