package server

type StorageServerConfig struct {
	Root            string `mapstructure:"root"              yaml:"root"`
	MaxFilesPerDir  int    `mapstructure:"max_files_per_dir" yaml:"max_files_per_dir"`
	MaxDownloadSize int64  `mapstructure:"max_download_size" yaml:"max_download_size"`
}
