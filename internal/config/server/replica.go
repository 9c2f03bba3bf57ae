package server

// ReplicaServerConfig mirrors stored images into an S3-compatible bucket.
type ReplicaServerConfig struct {
	Enabled   bool   `mapstructure:"enabled"    yaml:"enabled"`
	Endpoint  string `mapstructure:"endpoint"   yaml:"endpoint"`
	AccessKey string `mapstructure:"access_key" yaml:"access_key"`
	SecretKey string `mapstructure:"secret_key" yaml:"secret_key"`
	Bucket    string `mapstructure:"bucket"     yaml:"bucket"`
	Prefix    string `mapstructure:"prefix"     yaml:"prefix"`
	UseSSL    bool   `mapstructure:"use_ssl"    yaml:"use_ssl"`
}
