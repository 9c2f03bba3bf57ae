package server

type MarketplacesServerConfig struct {
	Ozon   OzonMarketplaceConfig     `mapstructure:"ozon"   yaml:"ozon"`
	WB     WBMarketplaceConfig       `mapstructure:"wb"     yaml:"wb"`
	Custom []CustomMarketplaceConfig `mapstructure:"custom" yaml:"custom"`
}

// MarketplaceClientConfig holds the settings every catalog client shares.
type MarketplaceClientConfig struct {
	Endpoint string  `mapstructure:"endpoint"  yaml:"endpoint"`
	PageSize int     `mapstructure:"page_size" yaml:"page_size"`
	Timeout  string  `mapstructure:"timeout"   yaml:"timeout"`
	RPS      float64 `mapstructure:"rps"       yaml:"rps"`
	Burst    int     `mapstructure:"burst"     yaml:"burst"`
}

type OzonMarketplaceConfig struct {
	Enabled  bool   `mapstructure:"enabled"   yaml:"enabled"`
	ClientID string `mapstructure:"client_id" yaml:"client_id"`
	APIKey   string `mapstructure:"api_key"   yaml:"api_key"`

	MarketplaceClientConfig `mapstructure:",squash" yaml:",inline"`
}

type WBMarketplaceConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	APIKey  string `mapstructure:"api_key" yaml:"api_key"`

	MarketplaceClientConfig `mapstructure:",squash" yaml:",inline"`
}

// CustomMarketplaceConfig describes a generic JSON catalog.
// Pagination is either "offset" or "page".
type CustomMarketplaceConfig struct {
	Name       string `mapstructure:"name"       yaml:"name"`
	Token      string `mapstructure:"token"      yaml:"token"`
	Pagination string `mapstructure:"pagination" yaml:"pagination"`

	MarketplaceClientConfig `mapstructure:",squash" yaml:",inline"`
}

// EnabledSources lists the source tags that will take part in a sync pass.
func (m MarketplacesServerConfig) EnabledSources() []string {
	var sources []string
	if m.Ozon.Enabled {
		sources = append(sources, "ozon")
	}
	if m.WB.Enabled {
		sources = append(sources, "wb")
	}
	for _, custom := range m.Custom {
		sources = append(sources, custom.Name)
	}
	return sources
}
