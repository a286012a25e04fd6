package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// BrandingConfig holds the letterhead rendered on exported invoice PDFs.
type BrandingConfig struct {
	CompanyName    string `mapstructure:"companyName"`
	CompanyAddress string `mapstructure:"companyAddress"`
	CompanyEmail   string `mapstructure:"companyEmail"`
	BankDetails    string `mapstructure:"bankDetails"`
	FooterNote     string `mapstructure:"footerNote"`
}

func DefaultBrandingConfig() BrandingConfig {
	return BrandingConfig{
		CompanyName:  "Faktur",
		CompanyEmail: "billing@faktur.local",
		FooterNote:   "Thank you for your business.",
	}
}

// BrandingConfigHolder serves the current branding config and hot-reloads
// it when the backing file changes.
type BrandingConfigHolder struct {
	current atomic.Value // holds BrandingConfig
}

func NewBrandingConfigHolder() (*BrandingConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("branding")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/faktur")
	v.AddConfigPath(".")

	v.SetEnvPrefix("FAKTUR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultBrandingConfig()
		v.SetDefault("branding.companyName", defaults.CompanyName)
		v.SetDefault("branding.companyEmail", defaults.CompanyEmail)
		v.SetDefault("branding.footerNote", defaults.FooterNote)
	}

	fileFound := v.ConfigFileUsed() != ""

	var cfg BrandingConfig
	if err := v.UnmarshalKey("branding", &cfg); err != nil {
		return nil, err
	}
	if err := validateBrandingConfig(cfg); err != nil {
		return nil, err
	}

	holder := &BrandingConfigHolder{}
	holder.current.Store(cfg)

	if !fileFound {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated BrandingConfig
		if err := v.UnmarshalKey("branding", &updated); err != nil {
			log.Printf("[branding-config] reload failed: %v", err)
			return
		}
		if err := validateBrandingConfig(updated); err != nil {
			log.Printf("[branding-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[branding-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *BrandingConfigHolder) Get() BrandingConfig {
	return h.current.Load().(BrandingConfig)
}

func validateBrandingConfig(cfg BrandingConfig) error {
	if strings.TrimSpace(cfg.CompanyName) == "" {
		return errors.New("branding.companyName cannot be empty")
	}
	return nil
}
