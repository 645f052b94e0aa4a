// Package config loads the deployment configuration from config.yaml and
// environment variables.
package config

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	Store    StoreConfig    `mapstructure:"store"`
	Server   ServerConfig   `mapstructure:"server"`
	Admin    AdminConfig    `mapstructure:"admin"`
	Payment  PaymentConfig  `mapstructure:"payment"`
	Referral ReferralConfig `mapstructure:"referral"`
	Shop     ShopConfig     `mapstructure:"shop"`
}

type StoreConfig struct {
	Path string `mapstructure:"path"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// AdminConfig names the administrators and the chat where orders are posted.
type AdminConfig struct {
	Admins    []AdminIdentity `mapstructure:"admins"`
	ChannelID int64           `mapstructure:"channel_id"`
}

type AdminIdentity struct {
	ID     int64  `mapstructure:"id"`
	Handle string `mapstructure:"handle"`
}

// PaymentConfig is the payment routing shown in checkout instructions.
type PaymentConfig struct {
	Method      string `mapstructure:"method"`
	CardNumber  string `mapstructure:"card_number"`
	PhoneNumber string `mapstructure:"phone_number"`
	Owner       string `mapstructure:"owner"`
}

// ReferralConfig seeds the referral program settings on first run; after
// that the persisted settings win.
type ReferralConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	MinPurchaseAmount string `mapstructure:"min_purchase_amount"`
}

type ShopConfig struct {
	SupportContact string `mapstructure:"support_contact"`
	PageSize       int    `mapstructure:"page_size"`
}

// AdminMap returns the admin set keyed by id.
func (c AdminConfig) AdminMap() map[int64]string {
	out := make(map[int64]string, len(c.Admins))
	for _, a := range c.Admins {
		out[a.ID] = a.Handle
	}
	return out
}

func defaults(v *viper.Viper) {
	v.SetDefault("store.path", "lavka.db")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("payment.method", "SBP")
	v.SetDefault("referral.enabled", true)
	v.SetDefault("referral.min_purchase_amount", "500")
	v.SetDefault("shop.support_contact", "@support")
	v.SetDefault("shop.page_size", 5)
}

// Load reads config.yaml from the given path (or the working directory when
// empty) plus LAVKA_-prefixed environment variables. A missing config file
// is not an error; defaults and environment variables apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	defaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./")
		v.AddConfigPath("/etc/lavka/")
	}

	v.SetEnvPrefix("LAVKA")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &config, nil
}
