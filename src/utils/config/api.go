package config

import (
	"time"

	"github.com/spf13/viper"
)

type Api struct {
	// REST API address, serves the report/audit endpoints
	ListenAddress string

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

func setApiDefaults() {
	viper.SetDefault("Api.ListenAddress", ":3000")
	viper.SetDefault("Api.ReadTimeout", "15s")
	viper.SetDefault("Api.WriteTimeout", "30s")
}
