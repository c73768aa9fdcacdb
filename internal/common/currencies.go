package common

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"
)

type CurrencyConfig struct {
	Name    string `yaml:"name"`
	Ticker  string `yaml:"ticker"`
	GuildId int64  `yaml:"guild_id"`
}

type CurrenciesConfig struct {
	Currencies []CurrencyConfig `yaml:"currencies"`
}

// LoadCurrencyConfig reads the currency seed file used by setup.
func LoadCurrencyConfig(currenciesFile string) ([]CurrencyConfig, error) {
	var currenciesPath string
	if filepath.IsAbs(currenciesFile) {
		currenciesPath = currenciesFile
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		currenciesPath = filepath.Join(wd, currenciesFile)
	}

	data, err := os.ReadFile(currenciesPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", currenciesFile, err)
	}

	var config CurrenciesConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", currenciesFile, err)
	}

	for i, currency := range config.Currencies {
		if currency.Ticker == "" {
			return nil, fmt.Errorf("currency at index %d missing ticker", i)
		}
		if currency.Name == "" {
			return nil, fmt.Errorf("currency at index %d missing name", i)
		}
		if currency.GuildId == 0 {
			return nil, fmt.Errorf("currency at index %d missing guild_id", i)
		}
	}

	return config.Currencies, nil
}
