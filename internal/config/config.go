package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables consulted by Load.
const (
	EnvConfigPath   = "RECONCILER_CONFIG"
	EnvPricePerUnit = "PRICE_PER_UNIT"
	EnvThresholdPct = "GOVERNANCE_THRESHOLD_PCT"
)

// SeverityCutpoints are the strict lower bounds of the MEDIUM and HIGH tiers.
type SeverityCutpoints struct {
	Medium float64 `yaml:"medium"`
	High   float64 `yaml:"high"`
}

// FallbackModel is substituted when there is too little data to fit.
type FallbackModel struct {
	Qi float64 `yaml:"qi"`
	Di float64 `yaml:"di"`
}

// Synthetic configures the synthetic production generator.
type Synthetic struct {
	FieldName             string  `yaml:"field_name"`
	Start                 string  `yaml:"start"` // YYYY-MM
	Months                int     `yaml:"months"`
	Seed                  int64   `yaml:"seed"`
	WarmupMonths          int     `yaml:"warmup_months"`
	ShutInProbability     float64 `yaml:"shut_in_probability"`
	MissingGasProbability float64 `yaml:"missing_gas_probability"`
}

// Config is the reconciler configuration surface.
type Config struct {
	PricePerUnit           float64           `yaml:"price_per_unit"`
	PriceMin               float64           `yaml:"price_min"`
	PriceMax               float64           `yaml:"price_max"`
	GovernanceThresholdPct float64           `yaml:"governance_threshold_pct"`
	SeverityCutpoints      SeverityCutpoints `yaml:"severity_cutpoints"`
	OilTonnesToBarrels     float64           `yaml:"oil_tonnes_to_barrels"`
	GasMmscfToBoe          float64           `yaml:"gas_mmscf_to_boe"`
	FallbackModel          FallbackModel     `yaml:"fallback_model"`
	SensitivityPrices      []float64         `yaml:"sensitivity_prices"`
	Synthetic              Synthetic         `yaml:"synthetic"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		PricePerUnit:           72.50,
		PriceMin:               40,
		PriceMax:               120,
		GovernanceThresholdPct: 15.0,
		SeverityCutpoints:      SeverityCutpoints{Medium: 20, High: 25},
		OilTonnesToBarrels:     7.33,
		GasMmscfToBoe:          175.8,
		FallbackModel:          FallbackModel{Qi: 100000, Di: 0.03},
		SensitivityPrices:      []float64{55.0, 62.50, 72.50, 82.50, 95.0},
		Synthetic: Synthetic{
			FieldName:             "BRAE ALPHA",
			Start:                 "2018-01",
			Months:                84,
			Seed:                  42,
			WarmupMonths:          6,
			ShutInProbability:     0.04,
			MissingGasProbability: 0.03,
		},
	}
}

// Load reads the YAML file at path (or $RECONCILER_CONFIG when path is
// empty) over the defaults and applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	var err error
	if cfg.PricePerUnit, err = getenvFloat(EnvPricePerUnit, cfg.PricePerUnit); err != nil {
		return cfg, err
	}
	if cfg.GovernanceThresholdPct, err = getenvFloat(EnvThresholdPct, cfg.GovernanceThresholdPct); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects settings the pipeline cannot run with.
func (c Config) Validate() error {
	finite := map[string]float64{
		"price_per_unit":            c.PricePerUnit,
		"price_min":                 c.PriceMin,
		"price_max":                 c.PriceMax,
		"governance_threshold_pct":  c.GovernanceThresholdPct,
		"severity_cutpoints.medium": c.SeverityCutpoints.Medium,
		"severity_cutpoints.high":   c.SeverityCutpoints.High,
		"oil_tonnes_to_barrels":     c.OilTonnesToBarrels,
		"gas_mmscf_to_boe":          c.GasMmscfToBoe,
		"fallback_model.qi":         c.FallbackModel.Qi,
		"fallback_model.di":         c.FallbackModel.Di,
	}
	for key, v := range finite {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("config: %s must be finite, got %v", key, v)
		}
	}
	for _, p := range c.SensitivityPrices {
		if math.IsNaN(p) {
			return errors.New("config: sensitivity_prices must not contain NaN")
		}
	}
	if c.OilTonnesToBarrels <= 0 || c.GasMmscfToBoe <= 0 {
		return errors.New("config: conversion factors must be positive")
	}
	if c.PriceMin > c.PriceMax {
		return fmt.Errorf("config: price_min %.2f exceeds price_max %.2f", c.PriceMin, c.PriceMax)
	}
	if c.GovernanceThresholdPct < 0 {
		return errors.New("config: governance_threshold_pct must not be negative")
	}
	if c.SeverityCutpoints.Medium < c.GovernanceThresholdPct || c.SeverityCutpoints.High < c.SeverityCutpoints.Medium {
		return fmt.Errorf("config: severity cutpoints must satisfy threshold <= medium <= high, got %.2f/%.2f/%.2f",
			c.GovernanceThresholdPct, c.SeverityCutpoints.Medium, c.SeverityCutpoints.High)
	}
	if c.FallbackModel.Qi <= 0 || c.FallbackModel.Di < 0.001 {
		return errors.New("config: fallback_model needs qi > 0 and di >= 0.001")
	}
	s := c.Synthetic
	if s.Months < 0 || s.WarmupMonths < 0 {
		return errors.New("config: synthetic months must not be negative")
	}
	if !isProbability(s.ShutInProbability) || !isProbability(s.MissingGasProbability) {
		return errors.New("config: synthetic probabilities must be within [0, 1]")
	}
	if _, err := time.Parse("2006-01", s.Start); err != nil {
		return fmt.Errorf("config: synthetic start %q: %w", s.Start, err)
	}
	return nil
}

// ClampPrice bounds price to [PriceMin, PriceMax]. NaN resolves to the
// configured default price.
func (c Config) ClampPrice(price float64) float64 {
	if math.IsNaN(price) {
		price = c.PricePerUnit
	}
	return math.Min(math.Max(price, c.PriceMin), c.PriceMax)
}

func isProbability(p float64) bool {
	return p >= 0 && p <= 1
}

func getenvFloat(key string, fallback float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback, fmt.Errorf("config: %s=%q: %w", key, value, err)
	}
	return parsed, nil
}
