package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	t.Setenv(EnvPricePerUnit, "")
	t.Setenv(EnvThresholdPct, "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 7.33, cfg.OilTonnesToBarrels)
	assert.Equal(t, 175.8, cfg.GasMmscfToBoe)
	assert.Equal(t, 15.0, cfg.GovernanceThresholdPct)
	assert.Equal(t, SeverityCutpoints{Medium: 20, High: 25}, cfg.SeverityCutpoints)
	assert.Equal(t, FallbackModel{Qi: 100000, Di: 0.03}, cfg.FallbackModel)
}

func TestLoad_YAMLAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reconciler.yaml")
	yamlData := `
price_per_unit: 90
governance_threshold_pct: 12.5
severity_cutpoints:
  medium: 18
  high: 30
sensitivity_prices: [40, 80, 120]
synthetic:
  field_name: FORTIES FIELD
  months: 24
  seed: 7
`
	require.NoError(t, os.WriteFile(path, []byte(yamlData), 0o600))

	t.Setenv(EnvConfigPath, "")
	t.Setenv(EnvPricePerUnit, "")
	t.Setenv(EnvThresholdPct, "16")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 90.0, cfg.PricePerUnit)
	assert.Equal(t, 16.0, cfg.GovernanceThresholdPct, "env overrides yaml")
	assert.Equal(t, SeverityCutpoints{Medium: 18, High: 30}, cfg.SeverityCutpoints)
	assert.Equal(t, []float64{40, 80, 120}, cfg.SensitivityPrices)
	assert.Equal(t, "FORTIES FIELD", cfg.Synthetic.FieldName)
	assert.Equal(t, 24, cfg.Synthetic.Months)
	assert.Equal(t, int64(7), cfg.Synthetic.Seed)
	// untouched keys keep their defaults
	assert.Equal(t, 7.33, cfg.OilTonnesToBarrels)
	assert.Equal(t, "2018-01", cfg.Synthetic.Start)
}

func TestLoad_Errors(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	t.Setenv(EnvThresholdPct, "")

	t.Run("missing file", func(t *testing.T) {
		t.Setenv(EnvPricePerUnit, "")
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("bad yaml", func(t *testing.T) {
		t.Setenv(EnvPricePerUnit, "")
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("price_per_unit: [oops"), 0o600))
		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("non-finite env overrides", func(t *testing.T) {
		t.Setenv(EnvPricePerUnit, "NaN")
		_, err := Load("")
		assert.Error(t, err)

		t.Setenv(EnvPricePerUnit, "")
		t.Setenv(EnvThresholdPct, "NaN")
		_, err = Load("")
		assert.Error(t, err)
		t.Setenv(EnvThresholdPct, "")
	})

	t.Run("non-finite yaml price", func(t *testing.T) {
		t.Setenv(EnvPricePerUnit, "")
		path := filepath.Join(t.TempDir(), "nan.yaml")
		require.NoError(t, os.WriteFile(path, []byte("price_per_unit: .nan\n"), 0o600))
		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("bad env float", func(t *testing.T) {
		t.Setenv(EnvPricePerUnit, "seventy")
		_, err := Load("")
		assert.Error(t, err)
	})
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "zero oil factor", mutate: func(c *Config) { c.OilTonnesToBarrels = 0 }, wantErr: true},
		{name: "inverted price bounds", mutate: func(c *Config) { c.PriceMin, c.PriceMax = 120, 40 }, wantErr: true},
		{name: "medium below threshold", mutate: func(c *Config) { c.SeverityCutpoints.Medium = 10 }, wantErr: true},
		{name: "high below medium", mutate: func(c *Config) { c.SeverityCutpoints.High = 19 }, wantErr: true},
		{name: "fallback decline too small", mutate: func(c *Config) { c.FallbackModel.Di = 0 }, wantErr: true},
		{name: "probability above one", mutate: func(c *Config) { c.Synthetic.ShutInProbability = 1.5 }, wantErr: true},
		{name: "bad start month", mutate: func(c *Config) { c.Synthetic.Start = "Jan 2018" }, wantErr: true},
		{name: "NaN price", mutate: func(c *Config) { c.PricePerUnit = math.NaN() }, wantErr: true},
		{name: "infinite price max", mutate: func(c *Config) { c.PriceMax = math.Inf(1) }, wantErr: true},
		{name: "NaN price min", mutate: func(c *Config) { c.PriceMin = math.NaN() }, wantErr: true},
		{name: "NaN threshold", mutate: func(c *Config) { c.GovernanceThresholdPct = math.NaN() }, wantErr: true},
		{name: "NaN high cutpoint", mutate: func(c *Config) { c.SeverityCutpoints.High = math.NaN() }, wantErr: true},
		{name: "infinite gas factor", mutate: func(c *Config) { c.GasMmscfToBoe = math.Inf(1) }, wantErr: true},
		{name: "NaN fallback qi", mutate: func(c *Config) { c.FallbackModel.Qi = math.NaN() }, wantErr: true},
		{name: "infinite fallback di", mutate: func(c *Config) { c.FallbackModel.Di = math.Inf(1) }, wantErr: true},
		{name: "NaN sensitivity price", mutate: func(c *Config) { c.SensitivityPrices = []float64{55, math.NaN()} }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_ClampPrice(t *testing.T) {
	cfg := Default()
	tests := []struct {
		in   float64
		want float64
	}{
		{in: 72.5, want: 72.5},
		{in: 10, want: 40},
		{in: 40, want: 40},
		{in: 500, want: 120},
		{in: 120, want: 120},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, cfg.ClampPrice(tt.in), "ClampPrice(%v)", tt.in)
	}
}
