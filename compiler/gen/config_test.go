package gen

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/smithygen/compiler/load"
)

func TestFlavor(t *testing.T) {
	tests := []struct {
		in      string
		want    Flavor
		wantErr bool
	}{
		{"client", FlavorClient, false},
		{" Server ", FlavorServer, false},
		{"SDK", FlavorSDK, false},
		{"lambda", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFlavor(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrMissingConfig)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
	for _, f := range Flavors {
		parsed, err := ParseFlavor(f.String())
		require.NoError(t, err)
		assert.Equal(t, f, parsed)
	}
	assert.Equal(t, "flavor(7)", Flavor(7).String())
}

func TestFeatures(t *testing.T) {
	f, ok := FeatureByName("snapshot")
	require.True(t, ok)
	assert.Equal(t, FeatureSnapshot, f)
	_, ok = FeatureByName("nope")
	assert.False(t, ok)

	for _, f := range AllFeatures {
		assert.NotEqual(t, "unknown", f.Stage.String(), f.Name)
		assert.NotEmpty(t, f.Description, f.Name)
	}
	assert.Equal(t, "alpha", Alpha.String())
	assert.Equal(t, "unknown", FeatureStage(0).String())
}

func TestParseSettings(t *testing.T) {
	t.Run("yaml", func(t *testing.T) {
		s, err := ParseSettings(strings.NewReader(`
service: example.weather#Weather
module: weather
moduleVersion: 0.1.0
flavor: server
features: [verify-determinism]
rename:
  example.weather#Forecast: Outlook
`))
		require.NoError(t, err)
		assert.Equal(t, "example.weather#Weather", s.Service)
		assert.Equal(t, "weather", s.Module)
		assert.Equal(t, "0.1.0", s.ModuleVersion)
		assert.Equal(t, "server", s.Flavor)
		assert.Equal(t, []string{"verify-determinism"}, s.Features)

		name, ok := s.Renamed("example.weather#Forecast")
		require.True(t, ok)
		assert.Equal(t, "Outlook", name)
		_, ok = s.Renamed("example.weather#City")
		assert.False(t, ok)
	})

	t.Run("json", func(t *testing.T) {
		s, err := ParseSettings(strings.NewReader(`{"module": "weather", "rename": {"example.weather#City": ""}}`))
		require.NoError(t, err)
		assert.Equal(t, "weather", s.Module)
		_, ok := s.Renamed("example.weather#City")
		assert.False(t, ok, "empty renames are ignored")
	})

	t.Run("empty", func(t *testing.T) {
		s, err := ParseSettings(strings.NewReader(""))
		require.NoError(t, err)
		assert.Empty(t, s.Module)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := ParseSettings(strings.NewReader("module: [unterminated"))
		require.Error(t, err)
	})

	t.Run("nil settings", func(t *testing.T) {
		var s *Settings
		_, ok := s.Renamed("example.weather#Forecast")
		assert.False(t, ok)
	})
}

func TestLoadSettings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "smithygen.yaml")
	require.NoError(t, os.WriteFile(path, []byte("module: weather\nflavor: sdk\n"), 0o600))

	s, err := LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, "sdk", s.Flavor)

	_, err = LoadSettings(filepath.Join(dir, "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("flavor: [x"), 0o600))
	_, err = LoadSettings(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), bad)
}

func TestSettingsOptions(t *testing.T) {
	t.Run("all fields", func(t *testing.T) {
		s := &Settings{
			Service:       "example.weather#Weather",
			Module:        "weather",
			ModuleVersion: "1.2.3",
			Flavor:        "server",
			Features:      []string{"snapshot", "verify-determinism"},
		}
		opts, err := s.Options()
		require.NoError(t, err)
		c, err := NewConfig(opts...)
		require.NoError(t, err)
		assert.Same(t, s, c.Settings)
		assert.Equal(t, []load.ShapeID{weatherID}, c.Services)
		assert.Equal(t, "weather", c.Crate)
		assert.Equal(t, "1.2.3", c.CrateVersion)
		assert.Equal(t, FlavorServer, c.Flavor)
		assert.True(t, c.enabled(FeatureSnapshot))
		assert.True(t, c.enabled(FeatureVerifyDeterminism))
	})

	t.Run("empty settings", func(t *testing.T) {
		opts, err := (&Settings{}).Options()
		require.NoError(t, err)
		assert.Len(t, opts, 1)
	})

	t.Run("unknown flavor", func(t *testing.T) {
		_, err := (&Settings{Flavor: "lambda"}).Options()
		require.ErrorIs(t, err, ErrMissingConfig)
	})

	t.Run("unknown feature", func(t *testing.T) {
		_, err := (&Settings{Features: []string{"warp"}}).Options()
		var cfgErr *ConfigError
		require.ErrorAs(t, err, &cfgErr)
		assert.Equal(t, "warp", cfgErr.Value)
	})
}
