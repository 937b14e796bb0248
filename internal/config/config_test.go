package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yml"))
	require.NoError(t, err)
	assert.Equal(t, 400, cfg.Tour.SettleDelayMS)
	assert.Equal(t, "data-testid", cfg.Tour.TestIDAttribute)
	assert.Equal(t, "admin", cfg.Launcher.AdminRole)
	assert.Equal(t, []string{"console"}, cfg.Log.Writer)
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cdptour.yml")
	body := `
tour:
  settle_delay_ms: 250
  modal_width: 360
launcher:
  admin_role: owner
  tours: [overview, admin]
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	t.Setenv("CDPTOUR_BROWSER.DEVTOOLS_URL", "http://10.0.0.5:9222")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 250, cfg.Tour.SettleDelayMS)
	assert.Equal(t, 360.0, cfg.Tour.ModalWidth)
	assert.Equal(t, 200.0, cfg.Tour.ModalHeight)
	assert.Equal(t, "owner", cfg.Launcher.AdminRole)
	assert.Equal(t, []string{"overview", "admin"}, cfg.Launcher.Tours)
	assert.Equal(t, "http://10.0.0.5:9222", cfg.Browser.DevToolsURL)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yml")
	cfg := NewConfig()
	cfg.Tour.ArrowOffset = 20
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 20.0, loaded.Tour.ArrowOffset)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(c *Config){
		"negative settle": func(c *Config) { c.Tour.SettleDelayMS = -1 },
		"zero modal":      func(c *Config) { c.Tour.ModalWidth = 0 },
		"no test id attr": func(c *Config) { c.Tour.TestIDAttribute = "" },
		"bad writer":      func(c *Config) { c.Log.Writer = []string{"syslog"} },
		"no admin role":   func(c *Config) { c.Launcher.AdminRole = "" },
		"unknown tour":    func(c *Config) { c.Launcher.Tours = []string{"overview", "payroll"} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := NewConfig()
			mutate(c)
			assert.Error(t, c.Validate())
		})
	}
	assert.NoError(t, NewConfig().Validate())
}
