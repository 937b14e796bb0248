package config

import (
	"fmt"
	"os"
	"strings"

	"cdptour/pkg/model"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// EnvPrefix 环境变量覆盖前缀，例如 CDPTOUR_BROWSER.DEVTOOLS_URL
const EnvPrefix = "CDPTOUR_"

// Config 配置文件结构体
type Config struct {
	Version string `yaml:"version"`

	Sqlite struct {
		Dsn    string `yaml:"dsn"`
		Prefix string `yaml:"prefix"`
	} `yaml:"sqlite"`

	Log struct {
		Level  string   `yaml:"level"`
		Writer []string `yaml:"writer"`
		File   string   `yaml:"file"`
	} `yaml:"log"`

	Browser struct {
		DevToolsURL      string `yaml:"devtools_url"`
		ConnectTimeoutMS int    `yaml:"connect_timeout_ms"`
	} `yaml:"browser"`

	Tour Tour `yaml:"tour"`

	Launcher struct {
		AdminRole string   `yaml:"admin_role"`
		AdminTour string   `yaml:"admin_tour"`
		Tours     []string `yaml:"tours"`
	} `yaml:"launcher"`
}

// Tour 导览引擎参数（像素 / 毫秒）
type Tour struct {
	SettleDelayMS    int     `yaml:"settle_delay_ms"`
	HighlightPadding float64 `yaml:"highlight_padding"`
	ModalWidth       float64 `yaml:"modal_width"`
	ModalHeight      float64 `yaml:"modal_height"`
	ModalMargin      float64 `yaml:"modal_margin"`
	ArrowOffset      float64 `yaml:"arrow_offset"`
	ViewportPadding  float64 `yaml:"viewport_padding"`
	TestIDAttribute  string  `yaml:"test_id_attribute"`
	ToursFile        string  `yaml:"tours_file"`
}

// NewConfig 创建默认配置
func NewConfig() *Config {
	c := &Config{Version: "1.0.0"}
	c.Sqlite.Dsn = "cdptour.sqlite3"
	c.Sqlite.Prefix = "cdptour_"
	c.Log.Level = "info"
	c.Log.Writer = []string{"console"}
	c.Log.File = "logs/cdptour.log"
	c.Browser.DevToolsURL = "http://127.0.0.1:9222"
	c.Browser.ConnectTimeoutMS = 5000
	c.Tour = Tour{
		SettleDelayMS:    400,
		HighlightPadding: 8,
		ModalWidth:       320,
		ModalHeight:      200,
		ModalMargin:      20,
		ArrowOffset:      12,
		ViewportPadding:  16,
		TestIDAttribute:  "data-testid",
	}
	c.Launcher.AdminRole = "admin"
	c.Launcher.AdminTour = "admin"
	c.Launcher.Tours = []string{"overview", "invoices", "commissions", "referrals", "admin"}
	return c
}

// Load 读取 YAML 配置文件并叠加环境变量覆盖，文件不存在时使用默认值
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := NewConfig()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("accessing config %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "yaml"}); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save 将配置写入 YAML 文件
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Validate 校验配置取值
func (c *Config) Validate() error {
	t := c.Tour
	if t.SettleDelayMS < 0 {
		return fmt.Errorf("tour.settle_delay_ms must be non-negative")
	}
	if t.ModalWidth <= 0 || t.ModalHeight <= 0 {
		return fmt.Errorf("tour.modal_width and tour.modal_height must be positive")
	}
	if t.HighlightPadding < 0 || t.ModalMargin < 0 || t.ArrowOffset < 0 || t.ViewportPadding < 0 {
		return fmt.Errorf("tour paddings must be non-negative")
	}
	if t.TestIDAttribute == "" {
		return fmt.Errorf("tour.test_id_attribute is required")
	}
	if c.Launcher.AdminRole == "" {
		return fmt.Errorf("launcher.admin_role is required")
	}
	for _, name := range c.Launcher.Tours {
		if !model.TourType(name).Valid() {
			return fmt.Errorf("invalid launcher tour %q", name)
		}
	}
	if c.Sqlite.Dsn == "" {
		return fmt.Errorf("sqlite.dsn is required")
	}
	for _, w := range c.Log.Writer {
		if w != "console" && w != "file" {
			return fmt.Errorf("invalid log writer %q: must be console or file", w)
		}
	}
	return nil
}
