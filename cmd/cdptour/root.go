package main

import (
	"cdptour/internal/config"
	"cdptour/internal/logger"
	"cdptour/pkg/api"

	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "cdptour",
	Short: "Guided product tours over a Chrome DevTools page",
	Long: `cdptour attaches to a running Chrome through the DevTools protocol and
walks the user through a sequence of highlighted page elements, keeping the
explanation modal positioned next to each target.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "cdptour.yaml", "config file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log level")

	rootCmd.AddCommand(toursCmd, targetsCmd, runCmd, historyCmd)
}

// loadConfig 读取配置并创建日志
func loadConfig() (*config.Config, logger.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	l := logger.New(logger.Options{
		Level:   cfg.Log.Level,
		Writers: cfg.Log.Writer,
		File:    cfg.Log.File,
	})
	return cfg, l, nil
}

// newService 按配置创建服务
func newService() (api.Service, *config.Config, error) {
	cfg, l, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	svc, err := api.NewService(cfg, l)
	if err != nil {
		return nil, nil, err
	}
	return svc, cfg, nil
}
