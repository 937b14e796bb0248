package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger 结构化日志接口，参数以键值对形式传入
type Logger interface {
	Debug(msg string, kv ...any)
	Info(msg string, kv ...any)
	Warn(msg string, kv ...any)
	Error(msg string, kv ...any)
	Err(err error, msg string, kv ...any)
	With(kv ...any) Logger
}

// Options 日志配置
type Options struct {
	Level      string
	Writers    []string // console / file
	File       string
	MaxSizeMB  int
	MaxBackups int
}

type zeroLogger struct {
	z zerolog.Logger
}

// New 基于 zerolog 创建日志实例
func New(opts Options) Logger {
	var writers []io.Writer
	for _, w := range opts.Writers {
		switch strings.ToLower(w) {
		case "console":
			writers = append(writers, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.DateTime})
		case "file":
			name := opts.File
			if name == "" {
				name = "logs/cdptour.log"
			}
			writers = append(writers, &lumberjack.Logger{
				Filename:   name,
				MaxSize:    orDefault(opts.MaxSizeMB, 10),
				MaxBackups: orDefault(opts.MaxBackups, 3),
				Compress:   true,
			})
		}
	}
	if len(writers) == 0 {
		writers = append(writers, os.Stderr)
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
	if err != nil || opts.Level == "" {
		lvl = zerolog.InfoLevel
	}
	z := zerolog.New(zerolog.MultiLevelWriter(writers...)).Level(lvl).With().Timestamp().Logger()
	return &zeroLogger{z: z}
}

// NewWithWriter 输出到指定 writer，主要用于测试
func NewWithWriter(w io.Writer, level zerolog.Level) Logger {
	return &zeroLogger{z: zerolog.New(w).Level(level).With().Timestamp().Logger()}
}

// NewNop 创建丢弃所有输出的日志实例
func NewNop() Logger {
	return &zeroLogger{z: zerolog.Nop()}
}

func (l *zeroLogger) Debug(msg string, kv ...any) { l.z.Debug().Fields(kv).Msg(msg) }
func (l *zeroLogger) Info(msg string, kv ...any)  { l.z.Info().Fields(kv).Msg(msg) }
func (l *zeroLogger) Warn(msg string, kv ...any)  { l.z.Warn().Fields(kv).Msg(msg) }
func (l *zeroLogger) Error(msg string, kv ...any) { l.z.Error().Fields(kv).Msg(msg) }

func (l *zeroLogger) Err(err error, msg string, kv ...any) {
	l.z.Error().Err(err).Fields(kv).Msg(msg)
}

func (l *zeroLogger) With(kv ...any) Logger {
	return &zeroLogger{z: l.z.With().Fields(kv).Logger()}
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
