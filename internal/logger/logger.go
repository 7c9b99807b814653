package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/wfunc/founder-game/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	root    *zap.Logger
	modules map[string]*zap.Logger
	once    sync.Once
	mu      sync.RWMutex
)

// Init 根据配置初始化日志系统，重复调用只生效一次
func Init(cfg *config.LogConfig) error {
	var initErr error
	once.Do(func() {
		sinks, err := buildSinks(cfg)
		if err != nil {
			initErr = err
			return
		}

		encoder := buildEncoder(cfg.Format)
		level := parseLevel(cfg.Level)

		var cores []zapcore.Core
		for _, sink := range sinks {
			cores = append(cores, zapcore.NewCore(encoder, sink, level))
		}

		mu.Lock()
		defer mu.Unlock()

		root = zap.New(
			zapcore.NewTee(cores...),
			zap.AddCaller(),
			zap.AddCallerSkip(1),
			zap.AddStacktrace(zapcore.ErrorLevel),
		)

		// 模块日志器复用同一组输出，只改级别
		modules = make(map[string]*zap.Logger, len(cfg.Modules))
		for name, levelStr := range cfg.Modules {
			var moduleCores []zapcore.Core
			moduleLevel := parseLevel(levelStr)
			for _, sink := range sinks {
				moduleCores = append(moduleCores, zapcore.NewCore(encoder, sink, moduleLevel))
			}
			modules[name] = zap.New(
				zapcore.NewTee(moduleCores...),
				zap.AddCaller(),
				zap.AddCallerSkip(1),
			).With(zap.String("module", name))
		}
	})
	return initErr
}

// buildSinks 按输出模式组装写入目标，文件输出带轮转
func buildSinks(cfg *config.LogConfig) ([]zapcore.WriteSyncer, error) {
	var sinks []zapcore.WriteSyncer

	if cfg.Output == "stdout" || cfg.Output == "both" {
		sinks = append(sinks, zapcore.AddSync(os.Stdout))
	}

	if cfg.Output == "file" || cfg.Output == "both" {
		if err := os.MkdirAll(cfg.File.Path, 0755); err != nil {
			return nil, fmt.Errorf("创建日志目录失败: %w", err)
		}
		rotating := &lumberjack.Logger{
			Filename:   filepath.Join(cfg.File.Path, cfg.File.Filename),
			MaxSize:    cfg.File.MaxSize,
			MaxAge:     cfg.File.MaxAge,
			MaxBackups: cfg.File.MaxBackups,
			Compress:   cfg.File.Compress,
		}
		sinks = append(sinks, zapcore.AddSync(rotating))
	}

	if len(sinks) == 0 {
		sinks = append(sinks, zapcore.AddSync(os.Stdout))
	}
	return sinks, nil
}

// buildEncoder JSON用于采集，console带颜色便于本地调试
func buildEncoder(format string) zapcore.Encoder {
	encCfg := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	if format == "json" {
		return zapcore.NewJSONEncoder(encCfg)
	}
	encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return zapcore.NewConsoleEncoder(encCfg)
}

func parseLevel(levelStr string) zapcore.Level {
	if level, err := zapcore.ParseLevel(levelStr); err == nil {
		return level
	}
	return zapcore.InfoLevel
}

// GetLogger 获取根日志器，未初始化时退化为生产默认配置
func GetLogger() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	if root == nil {
		fallback, _ := zap.NewProduction()
		return fallback
	}
	return root
}

// GetModuleLogger 获取模块日志器，未配置的模块走根日志器
func GetModuleLogger(name string) *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	if l, ok := modules[name]; ok {
		return l
	}
	if root != nil {
		return root
	}
	fallback, _ := zap.NewProduction()
	return fallback
}

// Sync 刷新日志缓冲区
func Sync() error {
	mu.RLock()
	defer mu.RUnlock()
	if root != nil {
		return root.Sync()
	}
	return nil
}

// Cleanup 进程退出前刷盘
func Cleanup() {
	if err := Sync(); err != nil {
		fmt.Printf("日志刷盘失败: %v\n", err)
	}
}

// 便捷方法

func Debug(msg string, fields ...zap.Field) { GetLogger().Debug(msg, fields...) }
func Info(msg string, fields ...zap.Field)  { GetLogger().Info(msg, fields...) }
func Warn(msg string, fields ...zap.Field)  { GetLogger().Warn(msg, fields...) }
func Error(msg string, fields ...zap.Field) { GetLogger().Error(msg, fields...) }
func Fatal(msg string, fields ...zap.Field) { GetLogger().Fatal(msg, fields...) }

// LogRequest 记录HTTP请求
func LogRequest(method, path string, statusCode int, latency time.Duration, clientIP string) {
	GetLogger().Info("request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", statusCode),
		zap.Duration("latency", latency),
		zap.String("client_ip", clientIP),
	)
}

// LogGameEvent 记录游戏事件，identityToken标识事件归属的玩家身份
func LogGameEvent(event string, identityToken string, data map[string]interface{}) {
	GetModuleLogger("game").Info("game_event",
		zap.String("event", event),
		zap.String("identity", identityToken),
		zap.Any("data", data),
	)
}

// LogSyncEvent 记录排行榜同步结果
func LogSyncEvent(identityToken string, score int64, success bool, err error) {
	l := GetModuleLogger("sync")
	if success {
		l.Debug("sync_publish",
			zap.String("identity", identityToken),
			zap.Int64("score", score),
		)
		return
	}
	l.Error("sync_publish_failed",
		zap.String("identity", identityToken),
		zap.Int64("score", score),
		zap.Error(err),
	)
}
