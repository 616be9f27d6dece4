package common

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Logger 全局日誌實例，未初始化前為 no-op
	Logger  = zap.NewNop()
	LogMode string

	// 定義日誌級別的顏色
	levelColors = map[zapcore.Level]string{
		zapcore.DebugLevel: "\033[36m", // 青色
		zapcore.InfoLevel:  "\033[32m", // 綠色
		zapcore.WarnLevel:  "\033[33m", // 黃色
		zapcore.ErrorLevel: "\033[31m", // 紅色
		zapcore.FatalLevel: "\033[35m", // 紫色
	}
	resetColor = "\033[0m"

	// concise 模式下仍然輸出的訊息
	conciseMessages = map[string]struct{}{
		"請求完成":                    {},
		"啟動應用":                    {},
		"Server exited":           {},
		"Shutting down server...": {},
	}

	// 需要遮罩的欄位名稱片段
	secretKeys = []string{"api_key", "app_key", "password", "secret"}
)

// 自定義編碼器配置
func getEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		MessageKey:     "msg",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    customLevelEncoder,
		EncodeTime:     customTimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}
}

// 自定義時間格式
func customTimeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("15:04:05.000"))
}

// 自定義級別編碼器（添加顏色）
func customLevelEncoder(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	level := l.CapitalString()
	switch l {
	case zapcore.DebugLevel:
		level = "DBG"
	case zapcore.InfoLevel:
		level = "INF"
	case zapcore.WarnLevel:
		level = "WRN"
	case zapcore.ErrorLevel:
		level = "ERR"
	case zapcore.FatalLevel:
		level = "FAT"
	}
	enc.AppendString(levelColors[l] + level + resetColor)
}

// ParseLevel 將設定字串轉為 zap 級別，未知值視為 info
func ParseLevel(logLevel string) zapcore.Level {
	switch strings.ToLower(logLevel) {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// InitLogger 初始化日誌系統；logFile 為空時只輸出到 console
func InitLogger(logLevel, logFile string) error {
	level := ParseLevel(logLevel)

	// 讀取 LOG_MODE（必須在 .env 載入後）
	LogMode = os.Getenv("LOG_MODE")

	cores := []zapcore.Core{
		zapcore.NewCore(
			zapcore.NewConsoleEncoder(getEncoderConfig()),
			zapcore.AddSync(os.Stdout),
			level,
		),
	}

	if logFile != "" {
		if err := os.MkdirAll(filepath.Dir(logFile), 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		fileConfig := getEncoderConfig()
		fileConfig.EncodeLevel = zapcore.LowercaseLevelEncoder
		fileConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(fileConfig),
			zapcore.AddSync(f),
			level,
		))
	}

	Logger = zap.New(zapcore.NewTee(cores...),
		zap.AddCallerSkip(1),
		zap.Fields(zap.String("service", "recipe-recommender")),
	)
	zap.ReplaceGlobals(Logger)

	return nil
}

// sanitizeFields 遮罩含有金鑰的欄位
func sanitizeFields(fields []zap.Field) []zap.Field {
	out := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		if isSecretKey(field.Key) && field.Type == zapcore.StringType {
			field = zap.String(field.Key, MaskSecret(field.String))
		}
		out = append(out, field)
	}
	return out
}

func isSecretKey(key string) bool {
	key = strings.ToLower(key)
	for _, s := range secretKeys {
		if strings.Contains(key, s) {
			return true
		}
	}
	return false
}

// MaskSecret 遮罩金鑰，只顯示前後各 4 個字符
func MaskSecret(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// RedactURL 移除 *url.Error 內請求網址的查詢字串，金鑰不會出現在錯誤訊息
func RedactURL(err error) error {
	var urlErr *url.Error
	if !errors.As(err, &urlErr) {
		return err
	}
	redacted := *urlErr
	if u, perr := url.Parse(urlErr.URL); perr == nil {
		u.RawQuery = ""
		u.User = nil
		redacted.URL = u.String()
	} else {
		redacted.URL = "[redacted]"
	}
	return &redacted
}

// LogInfo 記錄信息日誌
func LogInfo(msg string, fields ...zap.Field) {
	if LogMode == "concise" {
		if _, ok := conciseMessages[msg]; !ok {
			return
		}
	}
	Logger.Info(msg, sanitizeFields(fields)...)
}

// LogError 記錄錯誤日誌
func LogError(msg string, fields ...zap.Field) {
	Logger.Error(msg, sanitizeFields(fields)...)
}

// LogWarn 記錄警告日誌
func LogWarn(msg string, fields ...zap.Field) {
	Logger.Warn(msg, sanitizeFields(fields)...)
}

// LogDebug 記錄調試日誌
func LogDebug(msg string, fields ...zap.Field) {
	Logger.Debug(msg, sanitizeFields(fields)...)
}

// LogFatal 記錄致命錯誤日誌
func LogFatal(msg string, fields ...zap.Field) {
	Logger.Fatal(msg, sanitizeFields(fields)...)
}

// Sync 同步日誌緩衝
func Sync() {
	if Logger != nil {
		_ = Logger.Sync()
	}
}

// LogCacheHit 記錄快取命中
func LogCacheHit(cacheType string) {
	LogDebug("快取命中", zap.String("類型", cacheType))
}

// LogCacheMiss 記錄快取未命中
func LogCacheMiss(cacheType string) {
	LogDebug("快取未命中", zap.String("類型", cacheType))
}

// LogUpstreamCall 記錄外部服務調用
func LogUpstreamCall(upstream string, duration time.Duration, err error, fields ...zap.Field) {
	fields = append(fields, zap.String("upstream", upstream), zap.Duration("耗時", duration))
	if err != nil {
		LogError("外部服務請求失敗", append(fields, zap.Error(err))...)
		return
	}
	LogDebug("外部服務請求成功", fields...)
}
