package main

import (
	"errors"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const appName = "forum-trello-sync"

var configPath string

var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "Keep Discord forums and Trello boards in sync",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig()
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ./config.toml)")
	rootCmd.AddCommand(serveCmd, syncCmd)
}

func loadConfig() error {
	viper.SetDefault("database.path", "links.db")
	viper.SetDefault("server.port", "6721")
	viper.SetDefault("trello.retry_attempts", 3)
	viper.SetDefault("oauth.redirect_url", "http://localhost:6721/callback")
	viper.SetDefault("sync.remove_extra", false)
	viper.SetDefault("sync.workers", 10)

	viper.SetEnvPrefix("FTS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("toml")
		viper.AddConfigPath(".")
	}
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			zap.L().Error("Error reading config file", zap.Error(err))
			return err
		}
		zap.L().Warn("No config file found; using defaults and environment")
	}
	return nil
}

// newLogger builds the console logger and, when LOG_FILE is set, adds a
// rotated JSON file sink.
func newLogger() *zap.Logger {
	levelStr := strings.ToLower(os.Getenv("LOG_LEVEL"))
	if levelStr == "" {
		levelStr = "debug"
	}
	level, err := zapcore.ParseLevel(levelStr)
	if err != nil {
		level = zapcore.InfoLevel
	}

	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      true,
		Encoding:         "console",
		EncoderConfig:    encoderConfig,
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := config.Build()
	if err != nil {
		logger = zap.NewNop()
	}

	logFile := os.Getenv("LOG_FILE")
	if logFile == "" {
		return logger
	}

	fileSink := zapcore.AddSync(&lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    50, // MB
		MaxAge:     7,  // days
		MaxBackups: 7,
		Compress:   true,
	})
	fileCore := zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), fileSink, zapcore.DebugLevel)

	return logger.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return zapcore.NewTee(c, fileCore)
	}))
}

func main() {
	logger := newLogger()
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
