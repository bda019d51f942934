package main

import (
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/merchantmoh-debug/ArkLang/interop"
	"github.com/merchantmoh-debug/ArkLang/vm"
)

const (
	configBaseName = ".ark"
	envPrefix      = "ARK"

	fuelFlagName    = "fuel"
	execFlagName    = "allow-exec"
	outputFlagName  = "output"
	packageFlagName = "package"
	verboseFlagName = "verbose"

	fuelConfigKey    = "run.fuel"
	execConfigKey    = "run.allow_exec"
	packageConfigKey = "wit.package"

	logFilenameKey   = "log.filename"
	logLevelKey      = "log.level"
	logMaxSizeKey    = "log.max_size"
	logMaxBackupsKey = "log.max_backups"
	logMaxAgeKey     = "log.max_age"

	defaultLogFilename   = ".ark.log"
	defaultLogMaxSize    = 10
	defaultLogMaxBackups = 3
	defaultLogMaxAge     = 28
	defaultWitPackage    = "ark:program"
)

func initConfig() {
	viper.SetConfigName(configBaseName)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	viper.SetDefault(fuelConfigKey, uint64(defaultFuel))
	viper.SetDefault(execConfigKey, false)
	viper.SetDefault(packageConfigKey, defaultWitPackage)
	viper.SetDefault(logFilenameKey, defaultLogFilename)
	viper.SetDefault(logLevelKey, "info")
	viper.SetDefault(logMaxSizeKey, defaultLogMaxSize)
	viper.SetDefault(logMaxBackupsKey, defaultLogMaxBackups)
	viper.SetDefault(logMaxAgeKey, defaultLogMaxAge)

	// a missing config file is fine, flags and env still apply
	_ = viper.ReadInConfig()
}

func parseLogLevel(value string, fallback zapcore.Level) zapcore.Level {
	var level zapcore.Level
	if err := level.Set(strings.TrimSpace(value)); err != nil {
		return fallback
	}
	return level
}

// configureLogger routes structured logs to a rotated file and hands
// the logger to the runtime packages.
func configureLogger(verbose bool) *zap.Logger {
	level := parseLogLevel(viper.GetString(logLevelKey), zapcore.InfoLevel)
	if verbose {
		level = zapcore.DebugLevel
	}

	sink := zapcore.AddSync(&lumberjack.Logger{
		Filename:   viper.GetString(logFilenameKey),
		MaxSize:    viper.GetInt(logMaxSizeKey),
		MaxBackups: viper.GetInt(logMaxBackupsKey),
		MaxAge:     viper.GetInt(logMaxAgeKey),
	})

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		sink,
		level,
	)
	logger := zap.New(core)

	vm.SetLogger(logger)
	interop.SetLogger(logger)
	return logger
}
