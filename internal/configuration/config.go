package configuration

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"stepup/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"go.uber.org/zap"
)

func parseArrayFields(k *koanf.Koanf) {
	for _, field := range ArrayConfigFields {
		if stringVal := k.String(field); stringVal != "" {
			stringVal = strings.Trim(stringVal, "[]")
			var items []string
			if strings.Contains(stringVal, ",") {
				items = strings.Split(stringVal, ",")
			} else {
				items = strings.Fields(stringVal)
			}
			for i, item := range items {
				items[i] = strings.TrimSpace(item)
			}
			err := k.Set(field, items)
			if err != nil {
				zap.L().
					Error("Error parsing array field", zap.String("field", field), zap.Error(err))
			}
		}
	}
}

func readEnvVars(k *koanf.Koanf) {
	err := k.Load(env.Provider("", ".", func(s string) string {
		s = strings.ToLower(s)
		segments := strings.Split(s, "__")
		result := strings.Join(segments, ".")
		return result
	}), nil)
	if err != nil {
		zap.L().Warn("Error loading environment variables", zap.Error(err))
	}

	parseArrayFields(k)
}

func readFileConfig(k *koanf.Koanf) {
	configFilePath := os.Getenv("CONFIG_FILE_PATH")
	var filePath string
	if configFilePath == "" {
		for _, path := range ConfigFileSearchPaths {
			if _, err := os.Stat(path); err == nil {
				filePath = path
				break
			}
		}
	} else {
		filePath = configFilePath
	}

	if filePath != "" {
		err := k.Load(file.Provider(filePath), yaml.Parser())
		if err != nil {
			zap.L().
				Fatal("Fatal error loading config file", zap.String("path", filePath), zap.Error(err))
		}
		zap.L().Info("Read configuration from file " + filePath)
	} else {
		zap.L().Warn("No configuration file found")
	}
}

func loadDefaults(k *koanf.Koanf) {
	defaults := map[string]interface{}{
		"app.profile":                "default",
		"app.access_token_expiry":    60,
		"app.step_up_challenge_ttl":  600,
		"app.elevated_token_expiry":  5,
		"app.step_up_rate_limit":     StepUpRateLimit,
		"app.protected_actions":      []string{ActionApprovePosition, ActionRemoveMFADevice},
		"app.unverified_device_ttl":  30,
		"app.garbage_collect_period": 10,
		"app.log_level":              "info",
		"app.port":                   8080,

		"database.type": "postgres",
		"database.port": int32(5432),

		"events.type": "memory",

		"tracing.sample_ratio": 1.0,

		"notifier.smtp.enable_tls":      false,
		"notifier.smtp.skip_verify_tls": false,
	}

	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		zap.L().Fatal("Failed to load default configuration", zap.Error(err))
	}
}

func setIfMissing(k *koanf.Koanf, key string, value interface{}) {
	if !k.Exists(key) {
		_ = k.Set(key, value)
	}
}

func loadConditionalDefaults(k *koanf.Koanf) {
	if k.String("database.type") == "sqlite" {
		setIfMissing(k, "database.name", "stepup.db")
	}
	if k.String("activity.type") == "" {
		setIfMissing(k, "activity.type", "filesystem")
		setIfMissing(k, "activity.filesystem.directory", "data/activity")
	}
}

func Read() models.Configuration {
	k := koanf.New(".")

	loadDefaults(k)
	readFileConfig(k)
	readEnvVars(k)
	loadConditionalDefaults(k)

	var config models.Configuration
	err := k.UnmarshalWithConf("", &config, koanf.UnmarshalConf{Tag: "mapstructure"})
	if err != nil {
		zap.L().Fatal("Unable to decode config into struct", zap.Error(err))
	}

	validate := validator.New()
	if err = validate.Struct(config); err != nil {
		zap.L().Fatal("Invalid configuration", zap.Error(err))
	}

	return config
}

func loadClientDefaults(k *koanf.Koanf) {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}

	defaults := map[string]interface{}{
		"timeout":          15,
		"resend_threshold": 570,
		"session_file":     filepath.Join(home, ".config", AppName, "session"),
		"log_level":        "warn",
	}

	_ = k.Load(confmap.Provider(defaults, "."), nil)
}

// ReadClient loads the CLI configuration from the first client config file
// found and STEPUP__* environment variables.
func ReadClient() (models.ClientConfiguration, error) {
	k := koanf.New(".")

	loadClientDefaults(k)

	for _, path := range ClientConfigFileSearchPaths {
		path = os.ExpandEnv(path)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return models.ClientConfiguration{}, fmt.Errorf("failed to load %s: %w", path, err)
		}
		break
	}

	err := k.Load(env.Provider("STEPUP__", ".", func(s string) string {
		s = strings.TrimPrefix(s, "STEPUP__")
		return strings.Join(strings.Split(strings.ToLower(s), "__"), ".")
	}), nil)
	if err != nil {
		return models.ClientConfiguration{}, fmt.Errorf("failed to load environment: %w", err)
	}

	var config models.ClientConfiguration
	if err = k.UnmarshalWithConf("", &config, koanf.UnmarshalConf{Tag: "mapstructure"}); err != nil {
		return models.ClientConfiguration{}, fmt.Errorf("unable to decode client config: %w", err)
	}

	if err = validator.New().Struct(config); err != nil {
		return models.ClientConfiguration{}, fmt.Errorf("invalid client configuration: %w", err)
	}

	return config, nil
}
