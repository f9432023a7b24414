// Package config contains code to set the default values and read
// config files to be used throughout the whole application
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"strings"

	v "github.com/spf13/viper"
)

var (
	validLogLevels    = []string{"debug", "info", "warn", "error", "fatal"}
	validStorageTypes = []string{"s3", "local"}
	validDBDrivers    = []string{"sqlite", "postgres"}
	validEnvs         = []string{"development", "production"}
)

// ErrNoSecret is returned when no JWT secret has been configured. The caller
// is expected to print a freshly generated one with GenSecret.
var ErrNoSecret = errors.New("no jwt secret provided")

// GenSecret returns a random hex secret suitable for jwt.secret
func GenSecret() string {
	b := make([]byte, 64)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// Setup prepares everything config-related so that the app can
// start working. path points to a TOML config file, an empty path
// means config.toml in the working directory. A missing file is not
// an error since every key can be provided through the environment.
func Setup(path string) error {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	//
	// ENVS
	//
	v.BindEnv("app.env", "APP_ENV")
	v.BindEnv("app.log_level", "APP_LOG_LEVEL")

	v.BindEnv("host.port", "HOST_PORT")
	v.BindEnv("host.cors", "HOST_CORS")

	v.BindEnv("host.ssl.enabled", "HOST_SSL_ENABLED")
	v.BindEnv("host.ssl.certificate_path", "HOST_SSL_CERTIFICATE_PATH")
	v.BindEnv("host.ssl.certificate_key_path", "HOST_SSL_CERTIFICATE_KEY_PATH")

	v.BindEnv("jwt.secret", "JWT_SECRET")
	v.BindEnv("jwt.ttl", "JWT_TTL")

	v.BindEnv("security.argon.memory", "SECURITY_ARGON_MEMORY")
	v.BindEnv("security.argon.iterations", "SECURITY_ARGON_ITERATIONS")
	v.BindEnv("security.argon.parallelism", "SECURITY_ARGON_PARALLELISM")

	v.BindEnv("db.driver", "DB_DRIVER")
	v.BindEnv("db.dsn", "DB_DSN")

	v.BindEnv("storage.type", "STORAGE_TYPE")
	v.BindEnv("storage.local_dir", "STORAGE_LOCAL_DIR")

	v.BindEnv("upload.max_size", "UPLOAD_MAX_SIZE")
	v.BindEnv("upload.allowed_types", "UPLOAD_ALLOWED_TYPES")

	v.BindEnv("aws.region", "AWS_REGION")
	v.BindEnv("aws.bucket", "AWS_BUCKET")
	v.BindEnv("aws.endpoint", "AWS_ENDPOINT")
	v.BindEnv("aws.public_url", "AWS_PUBLIC_URL")
	v.BindEnv("aws.access_key", "AWS_ACCESS_KEY")
	v.BindEnv("aws.secret_access_key", "AWS_SECRET_ACCESS_KEY")

	//
	// Defaults
	//
	v.SetDefault("app.env", "development")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("host.port", 8080)
	v.SetDefault("host.cors", []string{"http://localhost:8080"})
	v.SetDefault("host.ssl.enabled", false)

	v.SetDefault("jwt.ttl", "24h")

	v.SetDefault("security.argon.memory", 64*1024)
	v.SetDefault("security.argon.iterations", 3)
	v.SetDefault("security.argon.parallelism", 2)

	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.dsn", "database.db")

	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.local_dir", "public/uploads")

	v.SetDefault("upload.max_size", 10)
	v.SetDefault("upload.allowed_types", []string{"image/jpeg", "image/png", "image/webp"})

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(v.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config file, %w", err)
		}
	}

	return Validate()
}

// Validate checks the currently loaded values. It's split from Setup so values
// set directly on viper can be checked too.
func Validate() error {
	if !slices.Contains(validEnvs, v.GetString("app.env")) {
		return errors.New("invalid app env provided")
	}

	if !slices.Contains(validLogLevels, v.GetString("app.log_level")) {
		return errors.New("invalid log level provided")
	}

	if v.GetInt("host.port") <= 0 {
		return errors.New("invalid port provided")
	}

	if v.GetBool("host.ssl.enabled") {
		if v.GetString("host.ssl.certificate_path") == "" {
			return errors.New("no ssl certificate path provided")
		}

		if v.GetString("host.ssl.certificate_key_path") == "" {
			return errors.New("no ssl certificate key path provided")
		}
	}

	if v.GetString("jwt.secret") == "" {
		return ErrNoSecret
	}

	if v.GetDuration("jwt.ttl") <= 0 {
		return errors.New("jwt.ttl must be a positive duration")
	}

	if v.GetUint32("security.argon.memory") == 0 || v.GetUint32("security.argon.iterations") == 0 || v.GetUint("security.argon.parallelism") == 0 {
		return errors.New("argon parameters must be bigger than 0")
	}

	if !slices.Contains(validDBDrivers, v.GetString("db.driver")) {
		return errors.New("invalid database driver provided")
	}

	if v.GetString("db.dsn") == "" {
		return errors.New("db.dsn can't be empty")
	}

	if v.GetInt("upload.max_size") <= 0 {
		return errors.New("upload.max_size must be bigger than 0")
	}

	if len(v.GetStringSlice("upload.allowed_types")) == 0 {
		return errors.New("upload.allowed_types can't be empty")
	}

	switch v.GetString("storage.type") {
	case "s3":
		{
			if v.GetString("aws.region") == "" {
				return errors.New("aws region can't be empty")
			}
			if v.GetString("aws.bucket") == "" {
				return errors.New("bucket can't be empty")
			}
			if v.GetString("aws.access_key") == "" {
				return errors.New("access key can't be empty")
			}
			if v.GetString("aws.secret_access_key") == "" {
				return errors.New("secret access key can't be empty")
			}
			if v.GetString("aws.public_url") == "" {
				return errors.New("aws public url can't be empty")
			}
		}
	case "local":
		{
			if v.GetString("storage.local_dir") == "" {
				return errors.New("storage.local_dir can't be empty")
			}
		}
	}

	if !slices.Contains(validStorageTypes, v.GetString("storage.type")) {
		return errors.New("invalid storage type provided")
	}

	return nil
}

// MaxUploadBytes returns upload.max_size converted from MiB to bytes
func MaxUploadBytes() int64 {
	return v.GetInt64("upload.max_size") << 20
}

// IsProduction reports whether app.env is set to production
func IsProduction() bool {
	return v.GetString("app.env") == "production"
}
