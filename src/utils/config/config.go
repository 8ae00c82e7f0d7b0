package config

import (
	"bytes"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/iancoleman/strcase"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Config stores global configuration
type Config struct {
	// Is development mode on
	IsDevelopment bool

	// Maximum time Ignitor will be closing before stop is forced.
	StopTimeout time.Duration

	// Logging level
	LogLevel string

	Solana   Solana
	Deployer Deployer
	Observer Observer
	Binaries Binaries
	Database Database
	Gateway  Gateway
	Redis    Redis
	Profiler Profiler
}

func setDefaults() {
	viper.SetDefault("IsDevelopment", "false")
	viper.SetDefault("LogLevel", "DEBUG")
	viper.SetDefault("StopTimeout", "30s")

	setSolanaDefaults()
	setDeployerDefaults()
	setObserverDefaults()
	setBinariesDefaults()
	setDatabaseDefaults()
	setGatewayDefaults()
	setRedisDefaults()
	setProfilerDefaults()
}

func Default() (config *Config) {
	config, _ = Load("")
	return
}

func BindEnv(path []string, val reflect.Value) {
	if val.Kind() != reflect.Struct {
		// Base types
		key := strings.Join(path, ".")
		env := "IGNITOR_" + strcase.ToScreamingSnake(strings.Join(path, "_"))
		err := viper.BindEnv(key, env)
		if err != nil {
			panic(err)
		}
	} else {
		// Iterates over struct fields
		for i := 0; i < val.NumField(); i++ {
			newPath := make([]string, len(path))
			copy(newPath, path)
			newPath = append(newPath, val.Type().Field(i).Name)
			BindEnv(newPath, val.Field(i))
		}
	}
}

func defaultDecoderConfig(output interface{}) *mapstructure.DecoderConfig {
	c := &mapstructure.DecoderConfig{
		Metadata:         nil,
		Result:           output,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	}
	return c
}

// Load configuration from file and env
func Load(filename string) (config *Config, err error) {
	viper.SetConfigType("json")

	setDefaults()

	// Visits every field and registers upper snake case ENV name for it
	config = &Config{}
	BindEnv([]string{}, reflect.ValueOf(*config))

	if filename != "" {
		var content []byte
		content, err = os.ReadFile(filename)
		if err != nil {
			return
		}

		err = viper.ReadConfig(bytes.NewBuffer(content))
		if err != nil {
			return
		}
	}

	decoder, err := mapstructure.NewDecoder(defaultDecoderConfig(config))
	if err != nil {
		return
	}

	err = decoder.Decode(viper.AllSettings())
	if err != nil {
		return
	}

	return
}
