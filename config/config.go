// Package config loads fluid.config.{json,yaml,toml} and the overrides
// accepted on the command line.
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/schema"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/broady/fluidgen/ir"
)

// FileName is the config file base name; viper adds the extension.
const FileName = "fluid.config"

// EnvPrefix prefixes environment overrides, e.g. FLUIDGEN_OUTPUT_STRATEGY.
const EnvPrefix = "FLUIDGEN"

// Config is the generator configuration.
type Config struct {
	Target       string                 `mapstructure:"target" json:"target" validate:"required"`
	Output       Output                 `mapstructure:"output" json:"output"`
	Backend      Backend                `mapstructure:"backend" json:"backend"`
	Environments map[string]Environment `mapstructure:"environments" json:"environments" validate:"required,dive"`
}

// Output selects where generated files go.
type Output struct {
	Strategy string `mapstructure:"strategy" json:"strategy" validate:"oneof=mirror co-locate"`
	Location string `mapstructure:"location" json:"location" validate:"required"`
}

// Backend is the address of the Go server, used by server-side code in
// unified mode.
type Backend struct {
	Host string `mapstructure:"host" json:"host" validate:"required,hostname|ip"`
	Port int    `mapstructure:"port" json:"port" validate:"min=1,max=65535"`
}

// Environment describes how one deployment target reaches the API.
type Environment struct {
	Mode   string `mapstructure:"mode" json:"mode" validate:"oneof=unified separate"`
	APIURL string `mapstructure:"apiUrl" json:"apiUrl" validate:"required"`
}

var validate = validator.New()

// Default returns the configuration used when no file exists.
func Default() *Config {
	c := &Config{
		Target:  DefaultTarget,
		Output:  Output{Strategy: DefaultStrategy, Location: DefaultLocation},
		Backend: Backend{Host: DefaultHost, Port: DefaultPort},
	}
	c.Environments = c.defaultEnvironments()
	return c
}

func (c *Config) defaultEnvironments() map[string]Environment {
	return map[string]Environment{
		"development": {Mode: "separate", APIURL: fmt.Sprintf("http://%s:%d", c.Backend.Host, c.Backend.Port)},
		"production":  {Mode: "separate", APIURL: "https://api.example.com"},
	}
}

// Load reads the configuration for the project at root. A .env file in
// root is loaded into the environment first; variables already set win.
// A missing config file yields the defaults.
func Load(root string) (*Config, error) {
	if err := godotenv.Load(filepath.Join(root, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, errors.Wrap(err, "load .env")
	}

	v := viper.New()
	v.SetConfigName(FileName)
	v.AddConfigPath(root)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.Wrapf(err, "read %s", FileName)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	return &c, nil
}

// Normalize fills in defaults that depend on other settings. Without any
// environments the built-in development and production entries are used,
// and an unknown target falls back to development.
func (c *Config) Normalize() []ir.Warning {
	var warnings []ir.Warning
	if c.Output.Strategy == "" {
		c.Output.Strategy = DefaultStrategy
	}
	if c.Output.Location == "" {
		c.Output.Location = DefaultLocation
	}
	if len(c.Environments) == 0 {
		c.Environments = c.defaultEnvironments()
	}
	if c.Target == "" {
		c.Target = DefaultTarget
	}
	if _, ok := c.Environments[c.Target]; !ok {
		warnings = append(warnings, ir.Warning{
			Code:    ir.WarnConfig,
			Message: fmt.Sprintf("unknown target %q (have %s), using %s", c.Target, strings.Join(c.environmentNames(), ", "), DefaultTarget),
			Source:  "target",
		})
		c.Target = DefaultTarget
		if _, ok := c.Environments[DefaultTarget]; !ok {
			c.Environments[DefaultTarget] = c.defaultEnvironments()[DefaultTarget]
		}
	}
	return warnings
}

func (c *Config) environmentNames() []string {
	names := make([]string, 0, len(c.Environments))
	for name := range c.Environments {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks every field.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.WithHint(errors.Wrap(err, "invalid configuration"),
			"check "+FileName+".json or the "+EnvPrefix+"_* environment variables")
	}
	return nil
}

// TargetEnvironment returns the environment named by Target.
func (c *Config) TargetEnvironment() Environment {
	return c.Environments[c.Target]
}

// WriteDefault writes the default configuration as JSON to root and returns
// the path written. An existing file is left alone.
func WriteDefault(root string) (string, error) {
	path := filepath.Join(root, FileName+".json")
	data, err := json.MarshalIndent(Default(), "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "encode config")
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return path, errors.WithHint(errors.Newf("%s already exists", path), "edit the existing file instead")
		}
		return "", errors.Wrap(err, "create config")
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		f.Close()
		return "", errors.Wrap(err, "write config")
	}
	return path, errors.Wrap(f.Close(), "close config")
}

// Overrides are settings given on the command line. Empty fields leave the
// loaded configuration unchanged.
type Overrides struct {
	Strategy string `schema:"strategy"`
	Target   string `schema:"target"`
	Location string `schema:"location"`
}

var overrideDecoder = schema.NewDecoder()

// ParseOverrides decodes overrides from a URL query string such as
// "strategy=co-locate&target=production". Unknown keys are an error.
func ParseOverrides(query string) (Overrides, error) {
	var o Overrides
	if query == "" {
		return o, nil
	}
	values, err := url.ParseQuery(query)
	if err != nil {
		return o, errors.Wrap(err, "parse overrides")
	}
	if err := overrideDecoder.Decode(&o, values); err != nil {
		return o, errors.Wrap(err, "decode overrides")
	}
	return o, nil
}

// Query encodes o in the form ParseOverrides accepts.
func (o Overrides) Query() string {
	values := url.Values{}
	for key, val := range map[string]string{"strategy": o.Strategy, "target": o.Target, "location": o.Location} {
		if val != "" {
			values.Set(key, val)
		}
	}
	return values.Encode()
}

// Apply merges the non-empty overrides into c.
func (o Overrides) Apply(c *Config) {
	if o.Strategy != "" {
		c.Output.Strategy = o.Strategy
	}
	if o.Target != "" {
		c.Target = o.Target
	}
	if o.Location != "" {
		c.Output.Location = o.Location
	}
}
