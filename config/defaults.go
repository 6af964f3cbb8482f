package config

import "github.com/spf13/viper"

const (
	DefaultTarget   = "development"
	DefaultStrategy = "mirror"
	DefaultLocation = ".fluidgen"
	DefaultHost     = "localhost"
	DefaultPort     = 8000
)

// SetDefaults registers the default of every scalar key. Registering them
// also lets AutomaticEnv see the keys during Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("target", DefaultTarget)
	v.SetDefault("output.strategy", DefaultStrategy)
	v.SetDefault("output.location", DefaultLocation)
	v.SetDefault("backend.host", DefaultHost)
	v.SetDefault("backend.port", DefaultPort)
}
