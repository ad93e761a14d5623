package session

import (
	"github.com/spf13/viper"

	"github.com/antokel/cloudkit/pkg/errdefs"
)

// FromFile loads Settings from a profile file (YAML, TOML, or JSON,
// determined by extension). Recognized keys: region, access_key_id,
// secret_access_key.
//
// Values absent from the file fall back to the environment exactly as
// Resolve does, so a partial profile (say, region only) still picks up
// credentials from the AWS environment variables.
func FromFile(path string) (Settings, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return Settings{}, &errdefs.ConfigError{
			Field:   "profile",
			Message: "cannot read " + path + ": " + err.Error(),
		}
	}

	return Resolve(
		v.GetString("region"),
		v.GetString("access_key_id"),
		v.GetString("secret_access_key"),
	), nil
}
