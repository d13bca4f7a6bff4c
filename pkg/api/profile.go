// synthctl/pkg/api/profile.go

package api

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"mkowalik/synthctl/pkg/logging"
)

// Profile holds API credentials. Profiles live in
// ~/.synthctl/<name>.yaml with `email` and `api_token` keys; the
// SYNTHCTL_EMAIL and SYNTHCTL_API_TOKEN environment variables override
// whatever the file says, so CI never needs a profile file.
type Profile struct {
	Email    string
	APIToken string
}

// LoadProfile reads the named profile.
func LoadProfile(name string) (*Profile, error) {
	v := viper.New()
	v.SetConfigName(name)
	v.SetConfigType("yaml")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".synthctl"))
	}
	v.AddConfigPath(".")
	v.SetEnvPrefix("synthctl")
	_ = v.BindEnv("email")
	_ = v.BindEnv("api_token")

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, logging.NewError(logging.ErrorTypeConfig,
				"failed to read auth profile", err,
				map[string]interface{}{"profile": name})
		}
		logging.Logger.Debug().Str("profile", name).Msg("No profile file found, relying on environment")
	}

	p := &Profile{
		Email:    v.GetString("email"),
		APIToken: v.GetString("api_token"),
	}
	if p.Email == "" || p.APIToken == "" {
		return nil, logging.NewError(logging.ErrorTypeConfig,
			"auth profile is missing email or api_token", nil,
			map[string]interface{}{"profile": name})
	}
	return p, nil
}
