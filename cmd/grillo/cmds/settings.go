package cmds

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/go-go-golems/grillo/pkg/settings"
)

// loadSettings resolves client settings from --config when given, otherwise
// from GRILLO_* environment variables via viper.
func loadSettings(cmd *cobra.Command) (*settings.Settings, error) {
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	if configPath != "" {
		return settings.LoadFromFile(configPath)
	}

	v := viper.New()
	v.SetEnvPrefix("GRILLO")
	for _, key := range []string{"base_url", "socket_url", "api_key", "workflow_id", "version"} {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}

	return settings.LoadFromViper(v), nil
}
