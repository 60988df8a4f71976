package cmds

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/go-go-golems/faqchat/pkg/logging"
	"github.com/go-go-golems/faqchat/pkg/settings"
)

// newViper loads .env and binds the command's flags, environment and config file.
func newViper(cmd *cobra.Command) (*viper.Viper, error) {
	if err := settings.LoadDotEnv(""); err != nil {
		return nil, err
	}
	return settings.NewViper(cmd.Flags())
}

// InitLogging configures the global logger from --log-level and --log-format.
func InitLogging(cmd *cobra.Command) error {
	v, err := newViper(cmd)
	if err != nil {
		return err
	}
	err = logging.Init(logging.Settings{
		Level:  v.GetString(settings.FlagLogLevel),
		Format: v.GetString(settings.FlagLogFormat),
	})
	return errors.Wrap(err, "init logging")
}

func loadSettings(cmd *cobra.Command) (settings.Settings, error) {
	v, err := newViper(cmd)
	if err != nil {
		return settings.Settings{}, err
	}
	return settings.FromViper(v)
}
