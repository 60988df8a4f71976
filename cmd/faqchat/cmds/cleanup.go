package cmds

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/go-go-golems/faqchat/pkg/blobstore"
	"github.com/go-go-golems/faqchat/pkg/checkpoint"
	"github.com/go-go-golems/faqchat/pkg/settings"
)

func NewCleanupCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete chat histories older than --max-age-days",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			blobs, err := blobstore.Open(ctx, s.Store)
			if err != nil {
				return errors.Wrap(err, "open checkpoint storage")
			}
			defer func() { _ = blobs.Close() }()

			deleted, err := checkpoint.NewStore(blobs).DeleteExpired(ctx, s.MaxAgeDays)
			log.Info().Int("deleted", deleted).Int("max_age_days", s.MaxAgeDays).Msg("cleanup finished")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "deleted %d chat histories older than %d days\n", deleted, s.MaxAgeDays)
			return err
		},
	}
	settings.AddStoreFlags(cmd.Flags())
	return cmd
}
