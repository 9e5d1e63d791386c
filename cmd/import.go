package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bassamadnan/mailagent/inbox"
)

var importCmd = &cobra.Command{
	Use:   "import <file.eml|dir>...",
	Short: "Add .eml messages to the inbox",
	Long: `Parse RFC 822 message files and append them to the inbox as unprocessed
emails. Directories are scanned for *.eml files. Messages already in the
inbox (same id) are skipped, as are messages matching the [import] ignore
rules of the settings file.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store := inbox.NewStore(cfg.InboxPath(), logger)
		parsed, err := inbox.ImportEML(args, logger)
		if err != nil {
			return fmt.Errorf("importing messages: %w", err)
		}

		var kept []inbox.Email
		for _, e := range parsed {
			if ignore, rule := cfg.Import.Ignore(e.Sender, e.Subject, e.Body); ignore {
				logger.Info().Str("email_id", e.ID).Str("rule", rule).Msg("import filtered message")
				continue
			}
			kept = append(kept, e)
		}

		added, err := store.Add(kept...)
		if err != nil {
			return err
		}
		if added > 0 {
			if err := store.Save(); err != nil {
				return fmt.Errorf("saving inbox: %w", err)
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d of %d messages (%d filtered, %d already present).\n",
			added, len(parsed), len(parsed)-len(kept), len(kept)-added)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
}
