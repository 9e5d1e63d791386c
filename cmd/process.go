package cmd

import (
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/bassamadnan/mailagent/inbox"
	"github.com/bassamadnan/mailagent/tui"
)

var processCmd = &cobra.Command{
	Use:   "process [email-id...]",
	Short: "Categorize emails and extract their action items",
	Long: `Run the processing pipeline over the inbox.

With no arguments every unprocessed email is processed in inbox order. With
email ids only those emails are processed, whether or not they were processed
before. Model failures do not stop processing; affected emails are still
marked processed. When repeated failures open the circuit breaker the run
stops and the remaining emails stay unprocessed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openServices(ctx)
		if err != nil {
			return err
		}
		if !s.gateway.Configured() {
			fmt.Fprintln(cmd.ErrOrStderr(), "warning: LLM not configured; categories will hold the error text")
		}

		var batch []inbox.Email
		if len(args) == 0 {
			batch = s.proc.Pending()
		} else {
			for _, id := range args {
				e, ok := s.proc.Email(id)
				if !ok {
					return fmt.Errorf("email %q not found", id)
				}
				batch = append(batch, e)
			}
		}
		if len(batch) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "Nothing to process.")
			return nil
		}

		if plain, _ := cmd.Flags().GetBool("plain"); plain {
			n := 0
			for _, e := range batch {
				if ctx.Err() != nil {
					break
				}
				if !s.proc.ModelAvailable() {
					fmt.Fprintln(cmd.ErrOrStderr(), "model unavailable, stopping; remaining emails stay unprocessed")
					break
				}
				if s.proc.ProcessEmail(ctx, e.ID) {
					n++
					updated, _ := s.proc.Email(e.ID)
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%d action items\t%s\n",
						e.ID, orUncategorized(updated.CategoryName()), len(updated.ActionItems), e.Subject)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Processed %d emails.\n", n)
			return nil
		}

		final, err := tea.NewProgram(tui.NewProgressModel(ctx, s.proc, batch), tea.WithContext(ctx)).Run()
		if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			return fmt.Errorf("running progress view: %w", err)
		}
		if pm, ok := final.(tui.ProgressModel); ok {
			logger.Info().Int("processed", pm.Processed()).Bool("interrupted", pm.Interrupted()).
				Bool("model_unavailable", pm.Unavailable()).Msg("process command finished")
		}
		return nil
	},
}

func orUncategorized(category string) string {
	if category == "" {
		return "Uncategorized"
	}
	return category
}

func init() {
	processCmd.Flags().Bool("plain", false, "print one line per email instead of the progress view")
	rootCmd.AddCommand(processCmd)
}
