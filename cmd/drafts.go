package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bassamadnan/mailagent/drafts"
	"github.com/bassamadnan/mailagent/inbox"
	"github.com/bassamadnan/mailagent/pipeline"
)

var draftsCmd = &cobra.Command{
	Use:   "drafts",
	Short: "Generate and manage email drafts",
}

var draftsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved drafts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ds := drafts.NewStore(cfg.DraftsPath(), logger)
		all := ds.All()
		if len(all) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No drafts yet.")
			return nil
		}
		verbose, _ := cmd.Flags().GetBool("verbose")
		for _, d := range all {
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %s\n", d.ID, inbox.FormatTimestamp(d.CreatedAt), d.Subject)
			if verbose {
				fmt.Fprintf(cmd.OutOrStdout(), "\n%s\n\n", d.Body)
			}
		}
		return nil
	},
}

var draftsNewCmd = &cobra.Command{
	Use:   "new <subject> <instructions>",
	Short: "Generate a new email from a subject and instructions",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openServices(cmd.Context())
		if err != nil {
			return err
		}
		d, err := s.proc.NewDraft(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		printDraft(cmd, d)
		return nil
	},
}

var draftsReplyCmd = &cobra.Command{
	Use:   "reply <email-id>",
	Short: "Generate a reply draft for an inbox email",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		instructions, _ := cmd.Flags().GetString("instructions")
		tone, _ := cmd.Flags().GetString("tone")
		if !validTone(tone) {
			return fmt.Errorf("tone %q is not one of %s", tone, strings.Join(pipeline.Tones, ", "))
		}
		s, err := openServices(cmd.Context())
		if err != nil {
			return err
		}
		d, err := s.proc.DraftReply(cmd.Context(), args[0], instructions, tone)
		if errors.Is(err, pipeline.ErrFormatting) {
			return fmt.Errorf("the auto_reply template in %s is invalid: %w", cfg.PromptsPath(), err)
		}
		if err != nil {
			return err
		}
		printDraft(cmd, d)
		return nil
	},
}

var draftsEditCmd = &cobra.Command{
	Use:   "edit <draft-id>",
	Short: "Change a draft's subject or body",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ds := drafts.NewStore(cfg.DraftsPath(), logger)
		d, ok := ds.Get(args[0])
		if !ok {
			return fmt.Errorf("draft %q: %w", args[0], drafts.ErrNotFound)
		}
		subject, body := d.Subject, d.Body
		if cmd.Flags().Changed("subject") {
			subject, _ = cmd.Flags().GetString("subject")
		}
		if cmd.Flags().Changed("body") {
			body, _ = cmd.Flags().GetString("body")
		}
		if err := ds.Update(d.ID, subject, body); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Draft %s saved.\n", d.ID)
		return nil
	},
}

var draftsDeleteCmd = &cobra.Command{
	Use:   "delete <draft-id>",
	Short: "Delete a draft",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ds := drafts.NewStore(cfg.DraftsPath(), logger)
		if _, ok := ds.Get(args[0]); !ok {
			return fmt.Errorf("draft %q: %w", args[0], drafts.ErrNotFound)
		}
		if err := ds.Delete(args[0]); err != nil {
			return fmt.Errorf("draft %q: %w", args[0], err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Draft %s deleted.\n", args[0])
		return nil
	},
}

func validTone(tone string) bool {
	for _, t := range pipeline.Tones {
		if t == tone {
			return true
		}
	}
	return false
}

func printDraft(cmd *cobra.Command, d drafts.Draft) {
	fmt.Fprintf(cmd.OutOrStdout(), "Draft %s created.\n\nSubject: %s\n\n%s\n", d.ID, d.Subject, d.Body)
}

func init() {
	draftsListCmd.Flags().BoolP("verbose", "v", false, "print draft bodies")
	draftsReplyCmd.Flags().String("instructions", pipeline.DefaultReplyInstructions, "what the reply should say")
	draftsReplyCmd.Flags().String("tone", pipeline.Tones[0], "reply tone: "+strings.Join(pipeline.Tones, ", "))
	draftsEditCmd.Flags().String("subject", "", "new subject")
	draftsEditCmd.Flags().String("body", "", "new body")
	draftsCmd.AddCommand(draftsListCmd, draftsNewCmd, draftsReplyCmd, draftsEditCmd, draftsDeleteCmd)
	rootCmd.AddCommand(draftsCmd)
}
