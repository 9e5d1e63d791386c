package cmd

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/bassamadnan/mailagent/inbox"
	"github.com/bassamadnan/mailagent/pipeline"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List inbox emails",
	Long: `List inbox emails, optionally filtered by category.

Categories: ` + strings.Join(pipeline.Categories, ", "),
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openServices(cmd.Context())
		if err != nil {
			return err
		}
		category, _ := cmd.Flags().GetString("category")
		printEmails(cmd.OutOrStdout(), s.proc.FilterByCategory(category))
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show <email-id>",
	Short: "Show one email with its category and action items",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openServices(cmd.Context())
		if err != nil {
			return err
		}
		e, ok := s.proc.Email(args[0])
		if !ok {
			return fmt.Errorf("email %q not found", args[0])
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "From:      %s\n", e.Sender)
		fmt.Fprintf(w, "Date:      %s\n", inbox.FormatTimestamp(e.Timestamp))
		fmt.Fprintf(w, "Subject:   %s\n", e.Subject)
		fmt.Fprintf(w, "Category:  %s\n", orUncategorized(e.CategoryName()))
		fmt.Fprintf(w, "Processed: %v\n\n%s\n", e.Processed, e.Body)
		if len(e.ActionItems) > 0 {
			fmt.Fprintln(w, "\nAction items:")
			for _, item := range e.ActionItems {
				deadline := "None"
				if item.Deadline != nil {
					deadline = *item.Deadline
				}
				fmt.Fprintf(w, "  - %s (deadline: %s)\n", item.Task, deadline)
			}
		}
		return nil
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Find emails whose sender, subject or body contains the query",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openServices(cmd.Context())
		if err != nil {
			return err
		}
		results := s.proc.Search(strings.Join(args, " "))
		if len(results) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No matching emails.")
			return nil
		}
		printEmails(cmd.OutOrStdout(), results)
		return nil
	},
}

var summarizeCmd = &cobra.Command{
	Use:   "summarize <email-id>",
	Short: "Summarize one email with the summarization template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openServices(cmd.Context())
		if err != nil {
			return err
		}
		summary, err := s.proc.Summarize(cmd.Context(), args[0])
		if errors.Is(err, pipeline.ErrTemplateMissing) {
			return fmt.Errorf("%w (add a %q entry to %s)", err, "summarization", cfg.PromptsPath())
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), summary)
		return nil
	},
}

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a question about the inbox",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openServices(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), s.proc.Ask(cmd.Context(), strings.Join(args, " ")))
		return nil
	},
}

// printEmails renders emails as a table; unprocessed ids carry a "*".
func printEmails(out io.Writer, emails []inbox.Email) {
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"ID", "Date", "From", "Subject", "Category", "Tasks"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	for _, e := range emails {
		id := e.ID
		if !e.Processed {
			id = "*" + id
		}
		table.Append([]string{id, inbox.FormatTimestamp(e.Timestamp), e.Sender, e.Subject,
			orUncategorized(e.CategoryName()), strconv.Itoa(len(e.ActionItems))})
	}
	table.Render()
}

func init() {
	listCmd.Flags().String("category", pipeline.CategoryAll, "only list emails in this category")
	rootCmd.AddCommand(listCmd, showCmd, searchCmd, summarizeCmd, askCmd)
}
