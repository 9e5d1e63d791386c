package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bassamadnan/mailagent/prompts"
)

var promptsCmd = &cobra.Command{
	Use:   "prompts",
	Short: "Inspect and edit the prompt templates",
}

var promptsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List prompt templates",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ps := prompts.NewStore(cfg.PromptsPath(), logger)
		keys := ps.Keys()
		if len(keys) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "No prompts found in %s.\n", cfg.PromptsPath())
			return nil
		}
		for _, key := range keys {
			tpl, _ := ps.Get(key)
			fmt.Fprintf(cmd.OutOrStdout(), "%-20s %s\n", key, tpl.Name)
			if tpl.Description != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "%-20s %s\n", "", tpl.Description)
			}
		}
		return nil
	},
}

var promptsShowCmd = &cobra.Command{
	Use:   "show <key>",
	Short: "Print one template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ps := prompts.NewStore(cfg.PromptsPath(), logger)
		tpl, ok := ps.Get(args[0])
		if !ok {
			return fmt.Errorf("prompt %q not found (have: %s)", args[0], strings.Join(ps.Keys(), ", "))
		}
		fmt.Fprintln(cmd.OutOrStdout(), tpl.Template)
		return nil
	},
}

var promptsSetCmd = &cobra.Command{
	Use:   "set <key> [template]",
	Short: "Replace a template's text",
	Long: `Replace the text of an existing template and save the prompts file.

The new text is taken from the second argument, from --file, or from stdin
when neither is given. Only existing keys can be updated.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := templateText(cmd, args)
		if err != nil {
			return err
		}
		ps := prompts.NewStore(cfg.PromptsPath(), logger)
		if _, ok := ps.Get(args[0]); !ok {
			return fmt.Errorf("prompt %q not found (have: %s)", args[0], strings.Join(ps.Keys(), ", "))
		}
		if !ps.Update(args[0], text) {
			return fmt.Errorf("saving prompt %q to %s failed", args[0], cfg.PromptsPath())
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Prompt %q updated.\n", args[0])
		return nil
	},
}

func templateText(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 2 {
		return args[1], nil
	}
	if path, _ := cmd.Flags().GetString("file"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("reading template: %w", err)
		}
		return string(data), nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("reading template from stdin: %w", err)
	}
	return string(data), nil
}

func init() {
	promptsSetCmd.Flags().String("file", "", "read the template from this file")
	promptsCmd.AddCommand(promptsListCmd, promptsShowCmd, promptsSetCmd)
	rootCmd.AddCommand(promptsCmd)
}
