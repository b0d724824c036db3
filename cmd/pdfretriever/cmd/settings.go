package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdfretriever/pdfretriever/internal/session"
)

var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Manage the model provider API key",
}

var keySetCmd = &cobra.Command{
	Use:   "set [key]",
	Short: "Store the API key (prompted when omitted)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var k string
		if len(args) == 1 {
			k = args[0]
		} else {
			var err error
			if k, err = readSecret(cmd, bufio.NewReader(cmd.InOrStdin()), "API key: "); err != nil {
				return err
			}
		}
		k = strings.TrimSpace(k)
		if k == "" {
			return fmt.Errorf("API key must not be empty")
		}
		if err := pdfApp.SetAPIKey(k); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s API key saved (%s)\n", okStyle.Render("✓"), session.MaskKey(k))
		return nil
	},
}

var keyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the stored API key, masked",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintln(cmd.OutOrStdout(), session.MaskKey(pdfApp.Session.APIKey()))
		return nil
	},
}

var keyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the stored API key",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := pdfApp.SetAPIKey(""); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "API key removed")
		return nil
	},
}

var modelCmd = &cobra.Command{
	Use:   "model [name]",
	Short: "List the models or select one",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if len(args) == 1 {
			if err := pdfApp.SetModel(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(out, "%s Using %s\n", okStyle.Render("✓"), titleStyle.Render(args[0]))
			return nil
		}

		current := pdfApp.Model()
		for _, m := range pdfApp.Config.Models {
			if m == current {
				fmt.Fprintf(out, "* %s\n", titleStyle.Render(m))
			} else {
				fmt.Fprintf(out, "  %s\n", m)
			}
		}
		return nil
	},
}

func init() {
	keyCmd.AddCommand(keySetCmd, keyShowCmd, keyClearCmd)
	rootCmd.AddCommand(keyCmd, modelCmd)
}
