package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/1broseidon/sxcom/internal/config"
)

var printOpts struct {
	defaults bool
	format   string
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the configuration",
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := loadConfig()
		if err != nil {
			return err
		}
		if res.File == "" {
			fmt.Fprintln(cmd.OutOrStdout(), "config: ok (no file, using defaults)")
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), "config: ok")
		return nil
	},
}

var configPrintCmd = &cobra.Command{
	Use:   "print",
	Short: "Print configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.DefaultConfig()
		if !printOpts.defaults {
			res, err := loadConfig()
			if err != nil {
				return err
			}
			cfg = res.Config
			if res.File != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "# source: %s\n", res.File)
			}
		}
		data, err := config.Marshal(cfg, printOpts.format)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

func init() {
	configPrintCmd.Flags().BoolVar(&printOpts.defaults, "defaults", false, "Print built-in defaults (no files)")
	configPrintCmd.Flags().StringVar(&printOpts.format, "format", "yaml", "Output format: yaml or toml")

	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configPrintCmd)
}
