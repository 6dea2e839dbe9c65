package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/RyanBlaney/echo-guard/internal/app"
)

var (
	configInit     string
	configManifest string
	configValidate string
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show, generate or validate configuration",
	Long: `Display the effective configuration after defaults, config file,
environment variables and flags are merged, and report whether it is valid.

Examples:
  # Show the effective configuration
  echo-guard config

  # Use a specific config file
  echo-guard --config /path/to/echo-guard.yaml config

  # Write a default config file and a manifest template
  echo-guard config --init ~/.config/echo-guard/echo-guard.yaml --manifest pairs.yaml

  # Validate a config file without loading it
  echo-guard config --validate echo-guard.yaml`,
	Args: cobra.NoArgs,
	RunE: runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)

	configCmd.Flags().StringVar(&configInit, "init", "",
		"write the default configuration to this file")
	configCmd.Flags().StringVar(&configManifest, "manifest", "",
		"write a batch manifest template to this file")
	configCmd.Flags().StringVar(&configValidate, "validate", "",
		"validate this config file and exit")
}

func runConfig(cmd *cobra.Command, args []string) error {
	if configInit != "" || configManifest != "" {
		return generateExamples()
	}

	if configValidate != "" {
		if _, err := app.ValidateConfigFile(configValidate); err != nil {
			printStatus(false, fmt.Sprintf("%s is invalid: %v", configValidate, err))
			return err
		}
		printStatus(true, fmt.Sprintf("%s is valid", configValidate))
		return nil
	}

	echoGuard, err := app.NewEchoGuardApp(&app.Context{OutputFile: outputFile})
	if err != nil {
		printStatus(false, err.Error())
		return err
	}
	defer echoGuard.Close()

	if err := echoGuard.RunConfig(); err != nil {
		return err
	}

	if viper.GetString("output_format") == "table" && outputFile == "" {
		source := viper.ConfigFileUsed()
		if source == "" {
			source = "(defaults only)"
		}
		printStatus(true, "configuration is valid, config file: "+source)
	}

	return nil
}

func generateExamples() error {
	if configInit != "" {
		if err := app.GenerateExampleConfig(configInit); err != nil {
			return err
		}
		printStatus(true, "Example configuration written to: "+configInit)
	}

	if configManifest != "" {
		if err := app.GenerateExampleManifest(configManifest); err != nil {
			return err
		}
		printStatus(true, "Example manifest written to: "+configManifest)
	}

	return nil
}

func printStatus(ok bool, message string) {
	color := app.ColorGreen
	if !ok {
		color = app.ColorRed
	}

	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, color+strings.Repeat("-", 60))
	fmt.Fprintln(os.Stderr, message)
	fmt.Fprintln(os.Stderr, strings.Repeat("-", 60)+app.ColorReset)
}
