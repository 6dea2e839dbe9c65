package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	configFile   string
	verbose      bool
	logLevel     string
	logFormat    string
	outputFormat string
	outputFile   string
	metrics      string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "echo-guard",
	Short: "Echo versus real speech discrimination for two-way audio",
	Long: `Decide whether a microphone capture is an acoustic echo of audio that
was just played through the speaker, or genuine near-end speech.

Key features:
- Spectral, mel-band and pseudo-MFCC feature extraction
- Correlation, spectral similarity and bounded lag alignment
- Rule-based classifier fused with similarity metrics under safety clamps
- Real speech protection that always wins over echo suppression
- Batch runs over manifests of recorded pairs with summary statistics`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initializeConfig(cmd)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"config file (default is $HOME/.config/echo-guard/echo-guard.yaml)")

	// Output and logging flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"verbose output (debug logging)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "console",
		"log encoding (console, json)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table",
		"output format (table, json, yaml, csv)")
	rootCmd.PersistentFlags().StringVar(&outputFile, "output-file", "",
		"write results to a file instead of stdout")
	rootCmd.PersistentFlags().StringVar(&metrics, "metrics", "none",
		"metrics exporter (none, stdout, prometheus)")

	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))
	viper.BindPFlag("output_format", rootCmd.PersistentFlags().Lookup("output"))
	viper.BindPFlag("metrics.exporter", rootCmd.PersistentFlags().Lookup("metrics"))
}

// initConfig reads in config file and ENV variables if set
func initConfig() {
	if configFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(configFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			os.Exit(1)
		}

		viper.AddConfigPath(filepath.Join(home, ".config", "echo-guard"))
		viper.AddConfigPath("/etc/echo-guard")
		viper.AddConfigPath("./configs")
		viper.SetConfigName("echo-guard")
		viper.SetConfigType("yaml")
	}

	// Environment variable support
	viper.SetEnvPrefix("ECHO_GUARD")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	// Defaults are applied when the configuration is decoded so they never
	// shadow values from the file
	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("verbose") {
			fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
		}
	} else if configFile != "" {
		fmt.Fprintf(os.Stderr, "Error reading config file %s: %v\n", configFile, err)
		os.Exit(1)
	}
}

// initializeConfig initializes configuration after flags are parsed
func initializeConfig(cmd *cobra.Command) error {
	return bindFlags(cmd, viper.GetViper())
}

// bindFlags binds each command-local flag to its viper key and environment variable.
// Global flags are bound once in init under their config names.
func bindFlags(cmd *cobra.Command, v *viper.Viper) error {
	var lastErr error

	cmd.LocalNonPersistentFlags().VisitAll(func(f *pflag.Flag) {
		key := strings.ReplaceAll(f.Name, "-", "_")
		envVarSuffix := strings.ToUpper(key)

		if err := v.BindEnv(key, "ECHO_GUARD_"+envVarSuffix); err != nil {
			lastErr = err
		}

		// Apply the environment or config value to the flag when the flag is not set
		if !f.Changed && v.IsSet(key) {
			val := v.Get(key)
			if err := cmd.Flags().Set(f.Name, fmt.Sprintf("%v", val)); err != nil {
				lastErr = err
			}
		}
	})

	return lastErr
}
