package cmd

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// rootCmd is the base command for the CLI
var rootCmd = newRootCmd()

// newRootCmd builds the command tree. Every flag can also be set from the
// environment as CLOUDSIM_<FLAG>, dashes replaced by underscores.
func newRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("CLOUDSIM")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:          "cloudsim",
		Short:        "Discrete-event simulator for cloud datacenters",
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return setupLogging(v.GetString("log"))
		},
	}
	cmd.PersistentFlags().String("log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")
	_ = v.BindPFlag("log", cmd.PersistentFlags().Lookup("log"))

	cmd.AddCommand(
		newRunCmd(v),
		newValidateCmd(v),
		newVersionCmd(),
	)
	return cmd
}

func setupLogging(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return errors.Errorf("invalid log level %q", level)
	}
	logrus.SetLevel(lvl)
	return nil
}

// bindFlags makes the flags of the command being run visible through v.
// Binding happens per invocation so run and validate can share flag names.
func bindFlags(v *viper.Viper) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		return v.BindPFlags(cmd.Flags())
	}
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
