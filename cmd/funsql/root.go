package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	catalogPath string
	dialectName string
	depthName   string
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:   "funsql",
	Short: "Compile FunSQL node trees to SQL",
	Long: `funsql is the command-line front end for the FunSQL compiler.

It reads a query tree described as nested [tag, ...args] expressions in
YAML, drives it through the annotate/resolve/link/translate/serialize
pipeline against a catalog, and prints the resulting SQL text.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logrus.SetOutput(os.Stderr)
		if verbose {
			logrus.SetLevel(logrus.TraceLevel)
		} else {
			logrus.SetLevel(logrus.WarnLevel)
		}
		viper.SetEnvPrefix("FUNSQL")
		viper.AutomaticEnv()
		if v := viper.GetString("catalog"); v != "" && catalogPath == "" {
			catalogPath = v
		}
		return nil
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&catalogPath, "catalog", "", "path to a YAML catalog file (dialect + tables)")
	rootCmd.PersistentFlags().StringVar(&dialectName, "dialect", "", "override the catalog's dialect (postgres|mysql|sqlite)")
	rootCmd.PersistentFlags().StringVar(&depthName, "depth", "serialize", "pipeline depth to stop at (annotate|resolve|link|translate|serialize)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "trace each compiler pass to stderr")

	rootCmd.AddCommand(renderCmd)
}

// Execute runs the root command, exiting the process on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "funsql:", err)
		os.Exit(1)
	}
}
