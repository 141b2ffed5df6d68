package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/promptgenie/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize promptgenie configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to choose the model provider, embedding model and vector index, and writes a .promptgenie.yml file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard(cfgFile)
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
