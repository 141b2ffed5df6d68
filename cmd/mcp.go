package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	mcpserver "github.com/ziadkadry99/promptgenie/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for AI agent integration",
	Long:  `Starts a Model Context Protocol (MCP) server on stdio, exposing the analyze_query and generate_final_prompt tools to AI agents.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		gen, cleanup, err := newGenerator(cfg)
		if err != nil {
			return err
		}
		defer cleanup()

		mcpserver.Version = Version

		fmt.Fprintf(os.Stderr, "promptgenie MCP server started on stdio (provider=%s, model=%s)\n", cfg.LLM.Provider, cfg.LLM.Model)

		srv := mcpserver.NewServer(gen, logger)
		return srv.Serve()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
