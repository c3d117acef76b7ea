package cli

import (
	"fmt"

	"github.com/estebmaister/supportbot/internal/config"
	"github.com/spf13/cobra"
)

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Write a default configuration file",
	Long: `Write a default configuration file for supportbot.
Edit the file afterwards to set the LLM API key and the MCP server URL,
or override them with SUPPORTBOT_LLM_API_KEY and SUPPORTBOT_MCP_SERVER_URL.`,
	RunE: runConfigure,
}

func init() {
	rootCmd.AddCommand(configureCmd)
}

func runConfigure(cmd *cobra.Command, args []string) error {
	loader := config.NewLoader(cfgFile)

	cfg := config.DefaultConfig()
	if err := loader.Save(cfg); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	configPath := loader.GetConfigPath()
	fmt.Fprintf(cmd.OutOrStdout(), "Configuration saved to: %s\n", configPath)
	fmt.Fprintln(cmd.OutOrStdout(), "\nSet llm.api_key and mcp.server_url, then start with: supportbot serve")

	return nil
}
