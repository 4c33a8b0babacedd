// Package agentchatcmder
package agentchatcmder

import (
	"fmt"

	"github.com/spf13/cobra"

	agentscmder "github.com/papercomputeco/agentchat/cmd/agentchat/agents"
	chatcmder "github.com/papercomputeco/agentchat/cmd/agentchat/chat"
	configcmder "github.com/papercomputeco/agentchat/cmd/agentchat/config"
	conversationscmder "github.com/papercomputeco/agentchat/cmd/agentchat/conversations"
	decodecmder "github.com/papercomputeco/agentchat/cmd/agentchat/decode"
	initcmder "github.com/papercomputeco/agentchat/cmd/agentchat/init"
	servecmder "github.com/papercomputeco/agentchat/cmd/agentchat/serve"
	versioncmder "github.com/papercomputeco/agentchat/cmd/agentchat/version"
	"github.com/papercomputeco/agentchat/pkg/utils"
)

const agentChatLongDesc string = `agentchat is a terminal client for streaming chat agents.

Responses stream in as they are generated, in either the sentinel-framed
format or the legacy inline form tag format, and forms the agent attaches
are filled in right in the terminal.

Get started:
  agentchat init              Create a local .agentchat/ directory
  agentchat chat              Chat with the configured agent
  agentchat conversations     Browse and manage stored conversations
  agentchat agents            Browse the configured agent catalog
  agentchat serve             Serve stored conversations over HTTP`

const agentChatShortDesc string = "agentchat - streaming chat agent client"

func NewAgentChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "agentchat",
		Short:         agentChatShortDesc,
		Long:          agentChatLongDesc,
		Version:       fmt.Sprintf("%s (%s, built %s)", utils.Version, utils.Sha, utils.Buildtime),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .agentchat/ directory")
	cmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON")
	cmd.PersistentFlags().Bool("log-source", false, "Include source file:line in logs")
	cmd.PersistentFlags().String("log-file", "", "Also append JSON logs to this file")

	// Add subcommands
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(conversationscmder.NewConversationsCmd())
	cmd.AddCommand(agentscmder.NewAgentsCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(decodecmder.NewDecodeCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
