package main

import (
	"fmt"
	"os"

	agentchatcmder "github.com/papercomputeco/agentchat/cmd/agentchat"
	"github.com/papercomputeco/agentchat/pkg/cliui"
)

func main() {
	cmd := agentchatcmder.NewAgentChatCmd()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "  %s %v\n", cliui.FailMark, err)
		os.Exit(1)
	}
}
