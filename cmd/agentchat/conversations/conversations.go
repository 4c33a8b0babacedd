// Package conversationscmder provides the conversations command for
// browsing and managing stored conversations.
package conversationscmder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/agentchat/cmd/agentchat/wiring"
	"github.com/papercomputeco/agentchat/pkg/conversation"
	"github.com/papercomputeco/agentchat/pkg/dotdir"
)

const conversationsLongDesc string = `Browse and manage stored conversations.

The current conversation is the one "agentchat chat" resumes. It is
recorded in current.json in the .agentchat/ directory.

Conversation ids may be abbreviated to any unique prefix.

Examples:
  agentchat conversations list
  agentchat conversations show 3f2a
  agentchat conversations new "Trip planning"
  agentchat conversations switch 3f2a
  agentchat conversations rename 3f2a "Trip to Lisbon"
  agentchat conversations delete 3f2a`

const conversationsShortDesc string = "Browse and manage stored conversations"

func NewConversationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "conversations",
		Aliases: []string{"conv"},
		Short:   conversationsShortDesc,
		Long:    conversationsLongDesc,
	}

	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newShowCmd())
	cmd.AddCommand(newNewCmd())
	cmd.AddCommand(newSwitchCmd())
	cmd.AddCommand(newRenameCmd())
	cmd.AddCommand(newDeleteCmd())

	return cmd
}

// storeCmd registers the storage flags on cmd and runs fn with an open
// store.
func storeCmd(cmd *cobra.Command, fn func(ctx context.Context, cmd *cobra.Command, store conversation.Store, args []string) error) *cobra.Command {
	wiring.AddStoreFlags(cmd)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return wiring.RunWithStore(cmd, func(ctx context.Context, store conversation.Store) error {
			return fn(ctx, cmd, store, args)
		})
	}
	return cmd
}

// resolveID maps an id or unique id prefix to a stored conversation id.
func resolveID(ctx context.Context, store conversation.Store, arg string) (string, error) {
	if _, err := store.Get(ctx, arg); err == nil {
		return arg, nil
	} else if !errors.As(err, new(conversation.NotFoundError)) {
		return "", err
	}

	list, err := store.List(ctx)
	if err != nil {
		return "", err
	}

	var matches []string
	for _, c := range list {
		if strings.HasPrefix(c.ID, arg) {
			matches = append(matches, c.ID)
		}
	}

	switch len(matches) {
	case 0:
		return "", conversation.NotFoundError{ID: arg}
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("conversation id %q is ambiguous (%d matches)", arg, len(matches))
	}
}

// currentID returns the current conversation id, or "" when none is set.
func currentID(configDir string) string {
	state, err := dotdir.NewManager().LoadCurrent(configDir)
	if err != nil || state == nil {
		return ""
	}
	return state.ConversationID
}

func makeCurrent(c *conversation.Conversation, configDir string) error {
	return dotdir.NewManager().SaveCurrent(&dotdir.CurrentState{
		ConversationID: c.ID,
		Agent:          c.Agent,
		SwitchedAt:     time.Now().UTC(),
	}, configDir)
}
