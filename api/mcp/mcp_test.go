package mcp_test

import (
	"context"
	"encoding/json"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/agentchat/api/mcp"
	"github.com/papercomputeco/agentchat/pkg/chat"
	"github.com/papercomputeco/agentchat/pkg/conversation"
	"github.com/papercomputeco/agentchat/pkg/conversation/conversationtest"
	"github.com/papercomputeco/agentchat/pkg/conversation/inmemory"
	"github.com/papercomputeco/agentchat/pkg/formschema"
	"github.com/papercomputeco/agentchat/pkg/logger"
)

var _ = Describe("MCP Server", func() {
	var (
		ctx     context.Context
		store   *inmemory.Store
		server  *mcp.Server
		session *mcpsdk.ClientSession
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = inmemory.NewStore(conversation.WithClock(conversationtest.NewClock().Now))

		var err error
		server, err = mcp.NewServer(mcp.Config{
			Store:  store,
			Logger: logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())

		clientTransport, serverTransport := mcpsdk.NewInMemoryTransports()
		serverSession, err := server.MCPServer().Connect(ctx, serverTransport, nil)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() { _ = serverSession.Close() })

		client := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "test-client", Version: "v0.0.0"}, nil)
		session, err = client.Connect(ctx, clientTransport, nil)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() { _ = session.Close() })
	})

	call := func(name string, args map[string]any) *mcpsdk.CallToolResult {
		res, err := session.CallTool(ctx, &mcpsdk.CallToolParams{Name: name, Arguments: args})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Content).NotTo(BeEmpty())
		return res
	}

	text := func(res *mcpsdk.CallToolResult) string {
		tc, ok := res.Content[0].(*mcpsdk.TextContent)
		Expect(ok).To(BeTrue())
		return tc.Text
	}

	Describe("NewServer", func() {
		It("returns an error when the store is nil", func() {
			_, err := mcp.NewServer(mcp.Config{Logger: logger.Nop()})
			Expect(err).To(MatchError(ContainSubstring("conversation store is required")))
		})

		It("returns an error when logger is nil", func() {
			_, err := mcp.NewServer(mcp.Config{Store: store})
			Expect(err).To(MatchError(ContainSubstring("logger is required")))
		})

		It("returns an HTTP handler", func() {
			Expect(server.Handler()).NotTo(BeNil())
		})
	})

	It("advertises both tools", func() {
		res, err := session.ListTools(ctx, nil)
		Expect(err).NotTo(HaveOccurred())

		names := make([]string, 0, len(res.Tools))
		for _, t := range res.Tools {
			names = append(names, t.Name)
		}
		Expect(names).To(ConsistOf("list_conversations", "get_conversation"))
	})

	Describe("list_conversations", func() {
		BeforeEach(func() {
			_, err := store.Create(ctx, "share-agent", "")
			Expect(err).NotTo(HaveOccurred())
			_, err = store.Create(ctx, "share-agent", "Release planning")
			Expect(err).NotTo(HaveOccurred())
		})

		It("lists newest first", func() {
			var out mcp.ListOutput
			Expect(json.Unmarshal([]byte(text(call("list_conversations", map[string]any{}))), &out)).To(Succeed())

			Expect(out.Count).To(Equal(2))
			Expect(out.Conversations[0].Name).To(Equal("Release planning"))
			Expect(out.Conversations[1].Name).To(Equal("Conversation 1"))
		})

		It("honors the limit", func() {
			var out mcp.ListOutput
			Expect(json.Unmarshal([]byte(text(call("list_conversations", map[string]any{"limit": 1}))), &out)).To(Succeed())

			Expect(out.Count).To(Equal(1))
			Expect(out.Conversations).To(HaveLen(1))
		})
	})

	Describe("get_conversation", func() {
		It("returns the messages in order", func() {
			conv, err := store.Create(ctx, "share-agent", "")
			Expect(err).NotTo(HaveOccurred())

			Expect(store.UpsertMessage(ctx, conv.ID, chat.Message{ID: "u1", Role: chat.RoleUser, Content: "hi", Timestamp: 1})).To(Succeed())
			Expect(store.UpsertMessage(ctx, conv.ID, chat.Message{
				ID:         "a1",
				Role:       chat.RoleAssistant,
				Content:    "Pick one",
				Timestamp:  2,
				FormTitle:  "Choice",
				FormSchema: formschema.Schema{{Name: "x", Label: "X", Type: formschema.TypeInput}},
			})).To(Succeed())

			var out mcp.GetOutput
			Expect(json.Unmarshal([]byte(text(call("get_conversation", map[string]any{"id": conv.ID}))), &out)).To(Succeed())

			Expect(out.Conversation.ID).To(Equal(conv.ID))
			Expect(out.Conversation.MessageCount).To(Equal(2))
			Expect(out.Messages).To(HaveLen(2))
			Expect(out.Messages[0].Text).To(Equal("hi"))
			Expect(out.Messages[1].HasForm).To(BeTrue())
			Expect(out.Messages[1].FormTitle).To(Equal("Choice"))
		})

		It("reports unknown conversations as tool errors", func() {
			res := call("get_conversation", map[string]any{"id": "missing"})
			Expect(res.IsError).To(BeTrue())
			Expect(text(res)).To(ContainSubstring("conversation not found: missing"))
		})
	})
})
