package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/agentchat/pkg/chat"
	"github.com/papercomputeco/agentchat/pkg/conversation"
	"github.com/papercomputeco/agentchat/pkg/conversation/conversationtest"
	"github.com/papercomputeco/agentchat/pkg/conversation/inmemory"
	"github.com/papercomputeco/agentchat/pkg/logger"
	"github.com/papercomputeco/agentchat/pkg/metrics"
)

var _ = Describe("Server", func() {
	var (
		ctx    context.Context
		store  *inmemory.Store
		server *Server
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = inmemory.NewStore(conversation.WithClock(conversationtest.NewClock().Now))

		var err error
		server, err = NewServer(Config{ListenAddr: ":0", Gatherer: metrics.NewRegistry()}, store, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
	})

	do := func(method, path, body string) (*http.Response, []byte) {
		var reader io.Reader
		if body != "" {
			reader = strings.NewReader(body)
		}
		req := httptest.NewRequest(method, path, reader)
		if body != "" {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := server.app.Test(req, -1)
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		return resp, data
	}

	seed := func(name string, messages ...chat.Message) *conversation.Conversation {
		conv, err := store.Create(ctx, "share-agent", name)
		Expect(err).NotTo(HaveOccurred())
		for _, m := range messages {
			Expect(store.UpsertMessage(ctx, conv.ID, m)).To(Succeed())
		}
		return conv
	}

	Describe("NewServer", func() {
		It("requires a store", func() {
			_, err := NewServer(Config{}, nil, logger.Nop())
			Expect(err).To(MatchError(ContainSubstring("conversation store is required")))
		})

		It("requires a logger", func() {
			_, err := NewServer(Config{}, store, nil)
			Expect(err).To(MatchError(ContainSubstring("logger is required")))
		})
	})

	It("answers ping", func() {
		resp, body := do(http.MethodGet, "/ping", "")
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(string(body)).To(Equal(`"pong"`))
	})

	Describe("GET /conversations", func() {
		It("returns an empty list", func() {
			resp, body := do(http.MethodGet, "/conversations", "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var list ListResponse
			Expect(json.Unmarshal(body, &list)).To(Succeed())
			Expect(list.Count).To(BeZero())
		})

		It("lists conversations without messages, newest first", func() {
			seed("", chat.Message{ID: "u1", Role: chat.RoleUser, Content: "hi"})
			seed("Second")

			_, body := do(http.MethodGet, "/conversations", "")

			var list ListResponse
			Expect(json.Unmarshal(body, &list)).To(Succeed())
			Expect(list.Count).To(Equal(2))
			Expect(list.Conversations[0].Name).To(Equal("Second"))
			Expect(list.Conversations[1].Name).To(Equal("Conversation 1"))
			Expect(list.Conversations[1].MessageCount).To(Equal(1))
			Expect(list.Conversations[1].Messages).To(BeEmpty())
		})
	})

	Describe("GET /conversations/:id", func() {
		It("returns the conversation with its messages", func() {
			conv := seed("", chat.Message{ID: "u1", Role: chat.RoleUser, Content: "hi"})

			resp, body := do(http.MethodGet, "/conversations/"+conv.ID, "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var got conversation.Conversation
			Expect(json.Unmarshal(body, &got)).To(Succeed())
			Expect(got.ID).To(Equal(conv.ID))
			Expect(got.Messages).To(HaveLen(1))
			Expect(got.Messages[0].Content).To(Equal("hi"))
		})

		It("returns 404 for an unknown id", func() {
			resp, body := do(http.MethodGet, "/conversations/missing", "")
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
			Expect(body).To(MatchJSON(`{"error":"conversation not found: missing"}`))
		})
	})

	Describe("PATCH /conversations/:id", func() {
		It("renames the conversation", func() {
			conv := seed("")

			resp, body := do(http.MethodPatch, "/conversations/"+conv.ID, `{"name":"  Incident review "}`)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var got conversation.Conversation
			Expect(json.Unmarshal(body, &got)).To(Succeed())
			Expect(got.Name).To(Equal("Incident review"))
		})

		It("rejects a blank name", func() {
			conv := seed("")

			resp, _ := do(http.MethodPatch, "/conversations/"+conv.ID, `{"name":"   "}`)
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("rejects a malformed body", func() {
			conv := seed("")

			resp, _ := do(http.MethodPatch, "/conversations/"+conv.ID, `{"name":`)
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("returns 404 for an unknown id", func() {
			resp, _ := do(http.MethodPatch, "/conversations/missing", `{"name":"x"}`)
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})
	})

	Describe("DELETE /conversations/:id", func() {
		It("deletes the conversation", func() {
			conv := seed("")

			resp, _ := do(http.MethodDelete, "/conversations/"+conv.ID, "")
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))

			_, err := store.Get(ctx, conv.ID)
			Expect(err).To(MatchError(conversation.NotFoundError{ID: conv.ID}))
		})

		It("returns 404 for an unknown id", func() {
			resp, _ := do(http.MethodDelete, "/conversations/missing", "")
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})
	})

	Describe("DELETE /conversations/:id/messages/:messageID", func() {
		It("removes one message", func() {
			conv := seed("",
				chat.Message{ID: "u1", Role: chat.RoleUser, Content: "hi"},
				chat.Message{ID: "a1", Role: chat.RoleAssistant, Content: "hello"},
			)

			resp, _ := do(http.MethodDelete, "/conversations/"+conv.ID+"/messages/a1", "")
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))

			got, err := store.Get(ctx, conv.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Messages).To(HaveLen(1))
			Expect(got.Messages[0].ID).To(Equal("u1"))
		})

		It("returns 404 for an unknown message", func() {
			conv := seed("")

			resp, _ := do(http.MethodDelete, "/conversations/"+conv.ID+"/messages/nope", "")
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})
	})

	It("serves prometheus metrics", func() {
		resp, body := do(http.MethodGet, "/metrics", "")
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(string(body)).To(ContainSubstring("agentchat_sessions_active"))
	})

	It("routes /mcp to the MCP handler", func() {
		resp, body := do(http.MethodPost, "/mcp", `{"jsonrpc":"2.0","id":1,"method":"ping"}`)
		Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		Expect(string(body)).To(ContainSubstring("Accept must contain"))
	})
})
