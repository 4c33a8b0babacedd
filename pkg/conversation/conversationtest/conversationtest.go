// Package conversationtest holds the ginkgo specs every conversation.Store
// driver must pass.
package conversationtest

import (
	"context"
	"fmt"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/agentchat/pkg/chat"
	"github.com/papercomputeco/agentchat/pkg/conversation"
	"github.com/papercomputeco/agentchat/pkg/formschema"
)

// Clock is a manually advanced clock for deterministic timestamps.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a clock starting at a fixed instant.
func NewClock() *Clock {
	return &Clock{now: time.UnixMilli(1_700_000_000_000)}
}

// Now returns the current instant and advances the clock by a second.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now
	c.now = c.now.Add(time.Second)
	return now
}

// Factory opens a fresh, empty store using the given options.
type Factory func(opts ...conversation.Option) conversation.Store

func message(id string, role chat.Role, content string) chat.Message {
	return chat.Message{ID: id, Role: role, Content: content, Timestamp: 1000}
}

// DescribeStore registers the shared store specs.
func DescribeStore(name string, open Factory) bool {
	return Describe(name+" store", func() {
		var (
			ctx   context.Context
			store conversation.Store
		)

		BeforeEach(func() {
			ctx = context.Background()
			store = open(conversation.WithClock(NewClock().Now))
			DeferCleanup(func() {
				Expect(store.Close()).To(Succeed())
			})
		})

		Describe("Create", func() {
			It("numbers unnamed conversations", func() {
				first, err := store.Create(ctx, "share-agent", "")
				Expect(err).NotTo(HaveOccurred())
				second, err := store.Create(ctx, "share-agent", "")
				Expect(err).NotTo(HaveOccurred())

				Expect(first.Name).To(Equal("Conversation 1"))
				Expect(second.Name).To(Equal("Conversation 2"))
				Expect(first.ID).NotTo(Equal(second.ID))
			})

			It("keeps an explicit name and the agent", func() {
				c, err := store.Create(ctx, "support", "Billing")
				Expect(err).NotTo(HaveOccurred())

				got, err := store.Get(ctx, c.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(got.Name).To(Equal("Billing"))
				Expect(got.Agent).To(Equal("support"))
				Expect(got.Messages).To(BeEmpty())
				Expect(got.CreatedAt.Equal(c.CreatedAt)).To(BeTrue())
			})
		})

		Describe("Get", func() {
			It("returns NotFoundError for an unknown id", func() {
				_, err := store.Get(ctx, "missing")
				Expect(err).To(MatchError(conversation.NotFoundError{ID: "missing"}))
			})
		})

		Describe("UpsertMessage", func() {
			var c *conversation.Conversation

			BeforeEach(func() {
				var err error
				c, err = store.Create(ctx, "share-agent", "")
				Expect(err).NotTo(HaveOccurred())
			})

			It("appends messages in order", func() {
				Expect(store.UpsertMessage(ctx, c.ID, message("u1", chat.RoleUser, "hi"))).To(Succeed())
				Expect(store.UpsertMessage(ctx, c.ID, message("a1", chat.RoleAssistant, "hello"))).To(Succeed())

				got, err := store.Get(ctx, c.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(got.Messages).To(HaveLen(2))
				Expect(got.Messages[0].ID).To(Equal("u1"))
				Expect(got.Messages[1].Content).To(Equal("hello"))
				Expect(got.MessageCount).To(Equal(2))
			})

			It("replaces a message with the same id in place", func() {
				Expect(store.UpsertMessage(ctx, c.ID, message("u1", chat.RoleUser, "hi"))).To(Succeed())
				Expect(store.UpsertMessage(ctx, c.ID, message("a1", chat.RoleAssistant, "hel"))).To(Succeed())
				Expect(store.UpsertMessage(ctx, c.ID, message("u2", chat.RoleUser, "again"))).To(Succeed())
				Expect(store.UpsertMessage(ctx, c.ID, message("a1", chat.RoleAssistant, "hello"))).To(Succeed())

				got, err := store.Get(ctx, c.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(got.Messages).To(HaveLen(3))
				Expect(got.Messages[1].ID).To(Equal("a1"))
				Expect(got.Messages[1].Content).To(Equal("hello"))
			})

			It("stores the form schema and title", func() {
				required := true
				msg := message("a1", chat.RoleAssistant, "fill in")
				msg.FormTitle = "Details"
				msg.FormSchema = formschema.Schema{
					{Name: "email", Label: "Email", Type: formschema.TypeInput, Required: &required},
					{Name: "plan", Label: "Plan", Type: formschema.TypeRadio, Values: []string{"a", "b"}},
				}
				Expect(store.UpsertMessage(ctx, c.ID, msg)).To(Succeed())

				got, err := store.Get(ctx, c.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(got.Messages[0].FormTitle).To(Equal("Details"))
				Expect(got.Messages[0].FormSchema).To(Equal(msg.FormSchema))
			})

			It("never stores a message as streaming", func() {
				msg := message("a1", chat.RoleAssistant, "partial")
				msg.Streaming = true
				Expect(store.UpsertMessage(ctx, c.ID, msg)).To(Succeed())

				got, err := store.Get(ctx, c.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(got.Messages[0].Streaming).To(BeFalse())
			})

			It("bumps the update time", func() {
				Expect(store.UpsertMessage(ctx, c.ID, message("u1", chat.RoleUser, "hi"))).To(Succeed())

				got, err := store.Get(ctx, c.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(got.UpdatedAt.After(c.UpdatedAt)).To(BeTrue())
			})

			It("rejects a message without an id", func() {
				Expect(store.UpsertMessage(ctx, c.ID, message("", chat.RoleUser, "hi"))).NotTo(Succeed())
			})

			It("returns NotFoundError for an unknown conversation", func() {
				err := store.UpsertMessage(ctx, "missing", message("u1", chat.RoleUser, "hi"))
				Expect(err).To(MatchError(conversation.NotFoundError{ID: "missing"}))
			})

			It("serializes concurrent writers to one conversation", func() {
				var wg sync.WaitGroup
				for i := range 20 {
					wg.Add(1)
					go func() {
						defer GinkgoRecover()
						defer wg.Done()
						id := fmt.Sprintf("m%02d", i)
						Expect(store.UpsertMessage(ctx, c.ID, message(id, chat.RoleUser, id))).To(Succeed())
					}()
				}
				wg.Wait()

				got, err := store.Get(ctx, c.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(got.Messages).To(HaveLen(20))
			})
		})

		Describe("DeleteMessage", func() {
			It("removes only the named message", func() {
				c, err := store.Create(ctx, "share-agent", "")
				Expect(err).NotTo(HaveOccurred())
				Expect(store.UpsertMessage(ctx, c.ID, message("u1", chat.RoleUser, "hi"))).To(Succeed())
				Expect(store.UpsertMessage(ctx, c.ID, message("a1", chat.RoleAssistant, "hello"))).To(Succeed())

				Expect(store.DeleteMessage(ctx, c.ID, "a1")).To(Succeed())
				Expect(store.DeleteMessage(ctx, c.ID, "a1")).To(MatchError(conversation.NotFoundError{ID: "a1"}))

				got, err := store.Get(ctx, c.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(got.Messages).To(HaveLen(1))
				Expect(got.Messages[0].ID).To(Equal("u1"))
			})
		})

		Describe("List", func() {
			It("orders conversations by last update, newest first", func() {
				a, err := store.Create(ctx, "share-agent", "a")
				Expect(err).NotTo(HaveOccurred())
				b, err := store.Create(ctx, "share-agent", "b")
				Expect(err).NotTo(HaveOccurred())
				Expect(store.UpsertMessage(ctx, a.ID, message("u1", chat.RoleUser, "hi"))).To(Succeed())

				list, err := store.List(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(list).To(HaveLen(2))
				Expect(list[0].ID).To(Equal(a.ID))
				Expect(list[0].MessageCount).To(Equal(1))
				Expect(list[0].Messages).To(BeNil())
				Expect(list[1].ID).To(Equal(b.ID))
			})

			It("returns nothing for an empty store", func() {
				list, err := store.List(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(list).To(BeEmpty())
			})
		})

		Describe("Rename", func() {
			It("renames a conversation", func() {
				c, err := store.Create(ctx, "share-agent", "")
				Expect(err).NotTo(HaveOccurred())
				Expect(store.Rename(ctx, c.ID, "Renamed")).To(Succeed())

				got, err := store.Get(ctx, c.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(got.Name).To(Equal("Renamed"))
			})

			It("returns NotFoundError for an unknown id", func() {
				Expect(store.Rename(ctx, "missing", "x")).To(MatchError(conversation.NotFoundError{ID: "missing"}))
			})
		})

		Describe("Delete", func() {
			It("removes the conversation and its messages", func() {
				c, err := store.Create(ctx, "share-agent", "")
				Expect(err).NotTo(HaveOccurred())
				Expect(store.UpsertMessage(ctx, c.ID, message("u1", chat.RoleUser, "hi"))).To(Succeed())

				Expect(store.Delete(ctx, c.ID)).To(Succeed())
				_, err = store.Get(ctx, c.ID)
				Expect(err).To(MatchError(conversation.NotFoundError{ID: c.ID}))
				Expect(store.Delete(ctx, c.ID)).To(MatchError(conversation.NotFoundError{ID: c.ID}))
			})
		})
	})
}
