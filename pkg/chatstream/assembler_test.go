package chatstream_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/agentchat/pkg/chat"
	"github.com/papercomputeco/agentchat/pkg/chatstream"
	"github.com/papercomputeco/agentchat/pkg/formschema"
)

var fixedNow = time.UnixMilli(1_700_000_000_000)

func newAssembler() *chatstream.Assembler {
	return chatstream.NewAssembler(
		chatstream.WithClock(func() time.Time { return fixedNow }),
		chatstream.WithIDGenerator(func() string { return "generated" }),
	)
}

var xSchema = formschema.Schema{{Name: "x", Label: "X", Type: formschema.TypeInput}}

var _ = Describe("Assembler", func() {
	It("keeps the first id and timestamp", func() {
		a := newAssembler()
		a.Apply(chatstream.Fragment{ContentDelta: "a"})
		a.Apply(chatstream.Fragment{ID: "first", Timestamp: 10})
		snap := a.Apply(chatstream.Fragment{ID: "second", Timestamp: 20})

		Expect(snap.ID).To(Equal("first"))
		Expect(snap.Timestamp).To(Equal(int64(10)))
	})

	It("only ever grows the content", func() {
		a := newAssembler()
		prev := 0
		for _, d := range []string{"He", "", "llo", " ", "world"} {
			snap := a.Apply(chatstream.Fragment{ContentDelta: d})
			Expect(len(snap.Content)).To(BeNumerically(">=", prev))
			prev = len(snap.Content)
		}
		Expect(a.Snapshot().Content).To(Equal("Hello world"))
	})

	It("defaults the role to assistant and lets fragments set it", func() {
		a := newAssembler()
		Expect(a.Snapshot().Role).To(Equal(chat.RoleAssistant))
		Expect(a.Apply(chatstream.Fragment{Role: chat.RoleUser}).Role).To(Equal(chat.RoleUser))
	})

	It("marks snapshots as streaming and the final message as not", func() {
		a := newAssembler()
		Expect(a.Apply(chatstream.Fragment{ContentDelta: "x"}).Streaming).To(BeTrue())

		final, _ := a.Finalize()
		Expect(final.Streaming).To(BeFalse())
	})

	It("fills in a missing id and timestamp and trims the content", func() {
		a := newAssembler()
		a.Apply(chatstream.Fragment{ContentDelta: "  \nanswer\n\n"})

		final, warnings := a.Finalize()
		Expect(warnings).To(BeEmpty())
		Expect(final.ID).To(Equal("generated"))
		Expect(final.Timestamp).To(Equal(fixedNow.UnixMilli()))
		Expect(final.Content).To(Equal("answer"))
	})

	It("replaces the schema with the latest complete one", func() {
		a := newAssembler()
		other := formschema.Schema{{Name: "y", Label: "Y", Type: formschema.TypeSwitch}}

		a.Apply(chatstream.Fragment{Schema: &chatstream.SchemaUpdate{Raw: "x", Parsed: xSchema}})
		snap := a.Apply(chatstream.Fragment{Schema: &chatstream.SchemaUpdate{Raw: "y", Parsed: other}})
		Expect(snap.FormSchema).To(Equal(other))

		final, _ := a.Finalize()
		Expect(final.FormSchema).To(Equal(other))
	})

	It("records a schema that failed to parse and drops it", func() {
		a := newAssembler()
		a.Apply(chatstream.Fragment{Schema: &chatstream.SchemaUpdate{Raw: "x", Parsed: xSchema}})
		parseErr := &chatstream.SchemaParseError{Raw: "[{", Err: formschema.ErrEmpty}
		snap := a.Apply(chatstream.Fragment{Schema: &chatstream.SchemaUpdate{Raw: "[{", Err: parseErr}})
		Expect(snap.FormSchema).To(BeNil())

		final, warnings := a.Finalize()
		Expect(final.FormSchema).To(BeNil())
		Expect(warnings).To(ConsistOf(parseErr))
	})

	It("forgets a parse error once a later schema replaces it", func() {
		a := newAssembler()
		parseErr := &chatstream.SchemaParseError{Raw: "[{", Err: formschema.ErrEmpty}
		a.Apply(chatstream.Fragment{Schema: &chatstream.SchemaUpdate{Raw: "[{", Err: parseErr}})
		Expect(a.Warnings()).To(ConsistOf(parseErr))

		snap := a.Apply(chatstream.Fragment{Schema: &chatstream.SchemaUpdate{Raw: "x", Parsed: xSchema}})
		Expect(snap.FormSchema).To(Equal(xSchema))
		Expect(a.Warnings()).To(BeEmpty())

		final, warnings := a.Finalize()
		Expect(final.FormSchema).To(Equal(xSchema))
		Expect(warnings).To(BeEmpty())
	})

	It("parses accumulated schema text when finalized", func() {
		a := newAssembler()
		a.Apply(chatstream.Fragment{SchemaDelta: `[{"name":"x",`})
		snap := a.Apply(chatstream.Fragment{SchemaDelta: `"label":"X","type":"input"}]` + "\n"})
		Expect(snap.FormSchema).To(BeNil())

		final, warnings := a.Finalize()
		Expect(warnings).To(BeEmpty())
		Expect(final.FormSchema).To(Equal(xSchema))
	})

	It("warns when accumulated schema text is not valid", func() {
		a := newAssembler()
		a.Apply(chatstream.Fragment{ContentDelta: "kept", SchemaDelta: "[{nope"})

		final, warnings := a.Finalize()
		Expect(final.Content).To(Equal("kept"))
		Expect(final.FormSchema).To(BeNil())
		Expect(warnings).To(HaveLen(1))

		var schemaErr *chatstream.SchemaParseError
		Expect(warnings[0]).To(BeAssignableToTypeOf(schemaErr))
	})

	It("hands out snapshots that do not alias its state", func() {
		a := newAssembler()
		snap := a.Apply(chatstream.Fragment{Schema: &chatstream.SchemaUpdate{Raw: "x", Parsed: xSchema.Clone()}})
		snap.FormSchema[0].Label = "changed"

		Expect(a.Snapshot().FormSchema[0].Label).To(Equal("X"))
	})
})
