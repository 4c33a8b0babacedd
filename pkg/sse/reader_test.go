package sse_test

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/agentchat/pkg/sse"
)

func feedAll(p *sse.Parser, chunks ...string) []sse.Event {
	var out []sse.Event
	for _, c := range chunks {
		out = append(out, p.Feed(c)...)
	}
	if ev, ok := p.Flush(); ok {
		out = append(out, ev)
	}
	return out
}

var _ = Describe("Parser", func() {
	var p *sse.Parser

	BeforeEach(func() {
		p = sse.NewParser()
	})

	Context("with complete events", func() {
		It("parses a single event", func() {
			events := p.Feed("data: hello world\n\n")
			Expect(events).To(Equal([]sse.Event{{Data: "hello world"}}))
		})

		It("parses event type and id", func() {
			events := p.Feed("event: delta\nid: 42\ndata: {\"a\":1}\n\n")
			Expect(events).To(HaveLen(1))
			Expect(events[0].Type).To(Equal("delta"))
			Expect(events[0].ID).To(Equal("42"))
			Expect(events[0].Data).To(Equal(`{"a":1}`))
		})

		It("joins multiple data lines with newline", func() {
			events := p.Feed("data: one\ndata: two\n\n")
			Expect(events[0].Data).To(Equal("one\ntwo"))
		})

		It("accepts CRLF line endings", func() {
			events := p.Feed("data: crlf\r\n\r\n")
			Expect(events).To(Equal([]sse.Event{{Data: "crlf"}}))
		})
	})

	Context("across pushes", func() {
		It("holds a split line until its newline arrives", func() {
			Expect(p.Feed("data: hel")).To(BeEmpty())
			Expect(p.Pending()).To(Equal("data: hel"))
			Expect(p.Feed("lo\n")).To(BeEmpty())
			Expect(p.Feed("\n")).To(Equal([]sse.Event{{Data: "hello"}}))
		})

		It("yields the same events for every split point", func() {
			input := "data: {\"choices\":[{\"delta\":{\"content\":\"Hi\"}}]}\n\ndata: [DONE]\n\n"
			whole := feedAll(sse.NewParser(), input)
			Expect(whole).To(HaveLen(2))

			for i := 1; i < len(input); i++ {
				Expect(feedAll(sse.NewParser(), input[:i], input[i:])).To(Equal(whole), "split at %d", i)
			}
		})
	})

	Context("edge cases", func() {
		It("ignores comments and keep-alive blank lines", func() {
			events := p.Feed(": ping\n\n\ndata: x\n\n")
			Expect(events).To(Equal([]sse.Event{{Data: "x"}}))
		})

		It("ignores retry and unknown fields", func() {
			events := p.Feed("retry: 3000\nfoo: bar\ndata: x\n\n")
			Expect(events).To(Equal([]sse.Event{{Data: "x"}}))
		})

		It("accepts data with no space after the colon", func() {
			Expect(p.Feed("data:tight\n\n")[0].Data).To(Equal("tight"))
		})

		It("flushes an unterminated event at end of stream", func() {
			Expect(p.Feed("data: tail")).To(BeEmpty())
			ev, ok := p.Flush()
			Expect(ok).To(BeTrue())
			Expect(ev.Data).To(Equal("tail"))

			_, ok = p.Flush()
			Expect(ok).To(BeFalse())
		})

		It("reports nothing to flush for blank input", func() {
			p.Feed(strings.Repeat("\n", 3))
			_, ok := p.Flush()
			Expect(ok).To(BeFalse())
		})
	})
})
