package prompt_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/parley/pkg/llm"
	"github.com/papercomputeco/parley/pkg/prompt"
)

var _ = Describe("Build", func() {
	It("renders only the trailing marker for no turns", func() {
		Expect(prompt.Build(nil)).To(Equal("Assistant:"))
	})

	It("renders each turn on its own labelled line", func() {
		turns := []llm.Turn{
			llm.UserTurn("hi"),
			llm.AssistantTurn("hello"),
			llm.UserTurn("how are you?"),
		}

		Expect(prompt.Build(turns)).To(Equal(
			"User: hi\nAssistant: hello\nUser: how are you?\nAssistant:",
		))
	})

	It("handles non-alternating turns", func() {
		turns := []llm.Turn{llm.UserTurn("a"), llm.UserTurn("b")}

		Expect(prompt.Build(turns)).To(Equal("User: a\nUser: b\nAssistant:"))
	})

	It("is deterministic", func() {
		turns := []llm.Turn{llm.UserTurn("same"), llm.AssistantTurn("input")}

		Expect(prompt.Build(turns)).To(Equal(prompt.Build(turns)))
	})
})

var _ = Describe("ExtractAnswer", func() {
	It("strips the prompt prefix and truncates before an invented user turn", func() {
		answer := prompt.ExtractAnswer("Hello Assistant:, how are you?User: what now", "Hello Assistant:")

		Expect(answer).To(Equal(", how are you?"))
	})

	It("falls back to the raw output when the prefix is missing", func() {
		answer := prompt.ExtractAnswer("no prefix match text", "different prefix")

		Expect(answer).To(Equal("no prefix match text"))
	})

	It("trims whitespace in the fallback path", func() {
		Expect(prompt.ExtractAnswer("  padded\n", "nope")).To(Equal("padded"))
	})

	It("returns the whole remainder when no marker is present", func() {
		p := prompt.Build([]llm.Turn{llm.UserTurn("hi")})

		Expect(prompt.ExtractAnswer(p+" there, friend", p)).To(Equal("there, friend"))
	})

	It("matches the marker case-sensitively", func() {
		p := "Assistant:"

		Expect(prompt.ExtractAnswer(p+" tell the user: hi", p)).To(Equal("tell the user: hi"))
	})

	It("cuts at the first marker only", func() {
		p := "Assistant:"

		Expect(prompt.ExtractAnswer(p+" one\nUser: two\nUser: three", p)).To(Equal("one"))
	})

	It("returns an empty answer when the generator adds nothing", func() {
		p := "User: hi\nAssistant:"

		Expect(prompt.ExtractAnswer(p, p)).To(BeEmpty())
	})
})
