package chat_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/parley/pkg/backend"
	"github.com/papercomputeco/parley/pkg/chat"
	"github.com/papercomputeco/parley/pkg/conversation"
	"github.com/papercomputeco/parley/pkg/llm"
)

var _ = Describe("Dispatcher", func() {
	var (
		ctx    context.Context
		remote *fakeRemote
		local  *fakeLocal
		conv   *conversation.Conversation
	)

	BeforeEach(func() {
		ctx = context.Background()
		remote = &fakeRemote{reply: "Paris."}
		local = &fakeLocal{continuation: " there, friend\nUser: more"}
		conv = conversation.New()
		conv.Append(llm.UserTurn("hi"))
	})

	settings := func(mode backend.Mode, credential string) chat.Settings {
		s := chat.DefaultSettings()
		s.Mode = mode
		s.Credential = credential
		return s
	}

	It("sends the full conversation to the remote adapter", func() {
		d := chat.NewDispatcher(remote, local, 6, zap.NewNop())
		conv.Append(llm.AssistantTurn("hello"))
		conv.Append(llm.UserTurn("capital of France?"))

		result := d.Dispatch(ctx, conv, settings(backend.ModeAuto, "sk-test"))
		Expect(result.Err).NotTo(HaveOccurred())
		Expect(result.Backend).To(Equal(backend.Remote))
		Expect(result.Text).To(Equal("Paris."))

		reqs := remote.Requests()
		Expect(reqs).To(HaveLen(1))
		Expect(reqs[0].Messages).To(HaveLen(3))
		Expect(reqs[0].Credential).To(Equal("sk-test"))
		Expect(reqs[0].Options.Temperature).To(Equal(0.7))
	})

	It("extracts the local answer and stops at the next user line", func() {
		d := chat.NewDispatcher(remote, local, 6, zap.NewNop())

		result := d.Dispatch(ctx, conv, settings(backend.ModeAuto, ""))
		Expect(result.Err).NotTo(HaveOccurred())
		Expect(result.Backend).To(Equal(backend.Local))
		Expect(result.Text).To(Equal("there, friend"))
		Expect(local.LastPrompt()).To(Equal("User: hi\nAssistant:"))
	})

	It("windows the local prompt", func() {
		d := chat.NewDispatcher(nil, local, 2, zap.NewNop())
		conv.Append(llm.AssistantTurn("hello"))
		conv.Append(llm.UserTurn("again"))

		d.Dispatch(ctx, conv, settings(backend.ModeLocal, "sk-ignored"))
		Expect(local.LastPrompt()).To(Equal("Assistant: hello\nUser: again\nAssistant:"))
	})

	It("reports a missing remote adapter", func() {
		d := chat.NewDispatcher(nil, local, 6, zap.NewNop())

		result := d.Dispatch(ctx, conv, settings(backend.ModeRemote, "sk-test"))
		Expect(llm.IsMissingDependency(result.Err)).To(BeTrue())
		Expect(result.Text).To(Equal(llm.DiagRemoteMissing))
	})

	It("reports a missing local adapter", func() {
		d := chat.NewDispatcher(remote, nil, 6, zap.NewNop())

		result := d.Dispatch(ctx, conv, settings(backend.ModeAuto, ""))
		Expect(result.Backend).To(Equal(backend.Local))
		Expect(result.Text).To(Equal(llm.DiagLocalMissing))
	})

	It("renders remote request failures", func() {
		remote.err = llm.NewAdapterError(backend.Remote, llm.KindRequestFailed, errors.New("timeout"))
		d := chat.NewDispatcher(remote, local, 6, zap.NewNop())

		result := d.Dispatch(ctx, conv, settings(backend.ModeRemote, "sk-test"))
		Expect(result.Text).To(Equal("OpenAI request failed: timeout"))
	})

	It("renders local generation failures", func() {
		local.err = llm.NewAdapterError(backend.Local, llm.KindRequestFailed, errors.New("model not found"))
		d := chat.NewDispatcher(remote, local, 6, zap.NewNop())

		result := d.Dispatch(ctx, conv, settings(backend.ModeLocal, ""))
		Expect(result.Text).To(Equal("Local model generation failed: model not found"))
	})

	It("recovers adapter panics as request failures", func() {
		remote.panicVal = "boom"
		d := chat.NewDispatcher(remote, local, 6, zap.NewNop())

		result := d.Dispatch(ctx, conv, settings(backend.ModeRemote, "sk-test"))
		Expect(llm.IsRequestFailed(result.Err)).To(BeTrue())
		Expect(result.Text).To(HavePrefix("OpenAI request failed: "))
		Expect(result.Text).To(ContainSubstring("boom"))
	})
})
