package openai_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/parley/pkg/llm"
	"github.com/papercomputeco/parley/pkg/openai"
)

var _ = Describe("Client", func() {
	var (
		ctx      context.Context
		server   *httptest.Server
		client   *openai.Client
		handler  http.HandlerFunc
		received map[string]any
		authHdr  string
	)

	BeforeEach(func() {
		ctx = context.Background()
		received = nil
		authHdr = ""
		handler = func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"id":"c1","model":"gpt-3.5-turbo-0125","choices":[{"message":{"role":"assistant","content":"  Hi there!\n"}}],"usage":{"prompt_tokens":9,"completion_tokens":3,"total_tokens":12}}`))
		}

		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer GinkgoRecover()
			Expect(r.URL.Path).To(Equal("/v1/chat/completions"))
			authHdr = r.Header.Get("Authorization")
			Expect(json.NewDecoder(r.Body).Decode(&received)).To(Succeed())
			handler(w, r)
		}))

		cfg := openai.DefaultConfig()
		cfg.BaseURL = server.URL + "/"
		client = openai.New(cfg, zap.NewNop())
	})

	AfterEach(func() {
		server.Close()
	})

	request := func(credential string) llm.ChatRequest {
		return llm.ChatRequest{
			Messages: []llm.Message{
				{Role: llm.RoleUser, Content: "hi"},
				{Role: llm.RoleAssistant, Content: "hello"},
				{Role: llm.RoleUser, Content: "how are you?"},
			},
			Options:    llm.Options{Temperature: 0.7},
			Credential: credential,
		}
	}

	It("sends the whole conversation and returns the trimmed answer", func() {
		resp, err := client.Chat(ctx, request("sk-test"))
		Expect(err).NotTo(HaveOccurred())

		Expect(resp.Content).To(Equal("Hi there!"))
		Expect(resp.Model).To(Equal("gpt-3.5-turbo-0125"))
		Expect(resp.PromptTokens).To(Equal(9))
		Expect(resp.CompletionTokens).To(Equal(3))

		Expect(authHdr).To(Equal("Bearer sk-test"))
		Expect(received["model"]).To(Equal("gpt-3.5-turbo"))
		Expect(received["max_tokens"]).To(BeNumerically("==", 600))
		Expect(received["n"]).To(BeNumerically("==", 1))
		Expect(received["temperature"]).To(BeNumerically("~", 0.7))
		Expect(received["messages"]).To(HaveLen(3))
	})

	It("sends a zero temperature explicitly", func() {
		req := request("sk-test")
		req.Options.Temperature = 0

		_, err := client.Chat(ctx, req)
		Expect(err).NotTo(HaveOccurred())
		Expect(received).To(HaveKeyWithValue("temperature", BeNumerically("==", 0)))
	})

	It("fails with a missing-credential error without calling the API", func() {
		_, err := client.Chat(ctx, request(""))

		Expect(llm.IsMissingCredential(err)).To(BeTrue())
		Expect(llm.Diagnostic(err)).To(Equal("No OpenAI API key provided."))
		Expect(received).To(BeNil())
	})

	It("reports API errors as request failures", func() {
		handler = func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`))
		}

		_, err := client.Chat(ctx, request("sk-bad"))

		Expect(llm.IsRequestFailed(err)).To(BeTrue())
		Expect(llm.Diagnostic(err)).To(HavePrefix("OpenAI request failed: "))
		Expect(llm.Diagnostic(err)).To(ContainSubstring("Incorrect API key provided"))

		var statusErr *openai.StatusError
		Expect(errors.As(err, &statusErr)).To(BeTrue())
		Expect(statusErr.StatusCode).To(Equal(http.StatusUnauthorized))
		Expect(statusErr.Type).To(Equal("invalid_request_error"))
	})

	It("does not retry failed requests", func() {
		calls := 0
		handler = func(w http.ResponseWriter, r *http.Request) {
			calls++
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
		}

		_, err := client.Chat(ctx, request("sk-test"))
		Expect(llm.IsRequestFailed(err)).To(BeTrue())
		Expect(calls).To(Equal(1))
	})

	It("reports non-JSON error bodies with the HTTP status", func() {
		handler = func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte("upstream down"))
		}

		_, err := client.Chat(ctx, request("sk-test"))

		Expect(llm.IsRequestFailed(err)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("502"))
	})

	It("reports an empty choice list as a request failure", func() {
		handler = func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"id":"c2","model":"m","choices":[]}`))
		}

		_, err := client.Chat(ctx, request("sk-test"))
		Expect(llm.IsRequestFailed(err)).To(BeTrue())
	})

	It("reports unreachable servers as request failures", func() {
		cfg := openai.DefaultConfig()
		cfg.BaseURL = "http://127.0.0.1:1"
		unreachable := openai.New(cfg, zap.NewNop())

		_, err := unreachable.Chat(ctx, request("sk-test"))
		Expect(llm.IsRequestFailed(err)).To(BeTrue())
	})
})
