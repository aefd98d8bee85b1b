package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"

	"github.com/ollama/ollama/api"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/parley/pkg/merkle"
)

var _ = Describe("parley", func() {
	var (
		ctx        context.Context
		tmpDir     string
		configPath string
		dbPath     string
		ollamaSrv  *httptest.Server
		openaiSrv  *httptest.Server
		openaiAuth string
	)

	BeforeEach(func() {
		ctx = context.Background()
		tmpDir = GinkgoT().TempDir()
		dbPath = filepath.Join(tmpDir, "parley.db")

		for _, key := range []string{"HOME", "OPENAI_API_KEY", "PARLEY_MODE", "OLLAMA_HOST", "NO_COLOR", "CLICOLOR_FORCE"} {
			old, had := os.LookupEnv(key)
			DeferCleanup(func() {
				if had {
					os.Setenv(key, old)
				} else {
					os.Unsetenv(key)
				}
			})
			os.Unsetenv(key)
		}
		os.Setenv("HOME", tmpDir)

		ollamaSrv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer GinkgoRecover()
			var req api.GenerateRequest
			Expect(json.NewDecoder(r.Body).Decode(&req)).To(Succeed())
			json.NewEncoder(w).Encode(api.GenerateResponse{
				Model:    req.Model,
				Response: " there, friend\nUser: and you?",
				Done:     true,
			})
		}))
		DeferCleanup(ollamaSrv.Close)

		openaiAuth = ""
		openaiSrv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			openaiAuth = r.Header.Get("Authorization")
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"model":"gpt-3.5-turbo","choices":[{"message":{"role":"assistant","content":"  Paris.  "}}]}`)
		}))
		DeferCleanup(openaiSrv.Close)

		configPath = filepath.Join(tmpDir, "config.toml")
		writeConfig(configPath, fmt.Sprintf(`
[openai]
base_url = %q

[local]
url = %q
model = "test-model"

[storage]
sqlite = %q
`, openaiSrv.URL, ollamaSrv.URL, dbPath))
	})

	run := func(stdin string, args ...string) (string, error) {
		cmd := newRootCmd()
		var out, errOut bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetErr(&errOut)
		cmd.SetIn(strings.NewReader(stdin))
		cmd.SetArgs(append([]string{"--config", configPath}, args...))
		err := cmd.ExecuteContext(ctx)
		return out.String(), err
	}

	Describe("ask", func() {
		It("answers from the local generator without a key", func() {
			out, err := run("", "ask", "hi")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal("there, friend\n"))
		})

		It("answers from the remote service with a key", func() {
			out, err := run("", "ask", "--api-key", "sk-test", "capital of France?")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal("Paris.\n"))
			Expect(openaiAuth).To(Equal("Bearer sk-test"))
		})

		It("reads the key from the environment", func() {
			os.Setenv("OPENAI_API_KEY", "sk-env")

			out, err := run("", "ask", "capital of France?")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal("Paris.\n"))
			Expect(openaiAuth).To(Equal("Bearer sk-env"))
		})

		It("prints the missing key diagnostic when remote is forced", func() {
			out, err := run("", "ask", "--mode", "remote", "hello")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal("No OpenAI API key provided.\n"))
		})

		It("prints the local unavailable diagnostic when the local backend is disabled", func() {
			writeConfig(configPath, "[local]\nenabled = false\n")

			out, err := run("", "ask", "hello")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal("Local model not available. Configure a local generator, or provide an OpenAI key.\n"))
		})

		It("rejects an unknown mode", func() {
			_, err := run("", "ask", "--mode", "cloud", "hello")
			Expect(err).To(HaveOccurred())
		})

		It("rejects an empty question", func() {
			_, err := run("", "ask", "")
			Expect(err).To(HaveOccurred())
		})

		It("sends a whitespace-only question like any other", func() {
			out, err := run("", "ask", "   ")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal("there, friend\n"))
		})
	})

	Describe("chat", func() {
		It("runs a line-based session", func() {
			out, err := run("hi\n\n/clear\nagain\nexit\n", "chat", "--mode", "local")
			Expect(err).NotTo(HaveOccurred())
			Expect(strings.Count(out, "Bot: there, friend")).To(Equal(2))
			Expect(out).To(ContainSubstring("History cleared."))
		})

		It("colors the prompts only when forced on a non-terminal", func() {
			out, err := run("hi\n", "chat", "--mode", "local")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).NotTo(ContainSubstring("\x1b["))

			os.Setenv("CLICOLOR_FORCE", "1")
			out, err = run("hi\n", "chat", "--mode", "local")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("\x1b["))
			Expect(out).To(ContainSubstring("there, friend"))

			os.Setenv("NO_COLOR", "1")
			out, err = run("hi\n", "chat", "--mode", "local")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).NotTo(ContainSubstring("\x1b["))
		})

		It("records the transcript", func() {
			_, err := run("hi\n", "chat", "--mode", "local")
			Expect(err).NotTo(HaveOccurred())

			storer, err := merkle.NewSQLiteStorer(dbPath)
			Expect(err).NotTo(HaveOccurred())
			defer storer.Close()

			nodes, err := storer.List(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(nodes).To(HaveLen(2))
			Expect(nodes[1].Content.Content).To(Equal("there, friend"))
			Expect(nodes[1].Content.Backend).To(Equal("local"))
		})
	})

	Describe("history", func() {
		It("reports an empty database", func() {
			out, err := run("", "history")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("No transcripts recorded."))
		})

		It("lists and prints transcripts", func() {
			_, err := run("hi\n", "chat", "--mode", "local")
			Expect(err).NotTo(HaveOccurred())

			out, err := run("", "history")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("2 turns"))
			Expect(out).To(ContainSubstring("hi"))

			prefix := strings.Fields(out)[0]
			out, err = run("", "history", prefix)
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal("You: hi\nBot: there, friend\n"))
		})

		It("fails for an unknown hash", func() {
			_, err := run("", "history", "deadbeef")
			Expect(err).To(HaveOccurred())
		})
	})

	It("fails on an invalid config file", func() {
		writeConfig(configPath, "[chat]\ntemperature = 3\n")

		_, err := run("", "ask", "hi")
		Expect(err).To(MatchError(ContainSubstring("invalid config")))
	})
})

func writeConfig(path, contents string) {
	Expect(os.WriteFile(path, []byte(contents), 0o600)).To(Succeed())
}
