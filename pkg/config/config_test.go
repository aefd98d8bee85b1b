package config_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/parley/pkg/backend"
	"github.com/papercomputeco/parley/pkg/config"
)

// setenv sets or clears key until the current test finishes.
func setenv(key, value string) {
	old, had := os.LookupEnv(key)
	if value == "" {
		Expect(os.Unsetenv(key)).To(Succeed())
	} else {
		Expect(os.Setenv(key, value)).To(Succeed())
	}
	DeferCleanup(func() {
		if had {
			os.Setenv(key, old)
		} else {
			os.Unsetenv(key)
		}
	})
}

var _ = Describe("Load", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		setenv(config.EnvOpenAIKey, "")
		setenv(config.EnvMode, "")
		setenv(config.EnvOllamaHost, "")
		setenv("HOME", dir)
	})

	write := func(contents string) string {
		path := filepath.Join(dir, "config.toml")
		Expect(os.WriteFile(path, []byte(contents), 0o600)).To(Succeed())
		return path
	}

	It("returns defaults when the default file is missing", func() {
		cfg, err := config.Load("")
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Chat.Mode).To(Equal("auto"))
		Expect(cfg.Chat.Temperature).To(Equal(0.7))
		Expect(cfg.Chat.MaxTokens).To(Equal(150))
		Expect(cfg.Chat.Window).To(Equal(6))
		Expect(cfg.OpenAI.Model).To(Equal("gpt-3.5-turbo"))
		Expect(cfg.OpenAI.MaxTokens).To(Equal(600))
		Expect(cfg.Local.Seed).To(Equal(42))
		Expect(cfg.Server.Listen).To(Equal(":8080"))
		Expect(cfg.Server.SessionTTL).To(Equal(time.Hour))
		Expect(cfg.Storage.SQLite).To(BeEmpty())
	})

	It("fails when an explicit file is missing", func() {
		_, err := config.Load(filepath.Join(dir, "nope.toml"))
		Expect(err).To(HaveOccurred())
	})

	It("reads the default location", func() {
		Expect(os.MkdirAll(filepath.Join(dir, ".parley"), 0o755)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(dir, ".parley", "config.toml"),
			[]byte("[chat]\nmode = \"local\"\n"), 0o600)).To(Succeed())

		cfg, err := config.Load("")
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Chat.Mode).To(Equal("local"))
	})

	It("overlays file values on the defaults", func() {
		path := write(`
[chat]
mode = "force-remote"
temperature = 0.2

[openai]
model = "gpt-4o-mini"
timeout = "30s"
api_key = "sk-file"

[local]
enabled = false

[storage]
sqlite = "/tmp/parley.db"
`)
		cfg, err := config.Load(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Chat.Mode).To(Equal("remote"))
		Expect(cfg.Chat.Temperature).To(Equal(0.2))
		Expect(cfg.Chat.MaxTokens).To(Equal(150))
		Expect(cfg.OpenAI.Model).To(Equal("gpt-4o-mini"))
		Expect(cfg.OpenAI.BaseURL).To(Equal("https://api.openai.com"))
		Expect(cfg.OpenAI.Timeout).To(Equal(30 * time.Second))
		Expect(cfg.OpenAI.APIKey).To(Equal("sk-file"))
		Expect(cfg.Local.Enabled).To(BeFalse())
		Expect(cfg.Storage.SQLite).To(Equal("/tmp/parley.db"))
	})

	It("applies environment overrides", func() {
		path := write("[openai]\napi_key = \"sk-file\"\n")
		setenv(config.EnvOpenAIKey, "sk-env")
		setenv(config.EnvMode, "ollama")
		setenv(config.EnvOllamaHost, "http://gpu-box:11434")

		cfg, err := config.Load(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.OpenAI.APIKey).To(Equal("sk-env"))
		Expect(cfg.Chat.Mode).To(Equal("local"))
		Expect(cfg.Local.URL).To(Equal("http://gpu-box:11434"))
	})

	DescribeTable("rejects invalid values",
		func(contents string) {
			_, err := config.Load(write(contents))
			Expect(err).To(HaveOccurred())
		},
		Entry("unknown mode", "[chat]\nmode = \"cloud\"\n"),
		Entry("temperature above one", "[chat]\ntemperature = 1.5\n"),
		Entry("negative temperature", "[chat]\ntemperature = -0.1\n"),
		Entry("token budget too small", "[chat]\nmax_tokens = 10\n"),
		Entry("token budget too large", "[chat]\nmax_tokens = 1000\n"),
		Entry("empty local url", "[local]\nurl = \"\"\n"),
		Entry("empty listen address", "[server]\nlisten = \"\"\n"),
		Entry("negative session ttl", "[server]\nsession_ttl = \"-1m\"\n"),
		Entry("malformed toml", "[chat\n"),
	)

	It("reads the session ttl as a duration", func() {
		cfg, err := config.Load(write("[server]\nsession_ttl = \"30m\"\n"))
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Server.SessionTTL).To(Equal(30 * time.Minute))
	})

	It("allows an empty local url when the local backend is disabled", func() {
		_, err := config.Load(write("[local]\nenabled = false\nurl = \"\"\n"))
		Expect(err).NotTo(HaveOccurred())
	})
})

var _ = Describe("Settings", func() {
	It("builds session defaults from the chat section", func() {
		cfg := config.Default()
		cfg.Chat.Mode = "remote"
		cfg.Chat.Temperature = 0.3
		cfg.OpenAI.APIKey = "sk-test"

		s := cfg.Settings()
		Expect(s.Mode).To(Equal(backend.ModeRemote))
		Expect(s.Temperature).To(Equal(0.3))
		Expect(s.MaxTokens).To(Equal(150))
		Expect(s.Credential).To(Equal("sk-test"))
	})
})
