package llm

// ChatRequest is the remote adapter's input: the whole conversation as
// role/content pairs, sampling options and the caller's credential.
type ChatRequest struct {
	Messages   []Message `json:"messages"`
	Options    Options   `json:"options"`
	Credential string    `json:"-"`
}

// GenerateRequest is the local adapter's input: a single flattened prompt
// and sampling options. Options.MaxTokens is the additional-token budget.
type GenerateRequest struct {
	Prompt  string  `json:"prompt"`
	Options Options `json:"options"`
}
