package bootstrap

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/parley/pkg/backend"
	"github.com/papercomputeco/parley/pkg/chat"
)

// SettingsFlags are the per-run generation controls shared by chat and ask.
type SettingsFlags struct {
	mode        string
	temperature float64
	maxTokens   int
	apiKey      string
}

// Register adds the flags to cmd.
func (f *SettingsFlags) Register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.mode, "mode", "m", "", "Backend mode: auto, remote or local")
	cmd.Flags().Float64VarP(&f.temperature, "temperature", "t", 0.7, "Sampling temperature (0.0-1.0)")
	cmd.Flags().IntVar(&f.maxTokens, "max-tokens", 150, "Local generation token budget (50-512)")
	cmd.Flags().StringVar(&f.apiKey, "api-key", "", "OpenAI API key (overrides config and OPENAI_API_KEY)")
}

// Apply overlays the flags the user set on base.
func (f *SettingsFlags) Apply(cmd *cobra.Command, base chat.Settings) (chat.Settings, error) {
	if cmd.Flags().Changed("mode") {
		mode, err := backend.ParseMode(f.mode)
		if err != nil {
			return base, err
		}
		base.Mode = mode
	}
	if cmd.Flags().Changed("temperature") {
		if err := validation.Validate(f.temperature, validation.Min(0.0), validation.Max(1.0)); err != nil {
			return base, fmt.Errorf("--temperature: %w", err)
		}
		base.Temperature = f.temperature
	}
	if cmd.Flags().Changed("max-tokens") {
		if err := validation.Validate(f.maxTokens, validation.Min(50), validation.Max(512)); err != nil {
			return base, fmt.Errorf("--max-tokens: %w", err)
		}
		base.MaxTokens = f.maxTokens
	}
	if f.apiKey != "" {
		base.Credential = f.apiKey
	}
	return base, nil
}
