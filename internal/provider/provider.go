// Package provider generates answers through an external reasoning service.
package provider

import (
	"context"
	"strings"

	"github.com/router-for-me/AnswerGateway/internal/canonical"
)

// Prompt is the question sent to the provider.
type Prompt struct {
	Question string
	Platform string
	Version  string
}

// Completion is a generated answer.
type Completion struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
	Sources          []string
}

// Generator produces an answer for a prompt with the given model.
type Generator interface {
	Generate(ctx context.Context, prompt Prompt, model string) (Completion, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, prompt Prompt, model string) (Completion, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, prompt Prompt, model string) (Completion, error) {
	return f(ctx, prompt, model)
}

const basePersona = "You are Moe, a Mission-Oriented Expert for woodworking software. " +
	"Provide precise, step-by-step instructions. Format answers in clear Markdown. Be concise but thorough."

// BuildSystemPrompt returns the system instructions, tailored to the platform when one is known.
func BuildSystemPrompt(platform, version string) string {
	platform = strings.TrimSpace(platform)
	if platform == "" || strings.EqualFold(platform, canonical.GenericPart) {
		return basePersona
	}
	var b strings.Builder
	b.WriteString(basePersona)
	b.WriteString(" The user is specifically using ")
	b.WriteString(platform)
	if version = strings.TrimSpace(version); version != "" && !strings.EqualFold(version, canonical.GenericPart) {
		b.WriteString(" version ")
		b.WriteString(version)
	}
	b.WriteString(". Tailor your instructions to this software's interface and terminology.")
	return b.String()
}
