package judge

import (
	"context"

	"github.com/dobromatch/dobromatch/pkg/llm"
)

// ChatOracle asks a chat model for a 1/0 verdict.
type ChatOracle struct {
	LLM          llm.Completer
	Model        string
	SystemPrompt string
}

// Prompt renders the user message sent for one judgement.
func Prompt(query, candidate string) string {
	return "ЗАПРОС:\n" + query + "\n\nКАНДИДАТ:\n" + candidate +
		"\n\nОтвети только '1' (подходит) или '0' (не подходит)."
}

func (o *ChatOracle) Judge(ctx context.Context, query, candidate string) (string, error) {
	return o.LLM.Complete(ctx, llm.Request{
		Model:    o.Model,
		Messages: llm.Messages(o.SystemPrompt, llm.User(Prompt(query, candidate))),
	})
}
