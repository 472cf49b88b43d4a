// Package extract turns a free-text request into the structured city, date
// and time tokens the search engine understands.
package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/dobromatch/dobromatch/pkg/llm"
)

// ErrNoFields is returned when the model reply holds no JSON object.
var ErrNoFields = errors.New("extract: no JSON object in model reply")

// DefaultPrompt is used when no system prompt is configured.
const DefaultPrompt = `Ты извлекаешь параметры поиска волонтёрских мероприятий из сообщения пользователя.
Верни только JSON вида {"city": string|null, "date": string|null, "time_start": string|null}.
- date: "YYYY-MM-DD" для конкретного дня, "YYYY-MM-XX" для всего месяца, "YYYY-XX-XX" для всего года.
- Относительные даты ("завтра", "в эти выходные") вычисляй от текущей даты из сообщения.
- time_start: время начала в формате "HH:MM" (24 часа).
- Если значение не указано, ставь null.`

// Fields are the tokens pulled out of a request. Empty means not given.
type Fields struct {
	City      string `json:"city"`
	Date      string `json:"date"`
	TimeStart string `json:"time_start"`
}

// Extractor asks a chat model for Fields.
type Extractor struct {
	LLM          llm.Completer
	Model        string
	SystemPrompt string
	// Now is the reference for relative dates. Nil means time.Now.
	Now func() time.Time
}

// Extract sends text, stamped with today's date, to the model and decodes its reply.
func (e *Extractor) Extract(ctx context.Context, text string) (Fields, error) {
	prompt := e.SystemPrompt
	if strings.TrimSpace(prompt) == "" {
		prompt = DefaultPrompt
	}
	now := time.Now
	if e.Now != nil {
		now = e.Now
	}

	msg := text + "\n\nТекущая дата: " + now().Format("2006-01-02")
	reply, err := e.LLM.Complete(ctx, llm.Request{
		Model:    e.Model,
		Messages: llm.Messages(prompt, llm.User(msg)),
		JSON:     true,
	})
	if err != nil {
		return Fields{}, fmt.Errorf("extract: %w", err)
	}
	return ParseReply(reply)
}

// ParseReply decodes the first JSON object found in reply. Markdown code
// fences and surrounding prose are ignored; null values read as "".
func ParseReply(reply string) (Fields, error) {
	obj, ok := jsonObject(reply)
	if !ok {
		return Fields{}, ErrNoFields
	}
	r := gjson.Parse(obj)
	return Fields{
		City:      str(r.Get("city")),
		Date:      str(r.Get("date")),
		TimeStart: str(r.Get("time_start")),
	}, nil
}

func str(r gjson.Result) string {
	if r.Type != gjson.String {
		return ""
	}
	return strings.TrimSpace(r.String())
}

// jsonObject returns the outermost {...} span of s when it is valid JSON.
func jsonObject(s string) (string, bool) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", false
	}
	obj := s[start : end+1]
	if !gjson.Valid(obj) {
		return "", false
	}
	return obj, true
}
