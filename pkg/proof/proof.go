// Package proof checks whether an image is evidence of volunteering: a
// vision model describes it, then a classifier judges the description.
package proof

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/dobromatch/dobromatch/pkg/llm"
)

const (
	DefaultDescribePrompt = `Подробно опиши изображение. Перепиши весь видимый текст дословно: ФИО, названия организаций, даты, количество часов, номера документов, печати и подписи. Отдельно отметь, похоже ли изображение на скриншот сайта, волонтёрскую книжку или сертификат.`

	DefaultClassifyPrompt = "Ты — строгий классификатор подтверждений волонтёрства. " +
		"На вход даётся ОПИСАНИЕ_ИЗОБРАЖЕНИЯ. " +
		"Верни JSON с полями: " +
		`{"is_volunteer_proof": bool, "confidence": float, ` +
		`"hours": количество часов волонтерской деятельности (должно быть явно написано, если нет, ставить 0),` +
		`"category": "dobro.ru_screenshot|volunteer_book|certificate|other", ` +
		`"reasons": [str], "missing_or_suspicious": [str], "needs_clarification": [str]} ` +
		"— без лишнего текста."

	// BlockedDescription stands in for a description the model refused to give.
	BlockedDescription = "Не удалось описать изображение: ответ заблокирован модерацией."
)

var (
	ErrNotImage   = errors.New("proof: file is not an image")
	ErrNoVerdict  = errors.New("proof: classifier returned no JSON verdict")
	ErrEmptyImage = errors.New("proof: image is empty")
)

// Category of a proof document.
type Category string

const (
	CategoryDobroScreenshot Category = "dobro.ru_screenshot"
	CategoryVolunteerBook   Category = "volunteer_book"
	CategoryCertificate     Category = "certificate"
	CategoryOther           Category = "other"
)

// Verdict is the classifier's judgement.
type Verdict struct {
	IsVolunteerProof    bool     `json:"is_volunteer_proof"`
	Confidence          float64  `json:"confidence"`
	Hours               int      `json:"hours"`
	Category            Category `json:"category"`
	Reasons             []string `json:"reasons"`
	MissingOrSuspicious []string `json:"missing_or_suspicious"`
	NeedsClarification  []string `json:"needs_clarification"`
}

// Report is the full outcome of a check.
type Report struct {
	Description string  `json:"description"`
	Verdict     Verdict `json:"classification"`
	Raw         string  `json:"raw_model_text"`
}

// Image is raw image bytes plus a detected content type.
type Image struct {
	Data     []byte
	MimeType string
}

// NewImage sniffs the content type of data and rejects anything that is
// not an image.
func NewImage(data []byte) (Image, error) {
	if len(data) == 0 {
		return Image{}, ErrEmptyImage
	}
	mime := http.DetectContentType(data)
	if !strings.HasPrefix(mime, "image/") {
		return Image{}, fmt.Errorf("%w (detected %s)", ErrNotImage, mime)
	}
	return Image{Data: data, MimeType: mime}, nil
}

// Verifier runs the describe-then-classify pipeline.
type Verifier struct {
	LLM            llm.Completer
	VisionModel    string
	ClassifyModel  string
	DescribePrompt string
	ClassifyPrompt string
}

// Check describes img and classifies the description. Any failure is
// returned; an image that cannot be checked never passes.
func (v *Verifier) Check(ctx context.Context, img Image) (Report, error) {
	description, err := v.Describe(ctx, img)
	if err != nil {
		return Report{}, err
	}

	verdict, raw, err := v.Classify(ctx, description)
	if err != nil {
		return Report{}, err
	}
	return Report{Description: description, Verdict: verdict, Raw: raw}, nil
}

// Describe asks the vision model for a textual description of img.
func (v *Verifier) Describe(ctx context.Context, img Image) (string, error) {
	if len(img.Data) == 0 {
		return "", ErrEmptyImage
	}
	prompt := v.DescribePrompt
	if strings.TrimSpace(prompt) == "" {
		prompt = DefaultDescribePrompt
	}

	text, err := v.LLM.Complete(ctx, llm.Request{
		Model:       v.VisionModel,
		Messages:    []llm.Message{llm.UserWithImage(prompt, img.MimeType, img.Data)},
		Temperature: 0.1,
	})
	if errors.Is(err, llm.ErrBlocked) {
		return BlockedDescription, nil
	}
	if err != nil {
		return "", fmt.Errorf("describe image: %w", err)
	}
	return text, nil
}

// Classify asks the classifier for a verdict on description.
func (v *Verifier) Classify(ctx context.Context, description string) (Verdict, string, error) {
	prompt := v.ClassifyPrompt
	if strings.TrimSpace(prompt) == "" {
		prompt = DefaultClassifyPrompt
	}

	raw, err := v.LLM.Complete(ctx, llm.Request{
		Model:    v.ClassifyModel,
		Messages: llm.Messages(prompt, llm.User("ОПИСАНИЕ_ИЗОБРАЖЕНИЯ:\n"+description)),
		JSON:     true,
	})
	if err != nil {
		return Verdict{}, "", fmt.Errorf("classify description: %w", err)
	}

	verdict, err := ParseVerdict(raw)
	if err != nil {
		return Verdict{}, raw, err
	}
	return verdict, raw, nil
}

// ParseVerdict decodes the classifier reply, tolerating code fences.
func ParseVerdict(raw string) (Verdict, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start || !gjson.Valid(raw[start:end+1]) {
		return Verdict{}, ErrNoVerdict
	}
	r := gjson.Parse(raw[start : end+1])

	category := Category(strings.TrimSpace(r.Get("category").String()))
	switch category {
	case CategoryDobroScreenshot, CategoryVolunteerBook, CategoryCertificate:
	default:
		category = CategoryOther
	}

	return Verdict{
		IsVolunteerProof:    r.Get("is_volunteer_proof").Bool(),
		Confidence:          r.Get("confidence").Float(),
		Hours:               int(r.Get("hours").Int()),
		Category:            category,
		Reasons:             stringList(r.Get("reasons")),
		MissingOrSuspicious: stringList(r.Get("missing_or_suspicious")),
		NeedsClarification:  stringList(r.Get("needs_clarification")),
	}, nil
}

func stringList(r gjson.Result) []string {
	out := []string{}
	for _, v := range r.Array() {
		if s := strings.TrimSpace(v.String()); s != "" {
			out = append(out, s)
		}
	}
	return out
}
