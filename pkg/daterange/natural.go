package daterange

import (
	"errors"
	"time"

	dps "github.com/markusmobius/go-dateparser"
)

// DefaultLanguages are the languages phrases are parsed in.
var DefaultLanguages = []string{"ru"}

// NaturalParser parses natural-language dates with go-dateparser.
type NaturalParser struct {
	parser    *dps.Parser
	languages []string
}

// NewNaturalParser restricts parsing to the given languages (DefaultLanguages when empty).
func NewNaturalParser(languages ...string) *NaturalParser {
	if len(languages) == 0 {
		languages = DefaultLanguages
	}
	return &NaturalParser{
		parser:    &dps.Parser{},
		languages: languages,
	}
}

// ParseDate implements Parser.
func (p *NaturalParser) ParseDate(phrase string, now time.Time) (time.Time, error) {
	cfg := &dps.Configuration{CurrentTime: now, Languages: p.languages}
	dt, err := p.parser.Parse(cfg, phrase)
	if err != nil {
		return time.Time{}, err
	}
	if dt.Time.IsZero() {
		return time.Time{}, errors.New("daterange: phrase has no date")
	}
	return dt.Time, nil
}
