package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/dobromatch/dobromatch/internal/utils"
	"github.com/dobromatch/dobromatch/pkg/daterange"
	"github.com/dobromatch/dobromatch/pkg/events"
	"github.com/dobromatch/dobromatch/pkg/extract"
	"github.com/dobromatch/dobromatch/pkg/judge"
	"github.com/dobromatch/dobromatch/pkg/llm"
	"github.com/dobromatch/dobromatch/pkg/proof"
	"github.com/dobromatch/dobromatch/pkg/search"
	"github.com/dobromatch/dobromatch/pkg/storage"
)

func apiKey() string {
	if key := strings.TrimSpace(viper.GetString("llm.api_key")); key != "" {
		return key
	}
	return strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
}

func newLLMClient() (*llm.Client, error) {
	return llm.New(llm.Config{
		APIKey:   apiKey(),
		Model:    viper.GetString("llm.model"),
		Endpoint: viper.GetString("llm.endpoint"),
		Log:      utils.Log,
	})
}

func location() (*time.Location, error) {
	name := viper.GetString("search.timezone")
	if name == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid search.timezone %q: %w", name, err)
	}
	return loc, nil
}

// newEngine builds the search engine. The relevance pass is wired only when
// it is enabled and an API key is available.
func newEngine(withJudge bool) (*search.Engine, error) {
	loc, err := location()
	if err != nil {
		return nil, err
	}
	engine := &search.Engine{
		Resolver: daterange.New(loc, daterange.NewNaturalParser()),
		Log:      utils.Log,
	}

	if !withJudge || !viper.GetBool("judge.enabled") {
		return engine, nil
	}
	if apiKey() == "" {
		utils.Log.Debug("No LLM API key configured, skipping the relevance pass")
		return engine, nil
	}

	client, err := newLLMClient()
	if err != nil {
		return nil, err
	}
	prompt, err := utils.ReadPrompt(viper.GetString("judge.prompt_path"))
	if err != nil {
		return nil, err
	}
	engine.Filter = &judge.Filter{
		Oracle:         &judge.ChatOracle{LLM: client, SystemPrompt: prompt},
		MaxConcurrency: viper.GetInt("judge.concurrency"),
		Log:            utils.Log,
	}
	return engine, nil
}

func newExtractor() (*extract.Extractor, error) {
	client, err := newLLMClient()
	if err != nil {
		return nil, err
	}
	prompt, err := utils.ReadPrompt(viper.GetString("extract.prompt_path"))
	if err != nil {
		return nil, err
	}
	loc, err := location()
	if err != nil {
		return nil, err
	}
	return &extract.Extractor{
		LLM:          client,
		SystemPrompt: prompt,
		Now:          func() time.Time { return time.Now().In(loc) },
	}, nil
}

func newVerifier() (*proof.Verifier, error) {
	client, err := newLLMClient()
	if err != nil {
		return nil, err
	}
	describe, err := utils.ReadPrompt(viper.GetString("proof.describe_prompt_path"))
	if err != nil {
		return nil, err
	}
	classify, err := utils.ReadPrompt(viper.GetString("proof.classify_prompt_path"))
	if err != nil {
		return nil, err
	}
	return &proof.Verifier{
		LLM:            client,
		VisionModel:    viper.GetString("llm.vision_model"),
		ClassifyModel:  viper.GetString("llm.model"),
		DescribePrompt: describe,
		ClassifyPrompt: classify,
	}, nil
}

// openSource returns the event source selected by the flags: the SQLite
// catalogue with --db, the JSON dataset otherwise. The returned close
// function is never nil.
func openSource(useDB bool, datasetPath, dbPath string) (events.Source, *storage.DB, func(), error) {
	if !useDB {
		if datasetPath == "" {
			datasetPath = viper.GetString("dataset.path")
		}
		return events.FileSource{Path: datasetPath}, nil, func() {}, nil
	}

	if dbPath == "" {
		dbPath = viper.GetString("dataset.dbpath")
	}
	if _, err := os.Stat(dbPath); err != nil {
		return nil, nil, func() {}, fmt.Errorf("database not found: %s", dbPath)
	}
	db, err := storage.Open(dbPath)
	if err != nil {
		return nil, nil, func() {}, err
	}
	return db, db, func() { db.Close() }, nil
}
