package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/dobromatch/dobromatch/pkg/daterange"
	"github.com/dobromatch/dobromatch/pkg/events"
	"github.com/dobromatch/dobromatch/pkg/search"
)

func main() {
	// Usage: go run *.go -dataset events.json -date 2025-06-15 -time 11:00 -city Москва

	datasetFlag := flag.String("dataset", "events.json", "Path to the JSON dataset")
	dateFlag := flag.String("date", "", "Date to search")
	timeFlag := flag.String("time", "", "Centre of the time window")
	cityFlag := flag.String("city", "", "City")

	// Parse the command-line flags
	flag.Parse()

	if *dateFlag == "" {
		fmt.Println("Date is required. Please provide the date using -date flag.")
		return
	}

	loc, err := time.LoadLocation("Europe/Moscow")
	if err != nil {
		loc = time.UTC
	}

	// The relevance pass is optional: leave Filter nil to skip it.
	engine := &search.Engine{Resolver: daterange.New(loc, daterange.NewNaturalParser())}

	res, err := engine.SearchSource(context.Background(), search.Query{
		City:          *cityFlag,
		Date:          *dateFlag,
		Time:          *timeFlag,
		WindowMinutes: 180,
		MaxResults:    5,
	}, events.FileSource{Path: *datasetFlag})
	if err != nil {
		fmt.Println(err)
		return
	}

	for _, item := range res.Items {
		fmt.Println(item.Title, item.URL)
	}
}
