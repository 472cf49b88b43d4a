package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dobromatch/dobromatch/pkg/proof"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <url|path>",
	Short: "Check whether an image proves volunteering",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		verifier, err := newVerifier()
		if err != nil {
			return err
		}

		ctx := context.Background()
		img, err := proof.NewFetcher().Fetch(ctx, args[0])
		if err != nil {
			return err
		}
		report, err := verifier.Check(ctx, img)
		if err != nil {
			return err
		}
		return printResult(reportView{report}, asJSON)
	},
}

type reportView struct {
	proof.Report
}

func (r reportView) Text() string {
	v := r.Verdict
	var b strings.Builder
	if v.IsVolunteerProof {
		fmt.Fprintf(&b, "Подтверждение принято (%s, уверенность %.2f)\n", v.Category, v.Confidence)
	} else {
		fmt.Fprintf(&b, "Подтверждение не принято (%s, уверенность %.2f)\n", v.Category, v.Confidence)
	}
	if v.Hours > 0 {
		fmt.Fprintf(&b, "Часов: %d\n", v.Hours)
	}
	for _, section := range []struct {
		title string
		items []string
	}{
		{"Причины", v.Reasons},
		{"Не хватает или вызывает сомнения", v.MissingOrSuspicious},
		{"Нужно уточнить", v.NeedsClarification},
	} {
		if len(section.items) == 0 {
			continue
		}
		b.WriteString(section.title + ":\n")
		for _, it := range section.items {
			b.WriteString("  - " + it + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func init() {
	rootCmd.AddCommand(verifyCmd)
	verifyCmd.Flags().Bool("json", false, "Print the full report as JSON")
}
