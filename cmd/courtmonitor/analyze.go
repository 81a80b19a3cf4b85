package main

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"CourtMonitor/internal/domain"
	"CourtMonitor/internal/ports"
)

func newAnalyzeCmd() *cobra.Command {
	var (
		cases   int
		jsonOut bool
	)
	cmd := &cobra.Command{
		Use:   "analyze <search term>",
		Short: "Search, download and analyse the latest filings for a term",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer application.Close()

			p := newPrinter(cmd.ErrOrStderr(), !noColor)
			sink := ports.SinkFunc(p.Progress)
			result, err := application.Pipeline().RunQuery(cmd.Context(), strings.Join(args, " "), cases, sink)
			if err != nil {
				return err
			}

			if jsonOut {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(result.Redact())
			}
			printResult(newPrinter(cmd.OutOrStdout(), !noColor), result)
			return nil
		},
	}
	cmd.Flags().IntVarP(&cases, "cases", "n", 0, "number of filings to analyse (default from config)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print the result as JSON")
	return cmd
}

func printResult(p *printer, result domain.PipelineResult) {
	for _, pf := range result.Filings {
		p.Header(pf.Filing.CaseNumber + " · " + pf.Filing.Court)
		p.Print("%s (%s)", pf.Filing.Title, pf.Filing.Date)
		if pf.Note != "" {
			p.Warning("%s", pf.Note)
		}
		for _, lf := range pf.FailedLinks {
			p.Warning("download failed: %s (%s)", lf.Link.Text, shorten(lf.Error, 80))
		}

		t := newTable(p.out, []string{"DOCUMENT", "STATUS", "SUMMARY"})
		for _, a := range pf.Analyses {
			status, summary := p.Badge(true), ""
			if a.Succeeded() {
				summary = a.Result.Summary
			} else {
				status, summary = p.Badge(false), a.Error
			}
			t.AddRow([]string{a.File.Text, status, shorten(summary, 80)})
		}
		t.Render()
	}

	p.Header("Narrative")
	p.Print("%s", result.Narrative)
}

func shorten(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-1]) + "…"
}
