package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/Ramsey-B/nettle/pkg/companies"
	"github.com/Ramsey-B/nettle/pkg/pipeline"
)

var (
	heading = color.New(color.Bold)
	good    = color.New(color.FgGreen)
	warn    = color.New(color.FgYellow)
	dim     = color.New(color.Faint)
)

func printSummary(w io.Writer, result *pipeline.Result) {
	heading.Fprintf(w, "Run %s\n", result.RunID)
	if result.Interrupted {
		warn.Fprintln(w, "  interrupted, results are partial")
	} else {
		good.Fprintln(w, "  completed")
	}
	fmt.Fprintf(w, "  %d records in, %d entities out (%s)\n",
		result.InputCount, len(result.Entities), result.CompletedAt.Sub(result.StartedAt).Round(time.Millisecond))

	fmt.Fprintf(w, "  %-20s %7d -> %-7d merges %d\n", "exact keys", result.PreReduce.Before, result.PreReduce.After, result.PreReduce.Merges)
	for _, stage := range result.Stages {
		line := fmt.Sprintf("  %-20s %7d -> %-7d merges %d  pairs %d  >= %.0f%%  %s",
			stage.Algorithm, stage.Before, stage.After, stage.Merges, stage.Pairs, stage.MinAccuracy, stage.Duration.Round(time.Millisecond))
		if stage.Interrupted {
			warn.Fprintln(w, line+"  (interrupted)")
			continue
		}
		fmt.Fprintln(w, line)
	}

	report := result.Companies
	if report == nil {
		return
	}
	fmt.Fprintf(w, "  company references %d, already resolved %d\n", report.References, report.AlreadyResolved)
	for _, tier := range []companies.Tier{companies.TierExactKey, companies.TierTokenSet, companies.TierEditDistance} {
		fmt.Fprintf(w, "    %-16s %d\n", tier, report.CountByTier(tier))
	}
	if len(report.Unresolved) > 0 {
		warn.Fprintf(w, "    %-16s %d\n", "unresolved", len(report.Unresolved))
		dim.Fprintf(w, "      %s\n", strings.Join(report.UnresolvedNames(), ", "))
	}
}
