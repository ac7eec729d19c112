package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	"tacticsdb/internal/cascade"
	"tacticsdb/internal/database"
	"tacticsdb/internal/integrity"
)

var (
	success = color.New(color.FgGreen, color.Bold)
	warning = color.New(color.FgYellow, color.Bold)
	failure = color.New(color.FgRed, color.Bold)
	heading = color.New(color.FgCyan, color.Bold)
)

func printCounts(w io.Writer, counts []database.CatalogCount) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	total := 0
	for _, c := range counts {
		fmt.Fprintf(tw, "%s\t%d\n", c.Catalog, c.Len)
		total += c.Len
	}
	fmt.Fprintf(tw, "total\t%d\n", total)
	_ = tw.Flush()
}

func printImpact(w io.Writer, set cascade.ImpactSet) {
	if set.Empty() {
		fmt.Fprintf(w, "nothing references %s %s\n", set.Catalog, set.NID)
		return
	}
	heading.Fprintf(w, "%d entities reference %s %s\n", set.Len(), set.Catalog, set.NID)
	for _, g := range set.Groups {
		fmt.Fprintf(w, "  %s\n", g.Catalog)
		for _, d := range g.Dependents {
			fmt.Fprintf(w, "    %s (%s)\n", d.NID, strings.Join(d.Fields, ", "))
		}
	}
}

func printFindings(w io.Writer, rep integrity.Report) {
	if rep.OK() {
		success.Fprintln(w, "no problems found")
		return
	}
	for _, f := range rep.Findings {
		switch f.Kind {
		case integrity.KindDangling:
			failure.Fprint(w, "dangling ")
			fmt.Fprintf(w, "%s %s %s -> %s %q", f.Catalog, f.NID, f.Field, f.Target, f.Value)
			if f.Suggestion != "" {
				fmt.Fprintf(w, " (did you mean %q?)", f.Suggestion)
			}
			fmt.Fprintln(w)
		case integrity.KindDerivedKey:
			failure.Fprint(w, "stale key ")
			fmt.Fprintf(w, "%s %q should be %q\n", f.Catalog, f.NID, f.Value)
		case integrity.KindNearDuplicate:
			warning.Fprint(w, "near duplicate ")
			fmt.Fprintf(w, "%s %q looks like %q\n", f.Catalog, f.NID, f.Value)
		case integrity.KindBelowMinimum:
			failure.Fprint(w, "too few ")
			fmt.Fprintf(w, "%s needs at least %s entries\n", f.Catalog, f.Value)
		}
	}
	fmt.Fprintf(w, "%d problems\n", len(rep.Findings))
}
