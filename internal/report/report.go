// Package report renders a recommendation set for terminals and scripts.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/ochestra-tech/cloudoptimizer/internal/cost"
)

// Format names an output renderer.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
)

// ParseFormat maps a CLI flag value to a Format.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case FormatTable, "":
		return FormatTable, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want table or json)", s)
	}
}

// Render writes the set to w in the requested format.
func Render(w io.Writer, set *cost.RecommendationSet, format Format) error {
	switch format {
	case FormatJSON:
		return RenderJSON(w, set)
	case FormatTable:
		return RenderTable(w, set)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// RenderJSON writes the set as indented JSON.
func RenderJSON(w io.Writer, set *cost.RecommendationSet) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(set)
}

// RenderTable writes an aligned, human-readable table. Rows keep the
// set's ranked order.
func RenderTable(w io.Writer, set *cost.RecommendationSet) error {
	if len(set.Recommendations) == 0 {
		fmt.Fprintln(w, "No recommendations.")
		return renderWarnings(w, set.Warnings)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PROVIDER\tRESOURCE\tACTION\tSAVINGS/MO\tCONFIDENCE\tSTRATEGIES")
	for _, rec := range set.Recommendations {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s %s\t%.0f%%\t%s\n",
			rec.Provider,
			rec.ResourceID,
			rec.Action,
			rec.MonthlySavings.String(),
			set.Currency,
			rec.Confidence*100,
			strings.Join(rec.Strategies, ","),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\nTotal potential savings: %s %s/month (%d recommendations)\n",
		set.TotalSavings.String(), set.Currency, len(set.Recommendations))

	return renderWarnings(w, set.Warnings)
}

func renderWarnings(w io.Writer, warnings []cost.Warning) error {
	if len(warnings) == 0 {
		return nil
	}

	fmt.Fprintf(w, "\nWarnings (%d):\n", len(warnings))
	for _, warning := range warnings {
		if warning.Provider != "" {
			fmt.Fprintf(w, "  [%s/%s] %s\n", warning.Source, warning.Provider, warning.Message)
		} else {
			fmt.Fprintf(w, "  [%s] %s\n", warning.Source, warning.Message)
		}
	}
	return nil
}
