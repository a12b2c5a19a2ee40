package formatters

import (
	"bytes"
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/redhat-openshift-ecosystem/ecr-cleanup/internal/cleanup"
	"github.com/redhat-openshift-ecosystem/ecr-cleanup/version"
)

// textFormatter is a FormatterFunc that writes a human readable summary.
func textFormatter(ctx context.Context, r *cleanup.RunReport) ([]byte, error) {
	var buf bytes.Buffer
	tw := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "Repository:\t%s\n", r.Repository)
	fmt.Fprintf(tw, "Source repository:\t%s\n", r.SourceRepository)
	fmt.Fprintf(tw, "Whitelisted tags:\t%d\n", r.WhitelistSize)
	fmt.Fprintf(tw, "Listed images:\t%d\n", r.Listed)
	fmt.Fprintf(tw, "Blank images:\t%d\n", r.Blank)
	fmt.Fprintf(tw, "Deleted images:\t%d\n", len(r.Deleted))
	fmt.Fprintf(tw, "Failures:\t%d\n", len(r.Failures))
	fmt.Fprintf(tw, "Tool version:\t%s\n", version.Version.String())
	if err := tw.Flush(); err != nil {
		return nil, fmt.Errorf("error formatting report with formatter %s: %w", "text", err)
	}

	if len(r.Deleted) > 0 {
		fmt.Fprintln(&buf, "\nDeleted:")
		for _, img := range r.Deleted {
			fmt.Fprintf(&buf, "- %s\n", img)
		}
	}
	if len(r.Failures) > 0 {
		fmt.Fprintln(&buf, "\nNot deleted:")
		for _, f := range r.Failures {
			fmt.Fprintf(&buf, "- %s: %s (%s)\n", f.Image, f.Reason, f.Code)
		}
	}

	return buf.Bytes(), nil
}
