package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"cloudnav/internal/theme"
)

func newThemesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "themes",
		Short: "List display themes",
		RunE: func(*cobra.Command, []string) error {
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			for _, t := range theme.All() {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", t.ID, t.Name, t.Description, strings.Join(t.PreviewColors, " "))
			}
			return tw.Flush()
		},
	}
}
