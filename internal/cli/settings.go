package cli

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"cloudnav/internal/localconfig"
	"cloudnav/internal/settings"
	"cloudnav/internal/storeclient"
)

func newSettingsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change site and AI settings",
	}
	cmd.AddCommand(newSettingsShowCmd(a), newSettingsSetCmd(a), newSettingsIconsCmd(a))
	return cmd
}

// openSession loads both configs and stages them.
func openSession(ctx context.Context, a *app, rng *rand.Rand) (settings.Session, *storeclient.Client, *localconfig.AIStore, error) {
	client := a.storeClient()
	site, err := client.LoadWebsite(ctx)
	if err != nil {
		return settings.Session{}, nil, nil, fmt.Errorf("load website settings: %w", err)
	}
	store, err := a.aiStore()
	if err != nil {
		return settings.Session{}, nil, nil, err
	}
	aiCfg, err := store.Load()
	if err != nil {
		return settings.Session{}, nil, nil, err
	}
	return settings.Open(aiCfg, site, nil, client.Credential(), rng), client, store, nil
}

func newRand(seed uint64) *rand.Rand {
	if seed == 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(seed, seed))
}

func newSettingsShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the current settings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, _, _, err := openSession(cmd.Context(), a, newRand(0))
			if err != nil {
				return err
			}
			printSession(a.out, s)
			return nil
		},
	}
}

func printSession(w io.Writer, s settings.Session) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	rows := [][2]string{
		{settings.FieldTitle, s.Site.Title},
		{settings.FieldNavTitle, s.Site.NavTitle},
		{settings.FieldFavicon, abbreviate(s.Site.Favicon, 60)},
		{settings.FieldFaviconAPI, s.Site.FaviconAPI},
		{settings.FieldCardStyle, s.Site.CardStyle},
		{settings.FieldPasswordExpiryDays, fmt.Sprint(s.Site.ExpiryDays())},
		{settings.FieldEnablePinnedSites, fmt.Sprint(s.Site.PinnedSitesEnabled())},
		{settings.FieldDisplayTheme, s.Site.DisplayTheme},
		{settings.FieldAIProvider, s.AI.Provider},
		{settings.FieldAIKey, maskSecret(s.AI.APIKey)},
		{settings.FieldAIBaseURL, s.AI.BaseURL},
		{settings.FieldAIModel, s.AI.Model},
	}
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\n", r[0], r[1])
	}
	_ = tw.Flush()
}

func maskSecret(s string) string {
	if s == "" {
		return "(not set)"
	}
	if len(s) <= 6 {
		return "******"
	}
	return s[:3] + "..." + s[len(s)-3:]
}

func abbreviate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func newSettingsSetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set key=value [key=value...]",
		Short: "Change settings and save them",
		Long: "Keys: " + strings.Join(settings.Fields(), ", ") + ".\n" +
			"passwordExpiryDays is saved to the server as soon as it is applied; " +
			"everything else is saved together at the end.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, client, store, err := openSession(ctx, a, newRand(0))
			if err != nil {
				return err
			}
			runner := settings.NewRunner(client, store, a.log)
			defer runner.Wait()

			for _, arg := range args {
				key, value, ok := strings.Cut(arg, "=")
				if !ok {
					return fmt.Errorf("expected key=value, got %q", arg)
				}
				next, effects, err := s.Set(strings.TrimSpace(key), value)
				if err != nil {
					return err
				}
				s = next
				if _, err := runner.Run(ctx, effects); err != nil {
					return err
				}
			}
			// A pending passwordExpiryDays save would otherwise land after the commit.
			runner.Wait()
			return commit(ctx, a, s, runner)
		},
	}
}

func commit(ctx context.Context, a *app, s settings.Session, runner *settings.Runner) error {
	_, effects := s.Commit()
	if _, err := runner.Run(ctx, effects); err != nil {
		return reauth(err)
	}
	fmt.Fprintln(a.out, "Settings saved.")
	return nil
}

func newSettingsIconsCmd(a *app) *cobra.Command {
	var (
		seed       uint64
		pick       int
		regenerate bool
	)
	cmd := &cobra.Command{
		Use:   "icons",
		Short: "Generate candidate favicons from the nav title and optionally use one",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			rng := newRand(seed)
			s, client, store, err := openSession(ctx, a, rng)
			if err != nil {
				return err
			}
			if regenerate {
				s = s.RegenerateIcons(rng)
			}

			if pick == 0 {
				for i, icon := range s.Icons {
					fmt.Fprintf(a.out, "%2d  %s\n", i+1, icon)
				}
				return nil
			}
			if pick < 1 || pick > len(s.Icons) {
				return fmt.Errorf("--pick must be between 1 and %d", len(s.Icons))
			}

			s, _, err = s.Set(settings.FieldFavicon, s.Icons[pick-1])
			if err != nil {
				return err
			}
			runner := settings.NewRunner(client, store, a.log)
			defer runner.Wait()
			return commit(ctx, a, s, runner)
		},
	}
	cmd.Flags().Uint64Var(&seed, "seed", 0, "seed for reproducible palettes (0 = random)")
	cmd.Flags().IntVar(&pick, "pick", 0, "save icon N (1-based) as the favicon")
	cmd.Flags().BoolVar(&regenerate, "regenerate", false, "discard the first palette and draw a new one")
	return cmd
}
