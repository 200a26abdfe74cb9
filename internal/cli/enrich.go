package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"cloudnav/internal/ai"
	"cloudnav/internal/enrich"
)

func newEnrichCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "enrich",
		Short: "Generate descriptions for links that have none",
		Long:  "Asks the configured AI provider for a short description of every link missing one. Press Ctrl+C once to stop after the current link, twice to abort.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runEnrich(cmd.Context(), a, yes)
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func runEnrich(parent context.Context, a *app, yes bool) error {
	client := a.storeClient()
	if err := requireAuth(parent, client); err != nil {
		return err
	}
	store, err := a.aiStore()
	if err != nil {
		return err
	}
	aiCfg, err := store.Load()
	if err != nil {
		return err
	}
	links, _, err := client.LoadData(parent)
	if err != nil {
		return fmt.Errorf("load links: %w", err)
	}

	plan, err := enrich.Check(aiCfg, links)
	switch {
	case errors.Is(err, enrich.ErrNoAPIKey):
		return errors.New("请先配置并保存 API Key (cloudnav settings set ai.apiKey=...)")
	case errors.Is(err, enrich.ErrNothingToEnrich):
		fmt.Fprintln(a.out, "所有链接都已有描述！")
		return nil
	case err != nil:
		return err
	}

	if !yes && !confirm(a.in, a.out, fmt.Sprintf("发现 %d 个链接缺少描述，确定要使用 AI 自动生成吗？这可能需要一些时间。", plan.Total())) {
		fmt.Fprintln(a.out, "Cancelled.")
		return nil
	}

	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	describer, err := ai.NewDescriber(ctx, aiCfg, a.log)
	if err != nil {
		return err
	}
	batch := enrich.NewBatch(describer, client, a.log)

	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, os.Interrupt)
	defer signal.Stop(sigs)
	go func() {
		presses := 0
		for {
			select {
			case <-sigs:
				presses++
				if presses == 1 {
					fmt.Fprintln(a.out, "\nStopping after the current link...")
					batch.Cancel()
					continue
				}
				cancel()
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	res, err := batch.Run(ctx, links, func(p enrich.Progress) {
		fmt.Fprintf(a.out, "\r[%d/%d]", p.Current, p.Total)
	})
	fmt.Fprintln(a.out)
	if err != nil {
		return reauth(err)
	}

	fmt.Fprintf(a.out, "Updated %d, failed %d", res.Updated, res.Failed)
	if res.Cancelled {
		fmt.Fprint(a.out, ", stopped early")
	}
	fmt.Fprintln(a.out, ".")
	return nil
}

func confirm(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s [y/N] ", question)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}
