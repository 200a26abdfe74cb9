package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"cloudnav/internal/extension"
	"cloudnav/internal/scraper"
)

func newExtensionCmd(a *app) *cobra.Command {
	var (
		browser string
		domain  string
		out     string
		file    string
	)
	cmd := &cobra.Command{
		Use:   "extension",
		Short: "Build the browser extension for this dashboard",
		Long: "Writes " + extension.ArchiveName + " (or a single file with --file). " +
			"The extension talks to --domain (default client.server_url) with the client password.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			b, err := extension.ParseBrowser(browser)
			if err != nil {
				return err
			}
			client := a.storeClient()
			if !client.Credential().Valid() {
				return fmt.Errorf("a password is required (client.password or --password)")
			}
			site, err := client.LoadWebsite(ctx)
			if err != nil {
				return fmt.Errorf("load website settings: %w", err)
			}
			if domain == "" {
				domain = client.BaseURL()
			}

			bundle, err := extension.Generate(extension.Params{
				NavTitle: site.NavTitle,
				Domain:   domain,
				Password: string(client.Credential()),
				Browser:  b,
			})
			if err != nil {
				return err
			}

			rasterizers := extension.ChainRasterizer{extension.NewImageRasterizer(nil)}
			if a.cfg.Scraper.Enabled {
				rasterizers = append(rasterizers, scraper.NewRodScraper(a.log))
			}
			packager := extension.NewPackager(rasterizers, a.log)

			if file != "" {
				return writeSingleFile(ctx, a.out, packager, bundle, site.Favicon, file, out)
			}

			archive, err := packager.Package(ctx, bundle, site.Favicon)
			if err != nil {
				return fmt.Errorf("打包失败: %w", err)
			}
			if out == "" {
				out = extension.ArchiveName
			}
			if err := os.WriteFile(out, archive.Data, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Wrote %s (%d files", out, len(archive.Entries))
			if !archive.HasIcon {
				fmt.Fprintf(a.out, ", no icon: see %s", extension.IconMissingFile)
			}
			fmt.Fprintln(a.out, ")")
			return nil
		},
	}
	cmd.Flags().StringVar(&browser, "browser", "chromium", "target browser family: chromium or firefox")
	cmd.Flags().StringVar(&domain, "domain", "", "API origin the extension talks to")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output path (file) or directory (with --file)")
	cmd.Flags().StringVar(&file, "file", "", "write only this artifact, e.g. background.js or icon.png")
	return cmd
}

func writeSingleFile(ctx context.Context, stdout io.Writer, packager *extension.Packager, bundle extension.Bundle, favicon, name, dir string) error {
	var content []byte
	if name == extension.IconFile {
		icon, err := packager.Icon(ctx, favicon)
		if err != nil {
			return err
		}
		content = icon
	} else {
		f, ok := bundle.Get(name)
		if !ok {
			return fmt.Errorf("unknown artifact %q (have %v)", name, append(bundle.Names(), extension.IconFile))
		}
		content = f.Content
	}

	if dir == "" {
		_, err := stdout.Write(content)
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, name), content, 0o644)
}
