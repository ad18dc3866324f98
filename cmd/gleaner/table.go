package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/use-agent/gleaner/cache"
	"github.com/use-agent/gleaner/document"
	"github.com/use-agent/gleaner/fetcher"
	"github.com/use-agent/gleaner/selector"
	"github.com/use-agent/gleaner/session"
)

// newTableCmd extracts the first matching table from a page. The classic
// use is a chart page like IMDB's top 250, where one static fetch carries
// the whole ranking.
func newTableCmd() *cobra.Command {
	var (
		selectorText string
		skipRows     int
		dynamic      bool
	)

	cmd := &cobra.Command{
		Use:   "table <url>",
		Short: "Extract a table from a page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := args[0]

			sel, err := selector.New(selectorText)
			if err != nil {
				return err
			}

			static := fetcher.NewStatic(
				fetcher.WithProxy(cfg.Browser.Proxy),
				fetcher.WithCache(cache.New(cfg.Cache.MaxEntries), cfg.Cache.TTL),
			)

			var f fetcher.Fetcher = static
			var cleanup func() error
			if dynamic {
				auto := fetcher.NewAuto(static, newBrowser())
				f = auto
				cleanup = auto.Close
			}

			s := session.NewStatic(f)
			if cleanup != nil {
				defer func() { _ = cleanup() }()
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()

			var rows []document.Row
			err = session.Run(ctx, s, func(ctx context.Context, s *session.Session) error {
				doc, err := s.Fetch(ctx, target)
				if err != nil {
					return err
				}
				rows, err = doc.ExtractTable(sel, document.SkipRows(skipRows))
				return err
			})
			if err != nil {
				return err
			}
			return render(rows)
		},
	}

	cmd.Flags().StringVar(&selectorText, "selector", "table", "CSS selector locating the table")
	cmd.Flags().IntVar(&skipRows, "skip-rows", 0, "leading non-data rows to drop before the header")
	cmd.Flags().BoolVar(&dynamic, "dynamic", false, "escalate to a headless browser for script-rendered pages")
	return cmd
}

// newBrowser builds the dynamic fetcher from the environment config.
func newBrowser() *fetcher.Browser {
	return fetcher.NewBrowser(fetcher.BrowserOptions{
		Headless:  cfg.Browser.Headless,
		NoSandbox: cfg.Browser.NoSandbox,
		Bin:       cfg.Browser.Bin,
		Proxy:     cfg.Browser.Proxy,
		Stealth:   cfg.Browser.Stealth,
	})
}
