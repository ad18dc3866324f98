package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/use-agent/gleaner/document"
	"github.com/use-agent/gleaner/paginate"
	"github.com/use-agent/gleaner/retry"
	"github.com/use-agent/gleaner/selector"
	"github.com/use-agent/gleaner/session"
)

// newLeaderboardCmd scrapes a script-rendered, paginated leaderboard by
// driving the browser: navigate, read the table, click the next-page
// control, and repeat until the control disappears or the page cap is hit.
// Each post-click read runs under the retry policy because the next page's
// table takes a moment to render.
func newLeaderboardCmd() *cobra.Command {
	var (
		url      string
		tableSel string
		nextSel  string
		maxPages int
		skipRows int
	)

	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Scrape a paginated, script-rendered leaderboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := selector.New(tableSel)
			if err != nil {
				return err
			}
			next, err := selector.New(nextSel)
			if err != nil {
				return err
			}

			s := session.NewDynamic(newBrowser(),
				session.WithRetryPolicy(retry.New(cfg.Retry.Timeout, cfg.Retry.PollInterval)),
			)

			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
			defer cancel()

			var rows []document.Row
			err = session.Run(ctx, s, func(ctx context.Context, s *session.Session) error {
				if err := s.Navigate(ctx, url); err != nil {
					return err
				}
				extract := paginate.TableExtractor(table, document.SkipRows(skipRows))
				rows, err = s.PaginateByClicking(ctx, extract, next, maxPages)
				return err
			})
			if err != nil {
				return err
			}
			return render(rows)
		},
	}

	cmd.Flags().StringVar(&url, "url", "https://stats.nba.com/leaders/", "leaderboard page URL")
	cmd.Flags().StringVar(&tableSel, "table-selector", "table", "CSS selector locating the stats table")
	cmd.Flags().StringVar(&nextSel, "next-selector", "button[title='Next Page Button']:not([disabled])", "CSS selector for the enabled next-page control")
	cmd.Flags().IntVar(&maxPages, "pages", 10, "maximum pages to collect")
	cmd.Flags().IntVar(&skipRows, "skip-rows", 0, "leading non-data rows to drop before the header")
	return cmd
}
