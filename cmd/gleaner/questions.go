package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/use-agent/gleaner/document"
	"github.com/use-agent/gleaner/fetcher"
	"github.com/use-agent/gleaner/selector"
	"github.com/use-agent/gleaner/session"
)

var (
	questionSel = selector.MustNew("#questions .s-post-summary")
	titleSel    = selector.MustNew(".s-post-summary--content-title a")
	statSel     = selector.MustNew(".s-post-summary--stats-item-number")
)

// newQuestionsCmd lists Stack Overflow questions for a tag. Unlike the
// table command this reads repeated non-table nodes, pulling named fields
// out of each listing entry.
func newQuestionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "questions [tag]",
		Short: "List Stack Overflow questions for a tag",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tag := "go"
			if len(args) == 1 {
				tag = args[0]
			}
			target := "https://stackoverflow.com/questions/tagged/" + tag

			s := session.NewStatic(fetcher.NewStatic(fetcher.WithProxy(cfg.Browser.Proxy)))

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()

			var rows []document.Row
			err := session.Run(ctx, s, func(ctx context.Context, s *session.Session) error {
				doc, err := s.Fetch(ctx, target)
				if err != nil {
					return err
				}
				rows = extractQuestions(doc)
				return nil
			})
			if err != nil {
				return err
			}
			return render(rows)
		},
	}
	return cmd
}

// extractQuestions reads one row per question summary: title, link, and
// the vote count (the first stats number in each entry).
func extractQuestions(doc document.Document) []document.Row {
	var rows []document.Row
	for _, q := range doc.Query(questionSel) {
		title, ok := titleSel.MatchFirst(q)
		if !ok {
			continue
		}
		href, _ := selector.Attr(title, "href")
		votes := ""
		if stat, ok := statSel.MatchFirst(q); ok {
			votes = selector.Text(stat)
		}
		rows = append(rows, document.NewRow(
			[]string{"Title", "Votes", "Link"},
			[]string{selector.Text(title), votes, href},
		))
	}
	return rows
}
