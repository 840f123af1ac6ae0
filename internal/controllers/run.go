package controllers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/sirupsen/logrus"

	"sweeparr/internal/models"
	"sweeparr/internal/utils"
)

// RunOptions tune one full run
type RunOptions struct {
	Days       int
	DeleteMode models.DeleteMode
	SortBySize bool
}

// RunController executes one full run: resolve the unwatched set, correlate
// it against the companion catalogs, report, and apply the deletion policy
type RunController struct {
	unwatched *UnwatchedController
	match     *MatchController
	deleter   *DeleteController
	opts      RunOptions
	out       io.Writer
	logger    *logrus.Logger

	now func() time.Time
}

// NewRunController creates a new run controller
func NewRunController(unwatched *UnwatchedController, match *MatchController, deleter *DeleteController, opts RunOptions, out io.Writer, logger *logrus.Logger) *RunController {
	return &RunController{
		unwatched: unwatched,
		match:     match,
		deleter:   deleter,
		opts:      opts,
		out:       out,
		logger:    logger,
		now:       time.Now,
	}
}

// Run performs a single run. The watch cutoff is computed once here and held
// fixed for the entire run.
func (c *RunController) Run(ctx context.Context) error {
	started := c.now()
	cutoff := started.AddDate(0, 0, -c.opts.Days)

	items := c.unwatched.Resolve(ctx, cutoff)
	c.match.Correlate(ctx, items)

	movies, shows := splitByKind(items)
	if c.opts.SortBySize {
		sortBySize(movies)
		sortBySize(shows)
	}

	c.renderReport(started, movies, shows)

	if c.opts.DeleteMode == models.DeleteModeNone {
		return nil
	}

	// Movies first, then shows, so live deletions happen in report order.
	ordered := append(append([]*models.MediaItem{}, movies...), shows...)
	summary, err := c.deleter.Process(ctx, ordered)
	if summary != nil {
		c.renderSummary(summary)
	}
	if err != nil && !errors.Is(err, ErrQuit) {
		return fmt.Errorf("deletion pass failed: %w", err)
	}
	return err
}

// renderReport prints the unwatched media report
func (c *RunController) renderReport(started time.Time, movies, shows []*models.MediaItem) {
	fmt.Fprintf(c.out, "\nUNWATCHED MEDIA REPORT (%s)\n", started.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(c.out, "Not watched in the last %d days\n", c.opts.Days)

	c.renderKind("MOVIES", movies)
	c.renderKind("SHOWS", shows)

	total := totalSize(movies) + totalSize(shows)
	fmt.Fprintf(c.out, "\nTOTAL UNWATCHED MEDIA SIZE: %s\n", utils.FormatBytes(total))
}

func (c *RunController) renderKind(label string, items []*models.MediaItem) {
	fmt.Fprintf(c.out, "\nUNWATCHED %s (%d) - Total size: %s\n", label, len(items), utils.FormatBytes(totalSize(items)))
	if len(items) == 0 {
		return
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(c.out)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"#", "Title", "Library", "Size"})
	for i, item := range items {
		size := ""
		if item.Size > 0 {
			size = utils.FormatBytes(item.Size)
		}
		tw.AppendRow(table.Row{i + 1, item.Name, item.Library, size})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
	})
	tw.Render()
}

// renderSummary prints the deletion summary, labeled explicitly so a dry run
// cannot be mistaken for real deletions
func (c *RunController) renderSummary(summary *models.DeletionSummary) {
	if summary.DryRun {
		fmt.Fprintln(c.out, "\nDRY RUN SUMMARY - What would be deleted:")
	} else {
		fmt.Fprintln(c.out, "\nDELETION SUMMARY:")
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(c.out)
	tw.SetStyle(table.StyleLight)
	tw.AppendRow(table.Row{"Movies", summary.MovieCount, utils.FormatBytes(summary.MovieBytes)})
	tw.AppendRow(table.Row{"Shows", summary.ShowCount, utils.FormatBytes(summary.ShowBytes)})
	tw.AppendFooter(table.Row{"Total", summary.TotalCount(), utils.FormatBytes(summary.TotalBytes())})
	tw.Render()

	if summary.FailedCount > 0 {
		fmt.Fprintf(c.out, "Failed deletions: %d\n", summary.FailedCount)
	}
}

func splitByKind(items []*models.MediaItem) (movies, shows []*models.MediaItem) {
	for _, item := range items {
		switch item.Kind {
		case models.MediaKindMovie:
			movies = append(movies, item)
		case models.MediaKindSeries:
			shows = append(shows, item)
		}
	}
	return movies, shows
}

func sortBySize(items []*models.MediaItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Size > items[j].Size
	})
}

func totalSize(items []*models.MediaItem) int64 {
	var total int64
	for _, item := range items {
		total += item.Size
	}
	return total
}
