package controllers

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"sweeparr/internal/models"
	"sweeparr/internal/utils"
)

// ErrQuit is returned when the operator quits the interactive prompt. The
// process exits cleanly without processing further items.
var ErrQuit = errors.New("deletion stopped by operator")

type promptAnswer int

const (
	answerNo promptAnswer = iota
	answerYes
	answerQuit
)

// DeleteController applies the deletion policy to correlated unwatched items.
// Each eligible item ends up skipped, deleted or failed; a single failure
// never aborts the batch.
type DeleteController struct {
	sonarr      Catalog
	radarr      Catalog
	mode        models.DeleteMode
	deleteFiles bool
	dryRun      bool
	in          *bufio.Reader
	out         io.Writer
	logger      *logrus.Logger
}

// NewDeleteController creates a new delete controller. The mode passed here
// is final: incompatible combinations are downgraded at configuration time,
// before any item is evaluated.
func NewDeleteController(sonarr, radarr Catalog, mode models.DeleteMode, deleteFiles, dryRun bool, in io.Reader, out io.Writer, logger *logrus.Logger) *DeleteController {
	return &DeleteController{
		sonarr:      sonarr,
		radarr:      radarr,
		mode:        mode,
		deleteFiles: deleteFiles,
		dryRun:      dryRun,
		in:          bufio.NewReader(in),
		out:         out,
		logger:      logger,
	}
}

// Process walks the correlated items and deletes them according to the
// policy. It returns ErrQuit when the operator quits interactively; the
// summary collected so far is still valid.
func (c *DeleteController) Process(ctx context.Context, items []*models.MediaItem) (*models.DeletionSummary, error) {
	summary := &models.DeletionSummary{DryRun: c.dryRun}

	for _, item := range items {
		if !item.Deletable() {
			continue
		}

		switch c.mode {
		case models.DeleteModeNone:
			summary.SkippedCount++
			continue
		case models.DeleteModeAll:
			// Confirmed automatically.
		case models.DeleteModeInteractive:
			answer, err := c.prompt(item)
			if err != nil {
				return summary, fmt.Errorf("prompt failed: %w", err)
			}
			switch answer {
			case answerQuit:
				c.logger.Info("Operator quit the deletion process")
				summary.Quit = true
				return summary, ErrQuit
			case answerNo:
				summary.SkippedCount++
				c.logger.WithFields(logrus.Fields{
					"item":  item.Name,
					"state": models.DeleteStateSkipped,
				}).Debug("Skipped item")
				continue
			}
		}

		c.deleteItem(ctx, item, summary)
	}

	return summary, nil
}

// deleteItem moves a confirmed item to deleted or failed
func (c *DeleteController) deleteItem(ctx context.Context, item *models.MediaItem, summary *models.DeletionSummary) {
	size := utils.FormatBytes(item.Size)

	if c.dryRun {
		fmt.Fprintf(c.out, "Would delete: %s - %s\n", item.Name, size)
		c.tally(item, summary)
		return
	}

	fmt.Fprintf(c.out, "Deleting: %s - %s\n", item.Name, size)
	if err := c.catalogFor(item.Kind).Delete(ctx, item.ArrID, c.deleteFiles); err != nil {
		summary.FailedCount++
		c.logger.WithError(err).WithFields(logrus.Fields{
			"item":  item.Name,
			"id":    item.ArrID,
			"state": models.DeleteStateFailed,
		}).Error("Failed to delete item")
		fmt.Fprintf(c.out, "Failed to delete: %s\n", item.Name)
		return
	}

	c.tally(item, summary)
	c.logger.WithFields(logrus.Fields{
		"item":  item.Name,
		"id":    item.ArrID,
		"size":  size,
		"state": models.DeleteStateDeleted,
	}).Info("Deleted item")
}

func (c *DeleteController) tally(item *models.MediaItem, summary *models.DeletionSummary) {
	switch item.Kind {
	case models.MediaKindMovie:
		summary.MovieCount++
		summary.MovieBytes += item.Size
	case models.MediaKindSeries:
		summary.ShowCount++
		summary.ShowBytes += item.Size
	}
}

func (c *DeleteController) catalogFor(kind models.MediaKind) Catalog {
	if kind == models.MediaKindMovie {
		return c.radarr
	}
	return c.sonarr
}

// prompt asks the operator to confirm deletion of a single item. It blocks
// until a valid answer is read.
func (c *DeleteController) prompt(item *models.MediaItem) (promptAnswer, error) {
	kind := "Movie"
	if item.Kind == models.MediaKindSeries {
		kind = "Show"
	}

	for {
		fmt.Fprintf(c.out, "Delete %s '%s' (%s)? [y/n/q]: ", kind, item.Name, utils.FormatBytes(item.Size))

		line, err := c.in.ReadString('\n')
		if err != nil && line == "" {
			return answerNo, err
		}

		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return answerYes, nil
		case "n", "no":
			return answerNo, nil
		case "q", "quit":
			return answerQuit, nil
		default:
			fmt.Fprintln(c.out, "Please enter 'y' for yes, 'n' for no, or 'q' to quit.")
		}
	}
}
