package controllers

import (
	"context"

	"github.com/sirupsen/logrus"

	"sweeparr/internal/models"
	"sweeparr/internal/utils"
)

// MatchController links unwatched items to their Sonarr/Radarr records to
// obtain size on disk and a delete handle. Matching is best effort; items
// without a match stay in the report but cannot be deleted.
type MatchController struct {
	sonarr Catalog // nil when Sonarr is not configured
	radarr Catalog // nil when Radarr is not configured
	logger *logrus.Logger
}

// NewMatchController creates a new match controller
func NewMatchController(sonarr, radarr Catalog, logger *logrus.Logger) *MatchController {
	return &MatchController{
		sonarr: sonarr,
		radarr: radarr,
		logger: logger,
	}
}

// Correlate fills ArrID and Size on each item from the relevant catalog
func (c *MatchController) Correlate(ctx context.Context, items []*models.MediaItem) {
	for _, item := range items {
		catalog := c.catalogFor(item.Kind)
		if catalog == nil {
			continue
		}

		entry, err := catalog.FindByTitle(ctx, item.Name)
		if err != nil {
			c.logger.WithError(err).WithField("item", item.Name).Warn("Catalog lookup failed")
			continue
		}
		if entry == nil {
			c.logger.WithField("item", item.Name).Debug("No catalog match")
			continue
		}

		item.ArrID = entry.ID
		item.Size = entry.SizeOnDisk
		c.logger.WithFields(logrus.Fields{
			"item": item.Name,
			"id":   entry.ID,
			"size": utils.FormatBytes(entry.SizeOnDisk),
		}).Debug("Matched catalog entry")
	}
}

func (c *MatchController) catalogFor(kind models.MediaKind) Catalog {
	switch kind {
	case models.MediaKindMovie:
		return c.radarr
	case models.MediaKindSeries:
		return c.sonarr
	}
	return nil
}
