package controllers

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"sweeparr/internal/models"
	"sweeparr/internal/services/emby"
)

// UnwatchedOptions tune the watch-state resolution
type UnwatchedOptions struct {
	Whitelist            []string // Users whose watch history exempts items
	Libraries            []string // Library names to check, empty means all
	IgnoreEpisodes       bool     // Never query episode watch state
	IgnoreRecentEpisodes bool     // Keep series that gained episodes recently
	IncludeRecent        bool     // Keep recently added items in the result
}

// UnwatchedController computes the set of items unwatched by everyone except
// whitelisted users, with series state rolled up over episodes
type UnwatchedController struct {
	server MediaServer
	opts   UnwatchedOptions
	logger *logrus.Logger
}

// NewUnwatchedController creates a new unwatched controller
func NewUnwatchedController(server MediaServer, opts UnwatchedOptions, logger *logrus.Logger) *UnwatchedController {
	return &UnwatchedController{
		server: server,
		opts:   opts,
		logger: logger,
	}
}

// Resolve returns every movie and series not watched since the cutoff. The
// cutoff is computed once by the caller and held fixed for the whole run.
// Query failures degrade to empty results for that call so one flaky endpoint
// does not prevent reporting on the libraries that did respond.
func (c *UnwatchedController) Resolve(ctx context.Context, cutoff time.Time) []*models.MediaItem {
	c.logger.WithField("cutoff", cutoff.Format(time.RFC3339)).Info("Resolving unwatched items")

	libraries := c.activeLibraries(ctx)
	if len(libraries) == 0 {
		return nil
	}

	excluded := c.whitelistedWatched(ctx, libraries, cutoff)

	var unwatched []*models.MediaItem
	for _, library := range libraries {
		c.logger.WithField("library", library.Name).Info("Processing library")

		items, err := c.server.Items(ctx, library.ID)
		if err != nil {
			c.logger.WithError(err).WithField("library", library.Name).Error("Failed to fetch library items, skipping")
			continue
		}

		for _, item := range items {
			if _, ok := excluded[item.ID]; ok {
				c.logger.WithField("item", item.Name).Debug("Skipping, watched by whitelisted user")
				continue
			}
			if item.Type == string(models.MediaKindSeries) && c.seriesVetoed(ctx, item, cutoff) {
				continue
			}
			if !c.opts.IncludeRecent && item.DateCreated != nil && !item.DateCreated.Before(cutoff) {
				c.logger.WithField("item", item.Name).Debug("Skipping, recently added")
				continue
			}
			if item.DateLastPlayed != nil && !item.DateLastPlayed.Time.Before(cutoff) {
				continue
			}

			media := &models.MediaItem{
				ID:       item.ID,
				Name:     item.Name,
				Kind:     models.MediaKind(item.Type),
				Library:  library.Name,
				Overview: item.Overview,
			}
			if item.DateCreated != nil {
				media.Created = item.DateCreated.Time
			}
			if item.DateLastPlayed != nil {
				played := item.DateLastPlayed.Time
				media.LastPlayed = &played
			}
			unwatched = append(unwatched, media)
		}
	}

	c.logger.WithField("count", len(unwatched)).Info("Resolved unwatched items")
	return unwatched
}

// activeLibraries intersects the available libraries with the configured
// filter by exact name. A non-empty filter matching nothing yields an empty
// set rather than an error.
func (c *UnwatchedController) activeLibraries(ctx context.Context) []emby.Library {
	libraries, err := c.server.Libraries(ctx)
	if err != nil {
		c.logger.WithError(err).Error("Failed to fetch libraries")
		return nil
	}

	if len(c.opts.Libraries) == 0 {
		c.logger.WithField("count", len(libraries)).Info("Checking all available libraries")
		return libraries
	}

	wanted := make(map[string]struct{}, len(c.opts.Libraries))
	for _, name := range c.opts.Libraries {
		wanted[name] = struct{}{}
	}

	var filtered []emby.Library
	for _, library := range libraries {
		if _, ok := wanted[library.Name]; ok {
			filtered = append(filtered, library)
		}
	}

	if len(filtered) == 0 {
		available := make([]string, 0, len(libraries))
		for _, library := range libraries {
			available = append(available, library.Name)
		}
		c.logger.WithField("available", strings.Join(available, ", ")).Warn("None of the specified libraries were found")
		return nil
	}

	c.logger.WithField("count", len(filtered)).Info("Checking libraries based on filter")
	return filtered
}

// whitelistedWatched collects the ids of items whose watch state, for any
// whitelisted user, meets the watched predicate. Series are excluded when the
// series record or any of its episodes matches.
func (c *UnwatchedController) whitelistedWatched(ctx context.Context, libraries []emby.Library, cutoff time.Time) map[string]struct{} {
	excluded := make(map[string]struct{})
	userIDs := c.whitelistedUserIDs(ctx)
	if len(userIDs) == 0 {
		return excluded
	}

	c.logger.WithField("count", len(userIDs)).Info("Checking watch history of whitelisted users")

	for _, library := range libraries {
		for _, userID := range userIDs {
			items, err := c.server.UserItems(ctx, userID, library.ID)
			if err != nil {
				c.logger.WithError(err).WithFields(logrus.Fields{
					"library": library.Name,
					"user_id": userID,
				}).Error("Failed to fetch user items, skipping")
				continue
			}

			for _, item := range items {
				if watchedSince(item.UserData, cutoff) {
					c.logger.WithField("item", item.Name).Debug("Excluded, watched by whitelisted user")
					excluded[item.ID] = struct{}{}
				}
				if item.Type != string(models.MediaKindSeries) || c.opts.IgnoreEpisodes {
					continue
				}
				if _, ok := excluded[item.ID]; ok {
					continue
				}
				if c.anyEpisodeWatched(ctx, userID, item, cutoff) {
					excluded[item.ID] = struct{}{}
				}
			}
		}
	}

	c.logger.WithField("count", len(excluded)).Info("Found items watched by whitelisted users")
	return excluded
}

// whitelistedUserIDs maps the configured user names to server account ids,
// case-insensitively. Names with no match are logged and dropped.
func (c *UnwatchedController) whitelistedUserIDs(ctx context.Context) []string {
	if len(c.opts.Whitelist) == 0 {
		return nil
	}

	users, err := c.server.Users(ctx)
	if err != nil {
		c.logger.WithError(err).Error("Failed to fetch users")
		return nil
	}

	byName := make(map[string]string, len(users))
	for _, user := range users {
		byName[strings.ToLower(user.Name)] = user.ID
	}

	var ids []string
	for _, name := range c.opts.Whitelist {
		id, ok := byName[strings.ToLower(name)]
		if !ok {
			c.logger.WithField("user", name).Warn("Whitelisted user not found on the server")
			continue
		}
		c.logger.WithFields(logrus.Fields{
			"user":    name,
			"user_id": id,
		}).Info("Found whitelisted user")
		ids = append(ids, id)
	}
	return ids
}

// anyEpisodeWatched reports whether any episode of the series meets the
// watched predicate for the given user
func (c *UnwatchedController) anyEpisodeWatched(ctx context.Context, userID string, series emby.Item, cutoff time.Time) bool {
	episodes, err := c.server.UserEpisodes(ctx, userID, series.ID)
	if err != nil {
		c.logger.WithError(err).WithField("series", series.Name).Error("Failed to fetch user episodes, skipping")
		return false
	}
	for _, episode := range episodes {
		if watchedSince(episode.UserData, cutoff) {
			c.logger.WithFields(logrus.Fields{
				"series":  series.Name,
				"episode": episode.Name,
			}).Debug("Series excluded, episode watched by whitelisted user")
			return true
		}
	}
	return false
}

// seriesVetoed reports whether a series should be dropped from the result
// because any of its episodes was played after the cutoff, by anyone, or was
// added after the cutoff
func (c *UnwatchedController) seriesVetoed(ctx context.Context, series emby.Item, cutoff time.Time) bool {
	if c.opts.IgnoreEpisodes {
		return false
	}

	episodes, err := c.server.Episodes(ctx, series.ID)
	if err != nil {
		c.logger.WithError(err).WithField("series", series.Name).Error("Failed to fetch episodes, skipping check")
		return false
	}

	for _, episode := range episodes {
		if episode.DateLastPlayed != nil && episode.DateLastPlayed.After(cutoff) {
			c.logger.WithFields(logrus.Fields{
				"series":  series.Name,
				"episode": episode.Name,
			}).Debug("Series skipped, episode recently watched")
			return true
		}
		if !c.opts.IgnoreRecentEpisodes && episode.DateCreated != nil && episode.DateCreated.After(cutoff) {
			c.logger.WithFields(logrus.Fields{
				"series":  series.Name,
				"episode": episode.Name,
			}).Debug("Series skipped, episode recently added")
			return true
		}
	}
	return false
}

// watchedSince is the watched predicate: played after the cutoff, marked
// played, or played past 75 percent. The three-way OR tolerates servers that
// set only one of the fields.
func watchedSince(data *emby.UserData, cutoff time.Time) bool {
	if data == nil {
		return false
	}
	if data.LastPlayedDate != nil && data.LastPlayedDate.After(cutoff) {
		return true
	}
	if data.Played {
		return true
	}
	return data.PlayedPercentage > 75
}
