package emby

import (
	"context"
	"fmt"
	"net/url"

	"github.com/sirupsen/logrus"
)

// Libraries fetches all media libraries from the server
func (c *Client) Libraries(ctx context.Context) ([]Library, error) {
	c.logger.Debug("Fetching media libraries")

	var libraries []Library
	if err := c.get(ctx, "/emby/Library/VirtualFolders", nil, &libraries); err != nil {
		return nil, fmt.Errorf("failed to fetch libraries: %w", err)
	}

	c.logger.WithField("count", len(libraries)).Debug("Fetched libraries")
	return libraries, nil
}

// Users fetches all accounts from the server
func (c *Client) Users(ctx context.Context) ([]User, error) {
	c.logger.Debug("Fetching users")

	var users []User
	if err := c.get(ctx, "/emby/Users", nil, &users); err != nil {
		return nil, fmt.Errorf("failed to fetch users: %w", err)
	}

	c.logger.WithField("count", len(users)).Debug("Fetched users")
	return users, nil
}

// Items fetches all movies and series of a library
func (c *Client) Items(ctx context.Context, libraryID string) ([]Item, error) {
	c.logger.WithField("library_id", libraryID).Debug("Fetching library items")

	params := url.Values{}
	params.Set("ParentId", libraryID)
	params.Set("Recursive", "true")
	params.Set("IncludeItemTypes", "Movie,Series")
	params.Set("Fields", "DateLastPlayed,Path,Overview,DateCreated")
	params.Set("SortBy", "DateCreated,SortName")
	params.Set("SortOrder", "Descending")

	var resp itemsResponse
	if err := c.get(ctx, "/emby/Items", params, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch items from library %s: %w", libraryID, err)
	}
	return resp.Items, nil
}

// UserItems fetches all movies and series of a library with a user's watch state
func (c *Client) UserItems(ctx context.Context, userID, libraryID string) ([]Item, error) {
	c.logger.WithFields(logrus.Fields{
		"library_id": libraryID,
		"user_id":    userID,
	}).Debug("Fetching library items for user")

	params := url.Values{}
	params.Set("ParentId", libraryID)
	params.Set("Recursive", "true")
	params.Set("IncludeItemTypes", "Movie,Series")
	params.Set("Fields", "DateLastPlayed,Path,Overview,UserData")
	params.Set("SortBy", "DateCreated,SortName")
	params.Set("SortOrder", "Descending")

	var resp itemsResponse
	if err := c.get(ctx, "/emby/Users/"+userID+"/Items", params, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch items from library %s for user %s: %w", libraryID, userID, err)
	}
	return resp.Items, nil
}

// Episodes fetches all episodes of a series, newest first
func (c *Client) Episodes(ctx context.Context, seriesID string) ([]Item, error) {
	c.logger.WithField("series_id", seriesID).Debug("Fetching series episodes")

	params := url.Values{}
	params.Set("ParentId", seriesID)
	params.Set("Recursive", "true")
	params.Set("IncludeItemTypes", "Episode")
	params.Set("Fields", "DateLastPlayed,Path,Overview,UserData,DateCreated")
	params.Set("SortBy", "DateCreated")
	params.Set("SortOrder", "Descending")

	var resp itemsResponse
	if err := c.get(ctx, "/emby/Items", params, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch episodes for series %s: %w", seriesID, err)
	}
	return resp.Items, nil
}

// UserEpisodes fetches all episodes of a series with a user's watch state
func (c *Client) UserEpisodes(ctx context.Context, userID, seriesID string) ([]Item, error) {
	c.logger.WithFields(logrus.Fields{
		"series_id": seriesID,
		"user_id":   userID,
	}).Debug("Fetching series episodes for user")

	params := url.Values{}
	params.Set("ParentId", seriesID)
	params.Set("Recursive", "true")
	params.Set("IncludeItemTypes", "Episode")
	params.Set("Fields", "DateLastPlayed,Path,Overview,UserData")
	params.Set("SortBy", "SortName")
	params.Set("SortOrder", "Ascending")

	var resp itemsResponse
	if err := c.get(ctx, "/emby/Users/"+userID+"/Items", params, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch episodes for series %s for user %s: %w", seriesID, userID, err)
	}
	return resp.Items, nil
}
