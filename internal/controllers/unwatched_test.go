package controllers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sweeparr/internal/models"
	"sweeparr/internal/services/emby"
)

var cutoff = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func ts(t time.Time) *emby.Time {
	return &emby.Time{Time: t}
}

func daysBefore(n int) time.Time {
	return cutoff.AddDate(0, 0, -n)
}

func daysAfter(n int) time.Time {
	return cutoff.AddDate(0, 0, n)
}

// fakeServer is an in-memory MediaServer
type fakeServer struct {
	libraries []emby.Library
	users     []emby.User

	items        map[string][]emby.Item // library id -> items
	userItems    map[string][]emby.Item // user id + "/" + library id -> items
	episodes     map[string][]emby.Item // series id -> episodes
	userEpisodes map[string][]emby.Item // user id + "/" + series id -> episodes

	failItemsFor string // library id whose Items call fails
	episodeCalls int
}

func (f *fakeServer) Libraries(ctx context.Context) ([]emby.Library, error) {
	return f.libraries, nil
}

func (f *fakeServer) Users(ctx context.Context) ([]emby.User, error) {
	return f.users, nil
}

func (f *fakeServer) Items(ctx context.Context, libraryID string) ([]emby.Item, error) {
	if libraryID == f.failItemsFor {
		return nil, errors.New("connection refused")
	}
	return f.items[libraryID], nil
}

func (f *fakeServer) UserItems(ctx context.Context, userID, libraryID string) ([]emby.Item, error) {
	return f.userItems[userID+"/"+libraryID], nil
}

func (f *fakeServer) Episodes(ctx context.Context, seriesID string) ([]emby.Item, error) {
	f.episodeCalls++
	return f.episodes[seriesID], nil
}

func (f *fakeServer) UserEpisodes(ctx context.Context, userID, seriesID string) ([]emby.Item, error) {
	f.episodeCalls++
	return f.userEpisodes[userID+"/"+seriesID], nil
}

func names(items []*models.MediaItem) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.Name)
	}
	return out
}

func TestResolveCutoffScenario(t *testing.T) {
	server := &fakeServer{
		libraries: []emby.Library{{ID: "lib1", Name: "Movies"}},
		items: map[string][]emby.Item{
			"lib1": {
				{ID: "a", Name: "A", Type: "Movie", DateCreated: ts(daysBefore(200)), DateLastPlayed: ts(daysBefore(1))},
				{ID: "b", Name: "B", Type: "Movie", DateCreated: ts(daysBefore(200)), DateLastPlayed: ts(daysAfter(80))},
				{ID: "c", Name: "C", Type: "Movie", DateCreated: ts(daysBefore(30))},
				{ID: "d", Name: "D", Type: "Movie", DateCreated: ts(daysAfter(85))},
			},
		},
	}

	ctrl := NewUnwatchedController(server, UnwatchedOptions{}, testLogger())
	result := ctrl.Resolve(context.Background(), cutoff)

	assert.ElementsMatch(t, []string{"A", "C"}, names(result))

	for _, item := range result {
		assert.Equal(t, "Movies", item.Library)
	}
}

func TestResolveCreatedOnCutoffIsRecent(t *testing.T) {
	server := &fakeServer{
		libraries: []emby.Library{{ID: "lib1", Name: "Movies"}},
		items: map[string][]emby.Item{
			"lib1": {
				{ID: "x", Name: "Boundary", Type: "Movie", DateCreated: ts(cutoff)},
			},
		},
	}

	ctrl := NewUnwatchedController(server, UnwatchedOptions{}, testLogger())
	assert.Empty(t, ctrl.Resolve(context.Background(), cutoff))

	// Played exactly at the cutoff is also not stale enough.
	server.items["lib1"] = []emby.Item{
		{ID: "y", Name: "PlayedAtCutoff", Type: "Movie", DateCreated: ts(daysBefore(200)), DateLastPlayed: ts(cutoff)},
	}
	assert.Empty(t, ctrl.Resolve(context.Background(), cutoff))
}

func TestResolveIncludeRecentKeepsNewItems(t *testing.T) {
	server := &fakeServer{
		libraries: []emby.Library{{ID: "lib1", Name: "Movies"}},
		items: map[string][]emby.Item{
			"lib1": {
				{ID: "d", Name: "D", Type: "Movie", DateCreated: ts(daysAfter(5))},
			},
		},
	}

	ctrl := NewUnwatchedController(server, UnwatchedOptions{IncludeRecent: true}, testLogger())
	assert.ElementsMatch(t, []string{"D"}, names(ctrl.Resolve(context.Background(), cutoff)))
}

func TestResolveWhitelistEpisodeRollup(t *testing.T) {
	series := emby.Item{ID: "s1", Name: "Severance", Type: "Series", DateCreated: ts(daysBefore(300))}

	server := &fakeServer{
		libraries: []emby.Library{{ID: "lib1", Name: "TV"}},
		users:     []emby.User{{ID: "u1", Name: "Alice"}},
		items:     map[string][]emby.Item{"lib1": {series}},
		userItems: map[string][]emby.Item{
			// Series-level record untouched by Alice.
			"u1/lib1": {{ID: "s1", Name: "Severance", Type: "Series", UserData: &emby.UserData{}}},
		},
		userEpisodes: map[string][]emby.Item{
			"u1/s1": {
				{ID: "e1", Name: "Ep 1", Type: "Episode", UserData: &emby.UserData{Played: true}},
			},
		},
	}

	// Case-insensitive whitelist match.
	ctrl := NewUnwatchedController(server, UnwatchedOptions{Whitelist: []string{"alice"}}, testLogger())
	assert.Empty(t, ctrl.Resolve(context.Background(), cutoff), "series with a whitelisted episode watch must be excluded")
}

func TestResolveWhitelistSeriesLevelWatch(t *testing.T) {
	server := &fakeServer{
		libraries: []emby.Library{{ID: "lib1", Name: "TV"}},
		users:     []emby.User{{ID: "u1", Name: "Alice"}},
		items: map[string][]emby.Item{
			"lib1": {
				{ID: "s1", Name: "Watched", Type: "Series", DateCreated: ts(daysBefore(300))},
				{ID: "s2", Name: "Stale", Type: "Series", DateCreated: ts(daysBefore(300))},
			},
		},
		userItems: map[string][]emby.Item{
			"u1/lib1": {
				{ID: "s1", Name: "Watched", Type: "Series", UserData: &emby.UserData{PlayedPercentage: 80}},
				{ID: "s2", Name: "Stale", Type: "Series", UserData: &emby.UserData{PlayedPercentage: 10}},
			},
		},
	}

	ctrl := NewUnwatchedController(server, UnwatchedOptions{Whitelist: []string{"Alice"}}, testLogger())
	assert.ElementsMatch(t, []string{"Stale"}, names(ctrl.Resolve(context.Background(), cutoff)))
}

func TestResolveSeriesRecencyVetoes(t *testing.T) {
	server := &fakeServer{
		libraries: []emby.Library{{ID: "lib1", Name: "TV"}},
		items: map[string][]emby.Item{
			"lib1": {
				{ID: "s1", Name: "RecentlyWatched", Type: "Series", DateCreated: ts(daysBefore(300))},
				{ID: "s2", Name: "RecentlyGrown", Type: "Series", DateCreated: ts(daysBefore(300))},
				{ID: "s3", Name: "Stale", Type: "Series", DateCreated: ts(daysBefore(300))},
			},
		},
		episodes: map[string][]emby.Item{
			"s1": {{ID: "e1", Type: "Episode", DateLastPlayed: ts(daysAfter(2)), DateCreated: ts(daysBefore(100))}},
			"s2": {{ID: "e2", Type: "Episode", DateCreated: ts(daysAfter(3))}},
			"s3": {{ID: "e3", Type: "Episode", DateCreated: ts(daysBefore(100)), DateLastPlayed: ts(daysBefore(95))}},
		},
	}

	ctrl := NewUnwatchedController(server, UnwatchedOptions{}, testLogger())
	assert.ElementsMatch(t, []string{"Stale"}, names(ctrl.Resolve(context.Background(), cutoff)))

	// Allowing recently grown series keeps s2.
	ctrl = NewUnwatchedController(server, UnwatchedOptions{IgnoreRecentEpisodes: true}, testLogger())
	assert.ElementsMatch(t, []string{"RecentlyGrown", "Stale"}, names(ctrl.Resolve(context.Background(), cutoff)))
}

func TestResolveIgnoreEpisodesSkipsQueries(t *testing.T) {
	server := &fakeServer{
		libraries: []emby.Library{{ID: "lib1", Name: "TV"}},
		items: map[string][]emby.Item{
			"lib1": {{ID: "s1", Name: "Show", Type: "Series", DateCreated: ts(daysBefore(300))}},
		},
		episodes: map[string][]emby.Item{
			"s1": {{ID: "e1", Type: "Episode", DateLastPlayed: ts(daysAfter(2))}},
		},
	}

	ctrl := NewUnwatchedController(server, UnwatchedOptions{IgnoreEpisodes: true}, testLogger())
	result := ctrl.Resolve(context.Background(), cutoff)

	assert.ElementsMatch(t, []string{"Show"}, names(result))
	assert.Zero(t, server.episodeCalls, "episode endpoints must not be queried")
}

func TestResolveLibraryFilter(t *testing.T) {
	server := &fakeServer{
		libraries: []emby.Library{
			{ID: "lib1", Name: "Movies"},
			{ID: "lib2", Name: "TV"},
		},
		items: map[string][]emby.Item{
			"lib1": {{ID: "m1", Name: "Old Movie", Type: "Movie", DateCreated: ts(daysBefore(300))}},
			"lib2": {{ID: "s1", Name: "Old Show", Type: "Series", DateCreated: ts(daysBefore(300))}},
		},
	}

	ctrl := NewUnwatchedController(server, UnwatchedOptions{Libraries: []string{"Movies"}, IgnoreEpisodes: true}, testLogger())
	assert.ElementsMatch(t, []string{"Old Movie"}, names(ctrl.Resolve(context.Background(), cutoff)))

	// Filter matching nothing fails soft with an empty result.
	ctrl = NewUnwatchedController(server, UnwatchedOptions{Libraries: []string{"movies"}}, testLogger())
	assert.Empty(t, ctrl.Resolve(context.Background(), cutoff), "library match is case-sensitive and exact")
}

func TestResolveSurvivesFlakyLibrary(t *testing.T) {
	server := &fakeServer{
		libraries: []emby.Library{
			{ID: "lib1", Name: "Movies"},
			{ID: "lib2", Name: "More Movies"},
		},
		items: map[string][]emby.Item{
			"lib2": {{ID: "m2", Name: "Survivor", Type: "Movie", DateCreated: ts(daysBefore(300))}},
		},
		failItemsFor: "lib1",
	}

	ctrl := NewUnwatchedController(server, UnwatchedOptions{}, testLogger())
	result := ctrl.Resolve(context.Background(), cutoff)

	require.Len(t, result, 1)
	assert.Equal(t, "Survivor", result[0].Name)
}

func TestResolveUnknownWhitelistedUserIsLoggedNotFatal(t *testing.T) {
	server := &fakeServer{
		libraries: []emby.Library{{ID: "lib1", Name: "Movies"}},
		users:     []emby.User{{ID: "u1", Name: "Alice"}},
		items: map[string][]emby.Item{
			"lib1": {{ID: "m1", Name: "Old Movie", Type: "Movie", DateCreated: ts(daysBefore(300))}},
		},
	}

	ctrl := NewUnwatchedController(server, UnwatchedOptions{Whitelist: []string{"Bob"}}, testLogger())
	assert.ElementsMatch(t, []string{"Old Movie"}, names(ctrl.Resolve(context.Background(), cutoff)))
}
