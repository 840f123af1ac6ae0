package controllers

import (
	"context"

	"sweeparr/internal/services/arr"
	"sweeparr/internal/services/emby"
)

// MediaServer is the query surface of the media server. It carries no
// business logic; every method is a single read.
type MediaServer interface {
	Libraries(ctx context.Context) ([]emby.Library, error)
	Users(ctx context.Context) ([]emby.User, error)
	Items(ctx context.Context, libraryID string) ([]emby.Item, error)
	UserItems(ctx context.Context, userID, libraryID string) ([]emby.Item, error)
	Episodes(ctx context.Context, seriesID string) ([]emby.Item, error)
	UserEpisodes(ctx context.Context, userID, seriesID string) ([]emby.Item, error)
}

// Catalog is a companion catalog keyed by title, used to obtain size on disk
// and a delete handle for unwatched items.
type Catalog interface {
	FindByTitle(ctx context.Context, title string) (*arr.Entry, error)
	Delete(ctx context.Context, id int64, deleteFiles bool) error
}

var (
	_ MediaServer = (*emby.Client)(nil)
	_ Catalog     = (*arr.Client)(nil)
)
