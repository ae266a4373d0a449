package staff

import "github.com/hms/hms/internal/platform/recordstore"

type Repository = recordstore.Repository[Member]

func NewRepository(store recordstore.Store) Repository {
	return recordstore.NewRepository(store, Codec)
}
