package department

import "github.com/hms/hms/internal/platform/recordstore"

type Repository = recordstore.Repository[Department]

func NewRepository(store recordstore.Store) Repository {
	return recordstore.NewRepository(store, Codec)
}
