package billing

import "github.com/hms/hms/internal/platform/recordstore"

type Repository = recordstore.Repository[Bill]

func NewRepository(store recordstore.Store) Repository {
	return recordstore.NewRepository(store, Codec)
}
