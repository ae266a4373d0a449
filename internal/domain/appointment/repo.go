package appointment

import "github.com/hms/hms/internal/platform/recordstore"

type Repository = recordstore.Repository[Appointment]

func NewRepository(store recordstore.Store) Repository {
	return recordstore.NewRepository(store, Codec)
}
