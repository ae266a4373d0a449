package labtest

import "github.com/hms/hms/internal/platform/recordstore"

type Repository = recordstore.Repository[LabTest]

func NewRepository(store recordstore.Store) Repository {
	return recordstore.NewRepository(store, Codec)
}
