package patient

import "github.com/hms/hms/internal/platform/recordstore"

// Repository persists patients.
type Repository = recordstore.Repository[Patient]

// NewRepository returns a patient repository over store.
func NewRepository(store recordstore.Store) Repository {
	return recordstore.NewRepository(store, Codec)
}
