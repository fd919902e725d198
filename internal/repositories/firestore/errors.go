package firestore

import (
	"errors"

	"google.golang.org/api/iterator"

	platformfs "github.com/heshammera/orderly-shop-sub002/internal/platform/firestore"
	"github.com/heshammera/orderly-shop-sub002/internal/repositories"
)

func isIteratorDone(err error) bool {
	return errors.Is(err, iterator.Done)
}

// classify maps a raw Firestore error onto the repository error taxonomy.
func classify(msg string, err error) repositories.RepositoryError {
	switch {
	case platformfs.IsNotFound(err):
		return repositories.NewNotFoundError(msg, err)
	case platformfs.IsAlreadyExists(err), platformfs.IsAborted(err):
		return repositories.NewConflictError(msg, err)
	case platformfs.IsUnavailable(err):
		return repositories.NewUnavailableError(msg, err)
	default:
		return repositories.NewInternalError(msg, err)
	}
}
