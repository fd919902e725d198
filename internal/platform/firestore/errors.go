package firestore

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// IsNotFound reports whether the error is a Firestore missing-document error.
func IsNotFound(err error) bool {
	return hasCode(err, codes.NotFound)
}

// IsAlreadyExists reports whether the error indicates a document collision.
func IsAlreadyExists(err error) bool {
	return hasCode(err, codes.AlreadyExists)
}

// IsAborted reports whether a transaction was aborted due to contention.
func IsAborted(err error) bool {
	return hasCode(err, codes.Aborted)
}

// IsUnavailable reports whether the backend was temporarily unreachable.
func IsUnavailable(err error) bool {
	return hasCode(err, codes.Unavailable) || hasCode(err, codes.DeadlineExceeded)
}

func hasCode(err error, code codes.Code) bool {
	if err == nil {
		return false
	}
	for {
		if st, ok := status.FromError(err); ok && st.Code() == code {
			return true
		}
		if err = errors.Unwrap(err); err == nil {
			return false
		}
	}
}
