package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
)

var (
	ErrRecordNotFound      = errors.New("rating record not found")
	ErrPersistenceConflict = errors.New("rating record was modified concurrently")
	ErrPersistenceTimeout  = errors.New("persistence call exceeded its deadline")
)

// translate maps driver errors onto the store's error kinds.
func translate(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrRecordNotFound
	case errors.Is(err, context.DeadlineExceeded), mongo.IsTimeout(err):
		return fmt.Errorf("%s: %w: %v", op, ErrPersistenceTimeout, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
