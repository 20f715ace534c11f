package utils

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var namePattern = regexp.MustCompile(`^[A-Z][a-z]+[A-Z][a-z]+\d+$`)

func TestGenerateRoomName(t *testing.T) {
	for i := 0; i < 20; i++ {
		assert.Regexp(t, namePattern, GenerateRoomName())
	}
}

func TestGenerateUniqueRoomName_SkipsTaken(t *testing.T) {
	calls := 0
	name, err := GenerateUniqueRoomName(context.Background(), func(ctx context.Context, name string) (bool, error) {
		calls++
		return calls < 3, nil
	})
	require.NoError(t, err)
	assert.Regexp(t, namePattern, name)
	assert.Equal(t, 3, calls)
}

func TestGenerateUniqueRoomName_Errors(t *testing.T) {
	lookupErr := errors.New("db down")
	_, err := GenerateUniqueRoomName(context.Background(), func(ctx context.Context, name string) (bool, error) {
		return false, lookupErr
	})
	assert.ErrorIs(t, err, lookupErr)

	_, err = GenerateUniqueRoomName(context.Background(), func(ctx context.Context, name string) (bool, error) {
		return true, nil
	})
	assert.Error(t, err)
}
