package store

import (
	"testing"
	"time"

	"rating-engine/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestEnqueueUpdate_SetsHistoryOnExistingRow(t *testing.T) {
	entry := &models.RatingHistoryEntry{MatchID: "m1", PlayerID: "bob", Delta: -24}
	doc := enqueueUpdate(&models.PendingRatingUpdate{
		MatchID:  "m1",
		PlayerID: "bob",
		History:  entry,
	}, testNow)

	set, ok := doc["$set"].(bson.M)
	require.True(t, ok)
	assert.Same(t, entry, set["history"])

	insert, ok := doc["$setOnInsert"].(bson.M)
	require.True(t, ok)
	assert.NotContains(t, insert, "history")
	assert.Equal(t, 0, insert["attempts"])
}

func TestEnqueueUpdate_KeepsStoredHistoryWhenNoneGiven(t *testing.T) {
	doc := enqueueUpdate(&models.PendingRatingUpdate{MatchID: "m1", PlayerID: "bob"}, testNow)

	set := doc["$set"].(bson.M)
	assert.NotContains(t, set, "history")
	assert.NotContains(t, doc["$setOnInsert"].(bson.M), "history")
}

func TestRescheduleUpdate(t *testing.T) {
	next := testNow.Add(time.Minute)
	entry := &models.RatingHistoryEntry{MatchID: "m1", PlayerID: "bob"}

	doc := rescheduleUpdate(next, "transient", "timeout", entry, testNow)
	set := doc["$set"].(bson.M)
	assert.Equal(t, next, set["nextAttemptAt"])
	assert.Same(t, entry, set["history"])
	assert.Equal(t, bson.M{"attempts": 1}, doc["$inc"])

	doc = rescheduleUpdate(next, "transient", "timeout", nil, testNow)
	assert.NotContains(t, doc["$set"].(bson.M), "history")
}

func TestStatusUpdate_DoesNotCountAttempt(t *testing.T) {
	applied := statusUpdate(models.PendingStatusApplied, bson.M{}, testNow)
	assert.NotContains(t, applied, "$inc")
	assert.Equal(t, models.PendingStatusApplied, applied["$set"].(bson.M)["status"])

	abandoned := statusUpdate(models.PendingStatusAbandoned, bson.M{"lastError": "gone"}, testNow)
	assert.NotContains(t, abandoned, "$inc")
	assert.Equal(t, "gone", abandoned["$set"].(bson.M)["lastError"])
}
