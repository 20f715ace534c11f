package audit

import (
	"context"
	"log"
	"net/http"
	"time"

	"rating-engine/internal/db"
	"rating-engine/internal/middleware"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Event types for audit logging
const (
	EventRatingUpdateFailed    = "rating_update_failed"
	EventRatingUpdateAbandoned = "rating_update_abandoned"
	EventOutcomeRejected       = "match_outcome_rejected"
	EventServiceAuthFailed     = "service_auth_failed"
)

// AuditEvent represents an event worth keeping after the logs roll over.
type AuditEvent struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	EventType string             `bson:"eventType"`
	MatchID   string             `bson:"matchId,omitempty"`
	PlayerID  string             `bson:"playerId,omitempty"`
	IP        string             `bson:"ip,omitempty"`
	UserAgent string             `bson:"userAgent,omitempty"`
	Details   string             `bson:"details,omitempty"`
	CreatedAt time.Time          `bson:"createdAt"`
}

// Logger writes audit events to the audit_log collection.
type Logger struct {
	db *db.MongoDB
}

func New(database *db.MongoDB) *Logger {
	return &Logger{db: database}
}

// LogEvent writes an event about a match or player (fire-and-forget).
func (l *Logger) LogEvent(eventType, matchID, playerID, details string) {
	l.write(AuditEvent{
		EventType: eventType,
		MatchID:   matchID,
		PlayerID:  playerID,
		Details:   details,
		CreatedAt: time.Now(),
	})
}

// LogRequest writes an event tied to an incoming HTTP request (fire-and-forget).
func (l *Logger) LogRequest(eventType string, r *http.Request, details string) {
	l.write(AuditEvent{
		EventType: eventType,
		IP:        middleware.GetClientIP(r),
		UserAgent: r.UserAgent(),
		Details:   details,
		CreatedAt: time.Now(),
	})
}

func (l *Logger) write(event AuditEvent) {
	if l == nil || l.db == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := l.db.AuditLog().InsertOne(ctx, event); err != nil {
			log.Printf("Audit log write failed: %v", err)
		}
	}()
}
