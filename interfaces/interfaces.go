// Package interfaces defines core abstractions for the PillGuide API
// to improve testability, maintainability, and separation of concerns.
package interfaces

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

// ModelClient defines the contract for invoking the hosted multimodal model.
// The reply is raw text with no guarantees: it may contain markdown fences,
// surrounding prose, or malformed JSON, and is treated as hostile input.
type ModelClient interface {
	// Generate sends a prompt (and an optional base64-encoded image) to the
	// model and returns its raw text reply.
	Generate(ctx context.Context, systemPrompt, userPrompt, imageBase64 string) (string, error)
}

// DocumentStore defines the contract for document persistence. There are no
// transactions and no schema enforcement; callers enforce document shape.
type DocumentStore interface {
	Insert(ctx context.Context, collection string, document bson.M) error
	Find(ctx context.Context, collection string, filter bson.M) ([]bson.M, error)
	Count(ctx context.Context, collection string) (int64, error)
	Ping(ctx context.Context) error
}

// StatsStore defines the contract for the shared store-statistics container
// read by health checks and refreshed by the scheduler.
type StatsStore interface {
	GetPrescriptionCount() int64
	GetMedicationCount() int64
	GetLastChecked() time.Time
	IsStoreReachable() bool
	UpdateStats(prescriptions, medications int64, reachable bool)
}

// Scheduler defines the contract for background monitoring jobs.
type Scheduler interface {
	Start() error
	Stop()
}

// HealthChecker defines the contract for health check functionality.
type HealthChecker interface {
	// HealthCheck returns current system health status
	HealthCheck(ctx context.Context) (status string, details map[string]any, httpStatus int)
}
