package services

import (
	"context"

	"github.com/yungbote/argo-backend/internal/clients/qdrant"
	"github.com/yungbote/argo-backend/internal/db"
	"github.com/yungbote/argo-backend/internal/logger"
)

type ReadinessReport struct {
	Ready  bool              `json:"ready"`
	Checks map[string]string `json:"checks"`
}

// HealthService runs pass-through reachability checks against the message
// store and the vector index.
type HealthService struct {
	log      *logger.Logger
	database *db.DatabaseService
	vector   qdrant.VectorStore
}

func NewHealthService(log *logger.Logger, database *db.DatabaseService, vector qdrant.VectorStore) *HealthService {
	return &HealthService{
		log:      log.With("service", "HealthService"),
		database: database,
		vector:   vector,
	}
}

func (s *HealthService) Ready(ctx context.Context) ReadinessReport {
	report := ReadinessReport{Ready: true, Checks: map[string]string{}}

	if s.database == nil {
		report.Ready = false
		report.Checks["database"] = "not configured"
	} else if err := s.database.Ping(); err != nil {
		report.Ready = false
		report.Checks["database"] = err.Error()
	} else {
		report.Checks["database"] = "ok"
	}

	if s.vector == nil {
		report.Ready = false
		report.Checks["vector_index"] = "not configured"
	} else if err := s.vector.Ping(ctx); err != nil {
		report.Ready = false
		report.Checks["vector_index"] = err.Error()
	} else {
		report.Checks["vector_index"] = "ok"
	}

	return report
}
