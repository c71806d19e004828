package services

import (
	"encoding/json"

	"gorm.io/gorm"

	"github.com/mdung/multi-portfolio-investment-tracker/internal/logger"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/models"
)

// auditService appends user writes to audit_logs. Recording is best effort:
// a failed insert is logged and the request carries on.
type auditService struct {
	db *gorm.DB
}

// NewAuditService creates a new AuditServicer.
func NewAuditService(db *gorm.DB) AuditServicer {
	return &auditService{db: db}
}

// Log records action on a resource. An empty resourceID is stored as NULL
// for writes that touch several records, such as a bulk alert create.
func (s *auditService) Log(userID, action string, resource models.AuditResource, resourceID, ipAddress string, changes map[string]any) {
	log := logger.Named("audit").With("user_id", userID, "action", action, "resource_type", resource)

	entry := &models.AuditLog{
		UserID:       userID,
		Action:       action,
		ResourceType: resource,
		ResourceID:   resourceID,
		IPAddress:    ipAddress,
	}
	if len(changes) > 0 {
		data, err := json.Marshal(changes)
		if err != nil {
			log.Warnw("Dropping unencodable audit changes", "error", err)
		} else {
			entry.Changes = string(data)
		}
	}

	q := s.db
	if resourceID == "" {
		q = q.Omit("ResourceID")
	}
	if err := q.Create(entry).Error; err != nil {
		log.Errorw("Failed to record audit entry", "resource_id", resourceID, "error", err)
	}
}
