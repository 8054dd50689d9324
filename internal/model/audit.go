package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ActionCreateProcess     = "CREATE_PROCESS"
	ActionUploadDocuments   = "UPLOAD_DOCUMENTS"
	ActionApproveDocument   = "APPROVE_DOCUMENT"
	ActionRejectDocument    = "REJECT_DOCUMENT"
	ActionApproveDocs       = "APPROVE_DOCUMENTATION"
	ActionRejectProcess     = "REJECT_PROCESS"
	ActionScheduleMeeting   = "SCHEDULE_MEETING"
	ActionAdvanceStage      = "ADVANCE_STAGE"
	ActionFinalizeMeeting   = "FINALIZE_MEETING"
	ActionSyncVideoLink     = "SYNC_VIDEO_LINK"
	ActionSaveRessalvas     = "SAVE_RESSALVAS"
	ActionFinalizeProcess   = "FINALIZE_PROCESS"
	ActionCreatePayment     = "CREATE_PAYMENT"
)

// AuditLog tracks Who, What, and When for critical system changes
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"` // Nullable for system-driven transitions
	User       *User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"`
	Details    string     `gorm:"type:text" json:"details"` // Serialized JSON payload of the action
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
