package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Party roles. Every session has exactly one party per role.
const (
	PartyCompany  = "COMPANY"
	PartyUnion    = "UNION"
	PartyEmployee = "EMPLOYEE"
)

// PartyRoles lists the fixed signing roles in display order.
var PartyRoles = []string{PartyCompany, PartyUnion, PartyEmployee}

// IsValidPartyRole reports whether role is one of the three signing roles.
func IsValidPartyRole(role string) bool {
	return role == PartyCompany || role == PartyUnion || role == PartyEmployee
}

// Evidence event types recorded along the signature ceremony
const (
	EventSessionCreated        = "SESSION_CREATED"
	EventEmployeeLinkGenerated = "EMPLOYEE_LINK_GENERATED"
	EventOTPSent               = "OTP_SENT"
	EventConsentGiven          = "CONSENT_GIVEN"
	EventSigned                = "SIGNED"
	EventFinalSeal             = "FINAL_SEAL"
	EventFinalized             = "FINALIZED"
)

// SigningSession manages the three-party electronic signature ceremony of
// one process. One session per process.
type SigningSession struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ProcessID   uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex" json:"process_id"`
	DocumentRef string     `gorm:"type:varchar(512)" json:"document_reference"` // opaque pointer to the homologation term
	HashOriginal string    `gorm:"type:varchar(128)" json:"hash_original"`
	SealJWS     string     `gorm:"type:text" json:"-"` // HS256 seal issued at completion
	IsCompleted bool       `gorm:"default:false" json:"is_completed"`
	Parties     []Party    `gorm:"foreignKey:SessionID" json:"parties,omitempty"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func (s *SigningSession) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// PartyByRole returns the party holding role, or nil.
func (s *SigningSession) PartyByRole(role string) *Party {
	for i := range s.Parties {
		if s.Parties[i].Role == role {
			return &s.Parties[i]
		}
	}
	return nil
}

// AllSigned reports whether every party of the session has signed.
func (s *SigningSession) AllSigned() bool {
	if len(s.Parties) == 0 {
		return false
	}
	for i := range s.Parties {
		if s.Parties[i].SignedAt == nil {
			return false
		}
	}
	return true
}

// Party is one of the three signing roles of a session. OTP and magic-link
// secrets are stored hashed; the plaintext only travels through the
// notification dispatcher.
type Party struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID uuid.UUID `gorm:"type:uuid;not null;index:idx_party_session_role,unique" json:"session_id"`
	Role      string    `gorm:"type:varchar(16);not null;index:idx_party_session_role,unique" json:"role"`
	Name      string    `gorm:"type:varchar(120);not null" json:"name"`
	CPF       string    `gorm:"type:varchar(14)" json:"cpf"`
	Email     string    `gorm:"type:varchar(255)" json:"email"`
	Phone     string    `gorm:"type:varchar(20)" json:"phone"`

	OTPHash      string     `gorm:"type:varchar(128)" json:"-"`
	OTPExpiresAt *time.Time `json:"-"`

	// Magic-link token, hashed. Only set for the EMPLOYEE party, which has
	// no platform login and signs through a tokenized public link.
	MagicLinkHash      string     `gorm:"type:varchar(128)" json:"-"`
	MagicLinkExpiresAt *time.Time `json:"-"`

	ConsentRecorded bool       `gorm:"default:false" json:"consent_recorded"`
	SignedAt        *time.Time `json:"signed_at,omitempty"`
	SignedIP        string     `gorm:"type:varchar(45)" json:"-"`
	SignedUserAgent string     `gorm:"type:text" json:"-"`
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (p *Party) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// Signed reports whether the party has completed its signature.
func (p *Party) Signed() bool { return p.SignedAt != nil }

// EvidenceEvent is one audit entry of a signing session
type EvidenceEvent struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID uuid.UUID  `gorm:"type:uuid;not null;index" json:"session_id"`
	PartyID   *uuid.UUID `gorm:"type:uuid" json:"party_id,omitempty"`
	Type      string     `gorm:"type:varchar(64);not null" json:"type"`
	IP        string     `gorm:"type:varchar(45)" json:"ip,omitempty"`
	UserAgent string     `gorm:"type:text" json:"user_agent,omitempty"`
	Payload   string     `gorm:"type:text" json:"payload,omitempty"` // serialized JSON
	CreatedAt time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
}

func (e *EvidenceEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
