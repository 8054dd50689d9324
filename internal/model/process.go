package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Process status values. Transitions only move forward along the workflow;
// the single backward path is a re-upload after documentation rejection.
const (
	StatusAguardandoAprovacao  = "aguardando_aprovacao"
	StatusAguardandoAnalise    = "aguardando_analise_documentacao"
	StatusPendenteDocumentacao = "pendente_documentacao"
	StatusDocumentosAprovados  = "documentos_aprovados"
	StatusRejeitadoFaltaDocs   = "rejeitado_falta_documentacao"
	StatusAgendado             = "agendado"
	StatusEmVideoconferencia   = "em_videoconferencia"
	StatusAssinaturaPendente   = "assinatura_pendente"
	StatusFinalizado           = "finalizado"
)

// PreApprovalStatuses are the states from which the union may still reject
// the whole process for missing documentation.
var PreApprovalStatuses = []string{
	StatusAguardandoAprovacao,
	StatusAguardandoAnalise,
	StatusPendenteDocumentacao,
}

// DemissaoProcess is a single employee-termination case tracked end-to-end
type DemissaoProcess struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	NomeFuncionario  string     `gorm:"type:varchar(255);not null" json:"nome_funcionario"`
	EmailFuncionario string     `gorm:"type:varchar(255)" json:"email_funcionario"`
	FoneFuncionario  string     `gorm:"type:varchar(20)" json:"telefone_funcionario"`
	CPFFuncionario   string     `gorm:"type:varchar(14)" json:"cpf_funcionario"`
	Motivo           string     `gorm:"type:varchar(255);not null" json:"motivo"`
	Exame            string     `gorm:"type:varchar(50)" json:"exame"`
	CompanyID        uuid.UUID  `gorm:"type:uuid;not null;index" json:"company_id"`
	Company          *Company   `gorm:"foreignKey:CompanyID" json:"company,omitempty"`
	UnionID          uuid.UUID  `gorm:"type:uuid;not null;index" json:"union_id"`
	Union            *Union     `gorm:"foreignKey:UnionID" json:"union,omitempty"`
	Status           string     `gorm:"type:varchar(50);not null;default:'aguardando_aprovacao';index" json:"status"`
	Documents        []Document `gorm:"foreignKey:ProcessID" json:"documents,omitempty"`

	Ressalvas      string     `gorm:"type:text" json:"ressalvas,omitempty"`
	MotivoRejeicao string     `gorm:"type:text" json:"motivo_rejeicao,omitempty"`
	DataRejeicao   *time.Time `json:"data_rejeicao,omitempty"`

	ScheduledStart *time.Time `json:"scheduled_start,omitempty"`
	ScheduledEnd   *time.Time `json:"scheduled_end,omitempty"`
	VideoLink      string     `gorm:"type:varchar(512)" json:"video_link,omitempty"`

	// Signature flags cached from the signing session so list views do not
	// need to join the session tables.
	AssinadoEmpresa     bool `gorm:"default:false" json:"signed_by_company"`
	AssinadoSindicato   bool `gorm:"default:false" json:"signed_by_union"`
	AssinadoTrabalhador bool `gorm:"default:false" json:"signed_by_employee"`

	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	DataTermino *time.Time `json:"finalized_at,omitempty"`
}

func (p *DemissaoProcess) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// IsTerminal reports whether the process can no longer change state.
func (p *DemissaoProcess) IsTerminal() bool {
	return p.Status == StatusFinalizado || p.Status == StatusRejeitadoFaltaDocs
}

// IsPreApproval reports whether the process is still under documentation review.
func (p *DemissaoProcess) IsPreApproval() bool {
	for _, s := range PreApprovalStatuses {
		if p.Status == s {
			return true
		}
	}
	return false
}

// Schedule is the homologation meeting slot attached to a process
type Schedule struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ProcessID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"process_id"`
	UnionUserID *uuid.UUID `gorm:"type:uuid" json:"union_user_id"`
	UnionUser   *User      `gorm:"foreignKey:UnionUserID" json:"union_user,omitempty"`
	StartsAt    time.Time  `gorm:"not null" json:"starts_at"`
	EndsAt      time.Time  `gorm:"not null" json:"ends_at"`
	VideoLink   string     `gorm:"type:varchar(512)" json:"video_link"`
	Status      string     `gorm:"type:varchar(30);not null;default:'agendado'" json:"status"` // agendado, finalizado, cancelado
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (s *Schedule) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
