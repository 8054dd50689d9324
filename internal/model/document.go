package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Document status values
const (
	DocumentPendente = "PENDENTE"
	DocumentAprovado = "APROVADO"
	DocumentRecusado = "RECUSADO"
)

// DocumentTypes is the single shared enumeration of accepted document
// categories, consumed by both upload validation and display logic.
var DocumentTypes = map[string]string{
	"RESCISAO":              "Rescisão",
	"HOMOLOGACAO":           "Homologação",
	"CTPS":                  "CTPS",
	"RG":                    "RG",
	"CPF":                   "CPF",
	"COMPROVANTE_ENDERECO":  "Comprovante de Endereço",
	"CARTA_AVISO":           "Carta de Aviso",
	"EXAME_DEMISSAO":        "Exame Demissional",
	"FICHA_REGISTRO":        "Ficha de Registro",
	"EXTRATO_FGTS":          "Extrato FGTS",
	"GUIA_GRRF":             "Guia GRRF",
	"GUIA_MULTA_FGTS":       "Guia Multa FGTS",
	"GUIA_INSS":             "Guia INSS",
	"COMPROVANTE_PAGAMENTO": "Comprovante de Pagamento",
	"TERMO_QUITACAO":        "Termo de Quitação",
	"TERMO_HOMOLOGACAO":     "Termo de Homologação",
	"ATESTADO_SINDICATO":    "Atestado Sindicato",
	"OUTROS":                "Outros",
}

// IsValidDocumentType reports whether t is one of the accepted categories.
func IsValidDocumentType(t string) bool {
	_, ok := DocumentTypes[t]
	return ok
}

// Document is one uploaded file of a given category for a process.
// At most one document per (process, type); a refused document is superseded
// in place by a new upload rather than deleted.
type Document struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ProcessID    uuid.UUID  `gorm:"type:uuid;not null;index:idx_doc_process_type,unique" json:"process_id"`
	Type         string     `gorm:"type:varchar(32);not null;index:idx_doc_process_type,unique" json:"type"`
	FileRef      string     `gorm:"type:varchar(512);not null" json:"file_reference"` // opaque pointer into external storage
	Status       string     `gorm:"type:varchar(20);not null;default:'PENDENTE';index" json:"status"`
	MotivoRecusa string     `gorm:"type:text" json:"motivo_recusa,omitempty"`
	AprovadoEm   *time.Time `json:"aprovado_em,omitempty"`
	RejeitadoEm  *time.Time `json:"rejeitado_em,omitempty"`
	UploadedAt   time.Time  `gorm:"autoCreateTime" json:"uploaded_at"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (d *Document) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
