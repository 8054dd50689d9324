package repository

import (
	"context"

	"github.com/vitorduarteebb/veramosystem-sub000/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SigningRepository interface {
	CreateSession(ctx context.Context, session *model.SigningSession) error
	FindSessionByID(ctx context.Context, id uuid.UUID) (*model.SigningSession, error)
	// FindSessionByIDForUpdate locks the session row so that concurrent
	// verify_and_sign calls serialize the all-signed computation.
	FindSessionByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.SigningSession, error)
	FindSessionByProcess(ctx context.Context, processID uuid.UUID) (*model.SigningSession, error)
	UpdateSession(ctx context.Context, session *model.SigningSession) error

	CreateParty(ctx context.Context, party *model.Party) error
	UpdateParty(ctx context.Context, party *model.Party) error

	RecordEvent(ctx context.Context, event *model.EvidenceEvent) error
	ListEvents(ctx context.Context, sessionID uuid.UUID) ([]model.EvidenceEvent, error)
}

type signingRepository struct {
	db *gorm.DB
}

func NewSigningRepository(db *gorm.DB) SigningRepository {
	return &signingRepository{db: db}
}

func (r *signingRepository) CreateSession(ctx context.Context, session *model.SigningSession) error {
	return GetDB(ctx, r.db).Create(session).Error
}

func (r *signingRepository) FindSessionByID(ctx context.Context, id uuid.UUID) (*model.SigningSession, error) {
	var session model.SigningSession
	err := GetDB(ctx, r.db).Preload("Parties").First(&session, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *signingRepository) FindSessionByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.SigningSession, error) {
	var session model.SigningSession
	if err := lockForUpdate(GetDB(ctx, r.db)).First(&session, "id = ?", id).Error; err != nil {
		return nil, err
	}
	if err := GetDB(ctx, r.db).Where("session_id = ?", id).Find(&session.Parties).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *signingRepository) FindSessionByProcess(ctx context.Context, processID uuid.UUID) (*model.SigningSession, error) {
	var session model.SigningSession
	err := GetDB(ctx, r.db).Preload("Parties").First(&session, "process_id = ?", processID).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *signingRepository) UpdateSession(ctx context.Context, session *model.SigningSession) error {
	return GetDB(ctx, r.db).Omit("Parties").Save(session).Error
}

func (r *signingRepository) CreateParty(ctx context.Context, party *model.Party) error {
	return GetDB(ctx, r.db).Create(party).Error
}

func (r *signingRepository) UpdateParty(ctx context.Context, party *model.Party) error {
	return GetDB(ctx, r.db).Save(party).Error
}

func (r *signingRepository) RecordEvent(ctx context.Context, event *model.EvidenceEvent) error {
	return GetDB(ctx, r.db).Create(event).Error
}

func (r *signingRepository) ListEvents(ctx context.Context, sessionID uuid.UUID) ([]model.EvidenceEvent, error) {
	var events []model.EvidenceEvent
	err := GetDB(ctx, r.db).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}
