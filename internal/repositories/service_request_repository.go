package repositories

import (
	"context"

	"gorm.io/gorm"
	dbm "wayfare/internal/models/db_models"
)

// ServiceRequestRepository is the sink finalized drafts are handed to. It
// owns id assignment and persistence from that point on.
type ServiceRequestRepository interface {
	InsertDrafts(ctx context.Context, drafts []*dbm.ServiceRequest) error
	ListByRequester(ctx context.Context, requesterID string, page, pageSize int) ([]dbm.ServiceRequest, error)
	ListOpen(ctx context.Context, page, pageSize int) ([]dbm.ServiceRequest, error)
}

type serviceRequestRepository struct {
	db *gorm.DB
}

func NewServiceRequestRepository(db *gorm.DB) ServiceRequestRepository {
	return &serviceRequestRepository{
		db: db,
	}
}

func (r *serviceRequestRepository) InsertDrafts(ctx context.Context, drafts []*dbm.ServiceRequest) error {
	if len(drafts) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&drafts).Error
}

func (r *serviceRequestRepository) ListByRequester(ctx context.Context, requesterID string, page, pageSize int) ([]dbm.ServiceRequest, error) {
	var requests []dbm.ServiceRequest
	err := r.db.WithContext(ctx).
		Where("requester_id = ?", requesterID).
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&requests).Error

	return requests, err
}

func (r *serviceRequestRepository) ListOpen(ctx context.Context, page, pageSize int) ([]dbm.ServiceRequest, error) {
	var requests []dbm.ServiceRequest
	err := r.db.WithContext(ctx).
		Where("status IN ?", []dbm.ServiceRequestStatus{dbm.RequestStatusDraft, dbm.RequestStatusOpen}).
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&requests).Error

	return requests, err
}
