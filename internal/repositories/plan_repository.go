package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	dbm "wayfare/internal/models/db_models"
)

type PlanRepository interface {
	InsertPlan(ctx context.Context, plan *dbm.JourneyPlan) error
	GetPlanByID(ctx context.Context, planID string) (*dbm.JourneyPlan, error)
	ListPlansByRequester(ctx context.Context, requesterID string, page, pageSize int) ([]dbm.JourneyPlan, error)

	InsertStop(ctx context.Context, stop *dbm.JourneyStop) error
	SaveStopOrder(ctx context.Context, stops []dbm.JourneyStop) error
	DeleteStop(ctx context.Context, stopID uuid.UUID) error
	UpdateStopLocation(ctx context.Context, stopID uuid.UUID, address string, lat, lng *float64) error

	SaveAction(ctx context.Context, action *dbm.JourneyAction) error
	DeleteAction(ctx context.Context, stopID, actionID uuid.UUID) error
	LinkActionRequest(ctx context.Context, actionID, requestID uuid.UUID) error

	UpdatePlanStatus(ctx context.Context, planID uuid.UUID, status dbm.JourneyPlanStatus) error
}

type planRepository struct {
	db *gorm.DB
}

func NewPlanRepository(db *gorm.DB) PlanRepository {
	return &planRepository{
		db: db,
	}
}

func (r *planRepository) InsertPlan(ctx context.Context, plan *dbm.JourneyPlan) error {
	return r.db.WithContext(ctx).Create(plan).Error
}

func (r *planRepository) GetPlanByID(ctx context.Context, planID string) (*dbm.JourneyPlan, error) {
	var plan dbm.JourneyPlan
	err := r.db.WithContext(ctx).
		Preload("Stops", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence ASC")
		}).
		Preload("Stops.Actions", func(db *gorm.DB) *gorm.DB {
			// Created-at order is the upsert append order finalize consumes
			return db.Order("created_at ASC")
		}).
		First(&plan, "id = ?", planID).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &plan, nil
}

func (r *planRepository) ListPlansByRequester(ctx context.Context, requesterID string, page, pageSize int) ([]dbm.JourneyPlan, error) {
	var plans []dbm.JourneyPlan
	err := r.db.WithContext(ctx).
		Preload("Stops").
		Where("requester_id = ?", requesterID).
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&plans).Error

	return plans, err
}

func (r *planRepository) InsertStop(ctx context.Context, stop *dbm.JourneyStop) error {
	return r.db.WithContext(ctx).Create(stop).Error
}

// SaveStopOrder persists re-derived sequence numbers and display names after
// a structural mutation.
func (r *planRepository) SaveStopOrder(ctx context.Context, stops []dbm.JourneyStop) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range stops {
			err := tx.Model(&dbm.JourneyStop{}).
				Where("id = ?", stops[i].ID).
				Updates(map[string]interface{}{
					"sequence": stops[i].Sequence,
					"name":     stops[i].Name,
				}).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *planRepository) DeleteStop(ctx context.Context, stopID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("stop_id = ?", stopID).Delete(&dbm.JourneyAction{}).Error; err != nil {
			return err
		}
		return tx.Delete(&dbm.JourneyStop{}, "id = ?", stopID).Error
	})
}

func (r *planRepository) UpdateStopLocation(ctx context.Context, stopID uuid.UUID, address string, lat, lng *float64) error {
	return r.db.WithContext(ctx).Model(&dbm.JourneyStop{}).
		Where("id = ?", stopID).
		Updates(map[string]interface{}{
			"address_input": address,
			"lat":           lat,
			"lng":           lng,
		}).Error
}

func (r *planRepository) SaveAction(ctx context.Context, action *dbm.JourneyAction) error {
	return r.db.WithContext(ctx).Save(action).Error
}

func (r *planRepository) DeleteAction(ctx context.Context, stopID, actionID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ? AND stop_id = ?", actionID, stopID).
		Delete(&dbm.JourneyAction{}).Error
}

func (r *planRepository) LinkActionRequest(ctx context.Context, actionID, requestID uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&dbm.JourneyAction{}).
		Where("id = ?", actionID).
		Update("linked_request_id", requestID).Error
}

func (r *planRepository) UpdatePlanStatus(ctx context.Context, planID uuid.UUID, status dbm.JourneyPlanStatus) error {
	return r.db.WithContext(ctx).Model(&dbm.JourneyPlan{}).
		Where("id = ?", planID).
		Update("status", status).Error
}
