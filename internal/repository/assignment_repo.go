package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/classmark/classmark-api/internal/models"
)

// AssignmentFilter describes listing options for assignments.
type AssignmentFilter struct {
	Status   string
	Search   string
	Page     int
	PageSize int
}

// AssignmentRepository defines persistence operations for assignments.
type AssignmentRepository interface {
	List(ctx context.Context, filter AssignmentFilter) ([]models.Assignment, int64, error)
	GetByID(ctx context.Context, id uint) (models.Assignment, error)
	Create(ctx context.Context, assignment *models.Assignment) error
	Update(ctx context.Context, assignment *models.Assignment) error
	Delete(ctx context.Context, id uint) error
	AdjustSubmissionCount(ctx context.Context, id uint, delta int) error
}

type assignmentRepository struct {
	db *gorm.DB
}

// NewAssignmentRepository instantiates a GORM-backed repository.
func NewAssignmentRepository(db *gorm.DB) AssignmentRepository {
	return &assignmentRepository{db: db}
}

func (r *assignmentRepository) List(ctx context.Context, filter AssignmentFilter) ([]models.Assignment, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Assignment{})

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	if filter.Search != "" {
		pattern := "%" + strings.ToLower(strings.TrimSpace(filter.Search)) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(instructions) LIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Order("due_date ASC")

	if filter.PageSize > 0 {
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		query = query.Offset((page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var assignments []models.Assignment
	if err := query.Find(&assignments).Error; err != nil {
		return nil, 0, err
	}

	return assignments, total, nil
}

func (r *assignmentRepository) GetByID(ctx context.Context, id uint) (models.Assignment, error) {
	var assignment models.Assignment
	if err := r.db.WithContext(ctx).First(&assignment, id).Error; err != nil {
		return models.Assignment{}, err
	}

	return assignment, nil
}

func (r *assignmentRepository) Create(ctx context.Context, assignment *models.Assignment) error {
	return r.db.WithContext(ctx).Create(assignment).Error
}

func (r *assignmentRepository) Update(ctx context.Context, assignment *models.Assignment) error {
	return r.db.WithContext(ctx).Save(assignment).Error
}

func (r *assignmentRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Assignment{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// AdjustSubmissionCount applies an atomic delta to the denormalized submission
// counter. The counter is best-effort: it is not tied to the submission write
// in a transaction, so it may drift under concurrent create/delete races.
func (r *assignmentRepository) AdjustSubmissionCount(ctx context.Context, id uint, delta int) error {
	return r.db.WithContext(ctx).Model(&models.Assignment{}).
		Where("id = ?", id).
		UpdateColumn("total_submissions", gorm.Expr("total_submissions + ?", delta)).Error
}
