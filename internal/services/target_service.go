package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/fleetgrid/fleetgrid/internal/models"
	apperrors "github.com/fleetgrid/fleetgrid/pkg/errors"
)

// TargetService manages the target catalog. The catalog and the group
// membership index are deliberately decoupled: deleting a target does not
// touch memberships, the reconciler prunes stale pairs on its own schedule.
type TargetService struct {
	db    *gorm.DB
	audit *AuditService
}

// CreateTargetInput captures new catalog entry fields.
type CreateTargetInput struct {
	Name      string
	Hostname  string
	IPAddress string
	Status    string
	Labels    map[string]string
}

// UpdateTargetInput describes mutable target fields; nil means unchanged.
type UpdateTargetInput struct {
	Name      *string
	Hostname  *string
	IPAddress *string
	Status    *string
	Labels    map[string]string
}

// ListTargetsOptions filters catalog listings.
type ListTargetsOptions struct {
	Status string
	Search string
	Limit  int
	Offset int
}

// NewTargetService constructs a TargetService.
func NewTargetService(db *gorm.DB, audit *AuditService) (*TargetService, error) {
	if db == nil {
		return nil, errors.New("target service: db is required")
	}
	return &TargetService{db: db, audit: audit}, nil
}

// Create registers a new target in the catalog.
func (s *TargetService) Create(ctx context.Context, input CreateTargetInput) (*models.Target, error) {
	ctx = ensureContext(ctx)

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewBadRequest("target name is required")
	}

	status := strings.TrimSpace(input.Status)
	if status == "" {
		status = models.TargetStatusActive
	}
	if status != models.TargetStatusActive && status != models.TargetStatusInactive {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("unknown target status %q", status))
	}

	target := models.Target{
		Name:      name,
		Hostname:  strings.TrimSpace(input.Hostname),
		IPAddress: strings.TrimSpace(input.IPAddress),
		Status:    status,
	}
	if err := target.SetLabels(input.Labels); err != nil {
		return nil, apperrors.NewBadRequest("invalid target labels")
	}

	if err := s.db.WithContext(ctx).Create(&target).Error; err != nil {
		return nil, fmt.Errorf("target service: create: %w", err)
	}

	recordAudit(s.audit, ctx, AuditEntry{
		Action:   "target.create",
		Resource: target.ID,
		Result:   "success",
		Metadata: map[string]any{"name": target.Name},
	})
	return &target, nil
}

// Get returns one catalog entry.
func (s *TargetService) Get(ctx context.Context, id string) (*models.Target, error) {
	ctx = ensureContext(ctx)

	var target models.Target
	if err := s.db.WithContext(ctx).First(&target, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("target service: get: %w", err)
	}
	return &target, nil
}

// List returns catalog entries ordered by name, with optional filtering.
func (s *TargetService) List(ctx context.Context, opts ListTargetsOptions) ([]models.Target, int64, error) {
	ctx = ensureContext(ctx)

	query := s.db.WithContext(ctx).Model(&models.Target{})
	if status := strings.TrimSpace(opts.Status); status != "" {
		query = query.Where("status = ?", status)
	}
	if search := strings.TrimSpace(opts.Search); search != "" {
		pattern := "%" + search + "%"
		query = query.Where("name LIKE ? OR hostname LIKE ? OR ip_address LIKE ?", pattern, pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("target service: count: %w", err)
	}

	if opts.Limit > 0 {
		query = query.Limit(opts.Limit).Offset(opts.Offset)
	}

	var targets []models.Target
	if err := query.Order("name ASC").Find(&targets).Error; err != nil {
		return nil, 0, fmt.Errorf("target service: list: %w", err)
	}
	return targets, total, nil
}

// Update edits catalog entry fields.
func (s *TargetService) Update(ctx context.Context, id string, input UpdateTargetInput) (*models.Target, error) {
	ctx = ensureContext(ctx)

	target, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperrors.NewBadRequest("target name is required")
		}
		updates["name"] = name
	}
	if input.Hostname != nil {
		updates["hostname"] = strings.TrimSpace(*input.Hostname)
	}
	if input.IPAddress != nil {
		updates["ip_address"] = strings.TrimSpace(*input.IPAddress)
	}
	if input.Status != nil {
		status := strings.TrimSpace(*input.Status)
		if status != models.TargetStatusActive && status != models.TargetStatusInactive {
			return nil, apperrors.NewBadRequest(fmt.Sprintf("unknown target status %q", status))
		}
		updates["status"] = status
	}
	if input.Labels != nil {
		if err := target.SetLabels(input.Labels); err != nil {
			return nil, apperrors.NewBadRequest("invalid target labels")
		}
		updates["labels"] = target.Labels
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(&models.Target{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("target service: update: %w", err)
		}
	}

	recordAudit(s.audit, ctx, AuditEntry{
		Action:   "target.update",
		Resource: id,
		Result:   "success",
	})
	return s.Get(ctx, id)
}

// Delete removes a target from the catalog. Memberships referencing the id
// survive until the reconciler prunes them; member listings flag them as
// unknown in the meantime.
func (s *TargetService) Delete(ctx context.Context, id string) error {
	ctx = ensureContext(ctx)

	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Target{})
	if result.Error != nil {
		return fmt.Errorf("target service: delete: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}

	recordAudit(s.audit, ctx, AuditEntry{
		Action:   "target.delete",
		Resource: id,
		Result:   "success",
	})
	return nil
}

// IDs returns every catalog id, for reconciliation sweeps.
func (s *TargetService) IDs(ctx context.Context) (map[string]struct{}, error) {
	ctx = ensureContext(ctx)

	var ids []string
	if err := s.db.WithContext(ctx).Model(&models.Target{}).Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("target service: list ids: %w", err)
	}

	out := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out, nil
}
