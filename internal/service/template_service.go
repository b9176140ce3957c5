package service

import (
	"context"
	"errors"

	"strideiq/plan-engine/internal/domain"
	"strideiq/plan-engine/internal/repository"
)

// --- Error Definitions ---
var (
	ErrTemplateNotFound   = errors.New("workout template not found")
	ErrTemplateExists     = errors.New("workout template with this id already exists")
	ErrTemplateValidation = errors.New("workout template validation failed")
)

// --- Service Interface ---
type TemplateService interface {
	CreateTemplate(ctx context.Context, template *domain.WorkoutTemplate) error
	GetTemplate(ctx context.Context, id string) (*domain.WorkoutTemplate, error)
	ListTemplates(ctx context.Context) ([]domain.WorkoutTemplate, error)
	UpdateTemplate(ctx context.Context, template *domain.WorkoutTemplate) error
	DeleteTemplate(ctx context.Context, id string) error
}

// --- Service Implementation ---

// templateService implements the TemplateService interface. The registry
// is coach-curated; this service is the write path, the plan generator
// only ever snapshots it read-only.
type templateService struct {
	templateRepo repository.TemplateRepository
}

// NewTemplateService creates a new instance of templateService.
func NewTemplateService(templateRepo repository.TemplateRepository) TemplateService {
	return &templateService{templateRepo: templateRepo}
}

// CreateTemplate validates and stores a new registry entry. The
// progression blob is validated into the tagged steps variant here, at
// write time, so selection can trust it unconditionally.
func (s *templateService) CreateTemplate(ctx context.Context, template *domain.WorkoutTemplate) error {
	if err := validateTemplate(template); err != nil {
		return err
	}

	err := s.templateRepo.Create(ctx, template)
	if errors.Is(err, repository.ErrDuplicate) {
		return ErrTemplateExists
	}
	return err
}

func (s *templateService) GetTemplate(ctx context.Context, id string) (*domain.WorkoutTemplate, error) {
	template, err := s.templateRepo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrTemplateNotFound
	}
	return template, err
}

func (s *templateService) ListTemplates(ctx context.Context) ([]domain.WorkoutTemplate, error) {
	return s.templateRepo.GetAll(ctx)
}

func (s *templateService) UpdateTemplate(ctx context.Context, template *domain.WorkoutTemplate) error {
	if err := validateTemplate(template); err != nil {
		return err
	}

	err := s.templateRepo.Update(ctx, template)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrTemplateNotFound
	}
	return err
}

func (s *templateService) DeleteTemplate(ctx context.Context, id string) error {
	err := s.templateRepo.Delete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrTemplateNotFound
	}
	return err
}

func validateTemplate(template *domain.WorkoutTemplate) error {
	if template.ID == "" || template.Name == "" {
		return ErrTemplateValidation
	}
	if len(template.PhaseCompatibility) == 0 {
		return ErrTemplateValidation
	}
	if err := template.Progression.Validate(); err != nil {
		return err
	}
	return nil
}
