package service

import (
	"context"
	"fmt"

	"estimator/internal/model"
	"estimator/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// --- DTOs ---

type PresetInput struct {
	Name        string `json:"name" binding:"required"`
	ItemType    string `json:"item_type" binding:"omitempty,oneof=material labor service other"`
	ItemCode    string `json:"item_code"`
	Description string `json:"description"`
	Unit        string `json:"unit"`
	Quantity    string `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	LaborHours  string `json:"labor_hours"`
	LaborRate   string `json:"labor_rate"`
	CostPrice   string `json:"cost_price"`
	MarkupPct   string `json:"markup_pct"`
	Category    string `json:"category"`
}

type PresetResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ItemType    string `json:"item_type"`
	ItemCode    string `json:"item_code"`
	Description string `json:"description"`
	Unit        string `json:"unit"`
	Quantity    string `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	LaborHours  string `json:"labor_hours"`
	LaborRate   string `json:"labor_rate"`
	CostPrice   string `json:"cost_price"`
	MarkupPct   string `json:"markup_pct"`
	Category    string `json:"category"`
}

// --- Interface ---

// PresetService manages the line-item catalog operators pick from when
// composing estimates.
type PresetService interface {
	Create(ctx context.Context, input PresetInput) (PresetResponse, error)
	Update(ctx context.Context, id string, input PresetInput) (PresetResponse, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, page, limit int, search, category string) ([]PresetResponse, int64, error)
}

type presetService struct {
	repo repository.PresetRepository
}

func NewPresetService(repo repository.PresetRepository) PresetService {
	return &presetService{repo: repo}
}

// --- Implementation ---

func (s *presetService) Create(ctx context.Context, input PresetInput) (PresetResponse, error) {
	preset, err := buildPreset(input)
	if err != nil {
		return PresetResponse{}, err
	}
	if err := s.repo.Create(ctx, preset); err != nil {
		return PresetResponse{}, fmt.Errorf("failed to create preset: %w", err)
	}
	return toPresetResponse(*preset), nil
}

func (s *presetService) Update(ctx context.Context, id string, input PresetInput) (PresetResponse, error) {
	presetID, err := uuid.Parse(id)
	if err != nil {
		return PresetResponse{}, fmt.Errorf("invalid preset id: %w", err)
	}
	existing, err := s.repo.FindByID(ctx, presetID)
	if err != nil {
		return PresetResponse{}, fmt.Errorf("preset not found: %w", err)
	}

	updated, err := buildPreset(input)
	if err != nil {
		return PresetResponse{}, err
	}
	updated.ID = existing.ID
	updated.IsActive = existing.IsActive

	if err := s.repo.Update(ctx, updated); err != nil {
		return PresetResponse{}, fmt.Errorf("failed to update preset: %w", err)
	}
	return toPresetResponse(*updated), nil
}

func (s *presetService) Delete(ctx context.Context, id string) error {
	presetID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid preset id: %w", err)
	}
	return s.repo.Delete(ctx, presetID)
}

func (s *presetService) List(ctx context.Context, page, limit int, search, category string) ([]PresetResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	presets, total, err := s.repo.List(ctx, page, limit, search, category)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch presets: %w", err)
	}

	result := make([]PresetResponse, 0, len(presets))
	for _, p := range presets {
		result = append(result, toPresetResponse(p))
	}
	return result, total, nil
}

// --- Helpers ---

func buildPreset(input PresetInput) (*model.LineItemPreset, error) {
	itemType := input.ItemType
	if itemType == "" {
		itemType = model.ItemTypeMaterial
	}

	preset := model.LineItemPreset{
		Name:        input.Name,
		ItemType:    itemType,
		ItemCode:    input.ItemCode,
		Description: input.Description,
		Unit:        input.Unit,
		Quantity:    decimal.NewFromInt(1),
		Category:    input.Category,
		IsActive:    true,
	}

	fields := []struct {
		raw  string
		dst  *decimal.Decimal
		name string
	}{
		{input.Quantity, &preset.Quantity, "quantity"},
		{input.UnitPrice, &preset.UnitPrice, "unit_price"},
		{input.LaborHours, &preset.LaborHours, "labor_hours"},
		{input.LaborRate, &preset.LaborRate, "labor_rate"},
		{input.CostPrice, &preset.CostPrice, "cost_price"},
		{input.MarkupPct, &preset.MarkupPct, "markup_pct"},
	}
	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		value, err := decimal.NewFromString(f.raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", f.name, err)
		}
		if value.IsNegative() {
			return nil, fmt.Errorf("%s cannot be negative", f.name)
		}
		*f.dst = value
	}

	return &preset, nil
}

// --- Mapping ---

func toPresetResponse(p model.LineItemPreset) PresetResponse {
	return PresetResponse{
		ID:          p.ID.String(),
		Name:        p.Name,
		ItemType:    p.ItemType,
		ItemCode:    p.ItemCode,
		Description: p.Description,
		Unit:        p.Unit,
		Quantity:    p.Quantity.StringFixed(2),
		UnitPrice:   p.UnitPrice.StringFixed(2),
		LaborHours:  p.LaborHours.StringFixed(2),
		LaborRate:   p.LaborRate.StringFixed(2),
		CostPrice:   p.CostPrice.StringFixed(2),
		MarkupPct:   p.MarkupPct.StringFixed(2),
		Category:    p.Category,
	}
}
