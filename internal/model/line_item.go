package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LineItemType enum constants
const (
	ItemTypeMaterial = "material"
	ItemTypeLabor    = "labor"
	ItemTypeService  = "service"
	ItemTypeOther    = "other"
)

// LineItem is one priced row within an estimate. Display and print order is
// the explicit Position field, never implicit array order. LineTotal is a pure
// function of the other fields and is recomputed on every mutation.
type LineItem struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	EstimateID uuid.UUID `gorm:"type:uuid;not null;index" json:"estimate_id"`

	Position    int    `gorm:"not null" json:"position"`
	ItemType    string `gorm:"type:varchar(20);not null;default:'material'" json:"item_type"`
	ItemCode    string `gorm:"type:varchar(50)" json:"item_code"`
	Description string `gorm:"type:text;not null" json:"description"`
	Unit        string `gorm:"type:varchar(20)" json:"unit"`

	Quantity   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"quantity"`
	UnitPrice  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"unit_price"`
	LaborHours decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"labor_hours"`
	LaborRate  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"labor_rate"`
	CostPrice  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"cost_price"`

	MarkupPct   decimal.Decimal `gorm:"type:decimal(10,4);not null;default:0" json:"markup_pct"`
	DiscountPct decimal.Decimal `gorm:"type:decimal(10,4);not null;default:0" json:"discount_pct"`
	TaxPct      decimal.Decimal `gorm:"type:decimal(10,4);not null;default:0" json:"tax_pct"`

	LineTotal decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"line_total"`
}

// LineItemPreset is a reusable catalog entry operators pick from when
// composing estimates (common materials, standard labor operations).
type LineItemPreset struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name        string          `gorm:"type:varchar(255);not null" json:"name"`
	ItemType    string          `gorm:"type:varchar(20);not null;default:'material'" json:"item_type"`
	ItemCode    string          `gorm:"type:varchar(50)" json:"item_code"`
	Description string          `gorm:"type:text" json:"description"`
	Unit        string          `gorm:"type:varchar(20)" json:"unit"`
	Quantity    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:1" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"unit_price"`
	LaborHours  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"labor_hours"`
	LaborRate   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"labor_rate"`
	CostPrice   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"cost_price"`
	MarkupPct   decimal.Decimal `gorm:"type:decimal(10,4);not null;default:0" json:"markup_pct"`
	Category    string          `gorm:"type:varchar(100);index" json:"category"`
	IsActive    bool            `gorm:"not null;default:true" json:"is_active"`
}
