package store

import (
	"time"

	"gorm.io/datatypes"

	"github.com/Shubhamjha-sj/signal/pkg/types"
)

type feedbackRecord struct {
	ID             string            `gorm:"primaryKey;size:64"`
	Content        string            `gorm:"type:text;not null"`
	Source         string            `gorm:"size:32;index"`
	Sentiment      float64           `gorm:"index"`
	SentimentLabel string            `gorm:"size:32"`
	Urgency        int               `gorm:"index"`
	Product        string            `gorm:"size:128;index"`
	Themes         []string          `gorm:"serializer:json;type:text"`
	CustomerID     string            `gorm:"size:64;index"`
	CustomerName   string            `gorm:"size:255"`
	CustomerTier   string            `gorm:"size:32;index"`
	CustomerARR    int64
	Status         string            `gorm:"size:32;index"`
	AssignedTo     string            `gorm:"size:255"`
	Metadata       datatypes.JSONMap
	CreatedAt      time.Time         `gorm:"index"`
	UpdatedAt      time.Time
}

func (feedbackRecord) TableName() string { return "feedback" }

func (r *feedbackRecord) toItem() types.FeedbackItem {
	return types.FeedbackItem{
		ID:             r.ID,
		Content:        r.Content,
		Source:         types.Source(r.Source),
		Sentiment:      r.Sentiment,
		SentimentLabel: types.SentimentLabel(r.SentimentLabel),
		Urgency:        r.Urgency,
		Product:        r.Product,
		Themes:         r.Themes,
		CustomerID:     r.CustomerID,
		CustomerName:   r.CustomerName,
		CustomerTier:   types.Tier(r.CustomerTier),
		CustomerARR:    r.CustomerARR,
		Status:         types.Status(r.Status),
		AssignedTo:     r.AssignedTo,
		Metadata:       map[string]any(r.Metadata),
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

func feedbackFromItem(f *types.FeedbackItem) *feedbackRecord {
	themes := f.Themes
	if themes == nil {
		themes = []string{}
	}
	return &feedbackRecord{
		ID:             f.ID,
		Content:        f.Content,
		Source:         string(f.Source),
		Sentiment:      f.Sentiment,
		SentimentLabel: string(f.SentimentLabel),
		Urgency:        f.Urgency,
		Product:        f.Product,
		Themes:         themes,
		CustomerID:     f.CustomerID,
		CustomerName:   f.CustomerName,
		CustomerTier:   string(f.CustomerTier),
		CustomerARR:    f.CustomerARR,
		Status:         string(f.Status),
		AssignedTo:     f.AssignedTo,
		Metadata:       datatypes.JSONMap(f.Metadata),
		CreatedAt:      f.CreatedAt,
		UpdatedAt:      f.UpdatedAt,
	}
}

type alertRecord struct {
	ID           string                      `gorm:"primaryKey;size:64"`
	Type         string                      `gorm:"size:16;index"`
	Message      string                      `gorm:"type:text"`
	Product      string                      `gorm:"size:128;index"`
	Acknowledged bool                        `gorm:"index"`
	FeedbackIDs  datatypes.JSONSlice[string] `gorm:"column:feedback_ids"`
	CreatedAt    time.Time                   `gorm:"index"`
}

func (alertRecord) TableName() string { return "alerts" }

func (r *alertRecord) toAlert() types.Alert {
	ids := []string(r.FeedbackIDs)
	if ids == nil {
		ids = []string{}
	}
	return types.Alert{
		ID:           r.ID,
		Type:         types.AlertType(r.Type),
		Message:      r.Message,
		Product:      r.Product,
		Acknowledged: r.Acknowledged,
		FeedbackIDs:  ids,
		CreatedAt:    r.CreatedAt,
	}
}

func alertFromType(a *types.Alert) *alertRecord {
	return &alertRecord{
		ID:           a.ID,
		Type:         string(a.Type),
		Message:      a.Message,
		Product:      a.Product,
		Acknowledged: a.Acknowledged,
		FeedbackIDs:  datatypes.JSONSlice[string](a.FeedbackIDs),
		CreatedAt:    a.CreatedAt,
	}
}

type customerRecord struct {
	ID          string                      `gorm:"primaryKey;size:64"`
	Name        string                      `gorm:"size:255;not null"`
	Tier        string                      `gorm:"size:32;index"`
	ARR         int64                       `gorm:"column:arr;index"`
	Domain      string                      `gorm:"size:255;index"`
	Products    datatypes.JSONSlice[string]
	HealthScore float64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (customerRecord) TableName() string { return "customers" }

func (r *customerRecord) toCustomer() types.Customer {
	products := []string(r.Products)
	if products == nil {
		products = []string{}
	}
	return types.Customer{
		ID:          r.ID,
		Name:        r.Name,
		Tier:        types.Tier(r.Tier),
		ARR:         r.ARR,
		Domain:      r.Domain,
		Products:    products,
		HealthScore: r.HealthScore,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func customerFromType(c *types.Customer) *customerRecord {
	return &customerRecord{
		ID:          c.ID,
		Name:        c.Name,
		Tier:        string(c.Tier),
		ARR:         c.ARR,
		Domain:      c.Domain,
		Products:    datatypes.JSONSlice[string](c.Products),
		HealthScore: c.HealthScore,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}
