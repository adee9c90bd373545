package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Shubhamjha-sj/signal/pkg/types"
)

// CreateCustomer persists a customer
func (s *Store) CreateCustomer(ctx context.Context, c *types.Customer) error {
	now := time.Now().UTC()
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	c.CreatedAt, c.UpdatedAt = now, now
	if c.Tier == "" {
		c.Tier = types.TierFree
	}
	if c.HealthScore == 0 {
		c.HealthScore = 1
	}
	c.Domain = strings.ToLower(c.Domain)
	if err := s.db.WithContext(ctx).Create(customerFromType(c)).Error; err != nil {
		return fmt.Errorf("failed to create customer: %w", err)
	}
	return nil
}

// GetCustomer loads a customer with its open issue count
func (s *Store) GetCustomer(ctx context.Context, id string) (*types.Customer, error) {
	var rec customerRecord
	if err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "customer", id)
	}
	c := rec.toCustomer()
	if err := s.fillOpenIssues(ctx, []*types.Customer{&c}); err != nil {
		return nil, err
	}
	return &c, nil
}

// UpdateCustomer replaces the editable fields of a customer
func (s *Store) UpdateCustomer(ctx context.Context, c *types.Customer) error {
	c.UpdatedAt = time.Now().UTC()
	c.Domain = strings.ToLower(c.Domain)
	res := s.db.WithContext(ctx).Model(&customerRecord{}).Where("id = ?", c.ID).
		Select("name", "tier", "arr", "domain", "products", "updated_at").
		Updates(customerFromType(c))
	if res.Error != nil {
		return fmt.Errorf("failed to update customer %s: %w", c.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("customer %s: %w", c.ID, types.ErrNotFound)
	}
	return nil
}

// DeleteCustomer removes a customer; their feedback is kept
func (s *Store) DeleteCustomer(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&customerRecord{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete customer %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("customer %s: %w", id, types.ErrNotFound)
	}
	return nil
}

// ListCustomers pages customers by ARR descending then name
func (s *Store) ListCustomers(ctx context.Context, tier types.Tier, search string, page types.Page) (types.PageResult[types.Customer], error) {
	page = page.Normalize()
	result := types.PageResult[types.Customer]{Page: page.Number, PageSize: page.Size, Data: []types.Customer{}}

	q := s.db.WithContext(ctx).Model(&customerRecord{})
	if tier != "" {
		q = q.Where("tier = ?", string(tier))
	}
	if search = strings.TrimSpace(search); search != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(search)+"%")
	}
	if err := q.Count(&result.Total).Error; err != nil {
		return result, fmt.Errorf("failed to count customers: %w", err)
	}

	var recs []customerRecord
	if err := q.Order("arr DESC").Order("name ASC").Offset(page.Offset()).Limit(page.Size).Find(&recs).Error; err != nil {
		return result, fmt.Errorf("failed to list customers: %w", err)
	}

	ptrs := make([]*types.Customer, 0, len(recs))
	for i := range recs {
		result.Data = append(result.Data, recs[i].toCustomer())
	}
	for i := range result.Data {
		ptrs = append(ptrs, &result.Data[i])
	}
	if err := s.fillOpenIssues(ctx, ptrs); err != nil {
		return result, err
	}

	result.HasMore = int64(page.Offset()+len(recs)) < result.Total
	return result, nil
}

// FindCustomerByDomain resolves the customer owning an email domain
func (s *Store) FindCustomerByDomain(ctx context.Context, domain string) (*types.Customer, error) {
	domain = strings.ToLower(strings.TrimSpace(domain))
	if domain == "" {
		return nil, fmt.Errorf("customer for empty domain: %w", types.ErrNotFound)
	}
	var rec customerRecord
	if err := s.db.WithContext(ctx).First(&rec, "domain = ?", domain).Error; err != nil {
		return nil, notFound(err, "customer for domain", domain)
	}
	c := rec.toCustomer()
	return &c, nil
}

func (s *Store) fillOpenIssues(ctx context.Context, customers []*types.Customer) error {
	if len(customers) == 0 {
		return nil
	}
	ids := make([]string, len(customers))
	for i, c := range customers {
		ids[i] = c.ID
	}

	var rows []struct {
		CustomerID string
		Count      int64
	}
	err := s.db.WithContext(ctx).Model(&feedbackRecord{}).
		Select("customer_id, COUNT(*) AS count").
		Where("customer_id IN ? AND status NOT IN ?", ids, []string{string(types.StatusResolved), string(types.StatusClosed)}).
		Group("customer_id").
		Scan(&rows).Error
	if err != nil {
		return fmt.Errorf("failed to count open issues: %w", err)
	}

	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.CustomerID] = r.Count
	}
	for _, c := range customers {
		c.OpenIssues = counts[c.ID]
	}
	return nil
}
