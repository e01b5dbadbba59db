package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kendall-kelly/av-pipeline-api/models"
	"github.com/ttacon/libphonenumber"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Placeholder values for customers created implicitly by card creation
const (
	PlaceholderCustomerName    = "New Customer"
	PlaceholderCustomerPhone   = "000-000-0000"
	PlaceholderCustomerAddress = "No address provided"
)

// customerSearchLimit caps GET /customers?search results
const customerSearchLimit = 20

// PlaceholderCustomerEmail derives a unique placeholder address so the unique email index holds
func PlaceholderCustomerEmail(id string) string {
	return fmt.Sprintf("customer+%s@example.com", id)
}

// CustomerInput carries the fields of a new customer
type CustomerInput struct {
	ID               string
	Name             string
	Email            string
	Phone            string
	Address          string
	IsReturnCustomer bool
}

// CustomerPatch changes only the non-nil fields
type CustomerPatch struct {
	Name             *string `json:"name"`
	Email            *string `json:"email"`
	Phone            *string `json:"phone"`
	Address          *string `json:"address"`
	IsReturnCustomer *bool   `json:"isReturnCustomer"`
}

// CustomerSummary is a customer with the number of cards it owns per pipeline
type CustomerSummary struct {
	models.Customer
	CardCounts map[string]int64 `json:"cardCounts"`
}

type CustomerService struct {
	db          *gorm.DB
	phoneRegion string
}

// NewCustomerService creates a customer service. phoneRegion is the ISO region used to parse
// phone numbers without a country code; empty disables phone validation.
func NewCustomerService(db *gorm.DB, phoneRegion string) *CustomerService {
	return &CustomerService{db: db, phoneRegion: phoneRegion}
}

func (s *CustomerService) find(ctx context.Context, id string) (*models.Customer, error) {
	var customer models.Customer
	err := s.db.WithContext(ctx).First(&customer, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NotFoundError("CUSTOMER_NOT_FOUND", fmt.Sprintf("Customer %s not found", id))
	}
	if err != nil {
		return nil, StorageError("DATABASE_ERROR", "Failed to load customer", err)
	}
	return &customer, nil
}

// Get returns one customer with card counts per pipeline type
func (s *CustomerService) Get(ctx context.Context, id string) (*CustomerSummary, error) {
	customer, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	var rows []struct {
		Type  string
		Count int64
	}
	err = s.db.WithContext(ctx).Model(&models.Card{}).
		Select("type, COUNT(*) AS count").
		Where("customer_id = ?", id).
		Group("type").
		Scan(&rows).Error
	if err != nil {
		return nil, StorageError("DATABASE_ERROR", "Failed to count customer cards", err)
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Type] = row.Count
	}
	return &CustomerSummary{Customer: *customer, CardCounts: counts}, nil
}

// Search matches name or email case-insensitively, ordered by name, at most 20 results
func (s *CustomerService) Search(ctx context.Context, term string) ([]models.Customer, error) {
	query := s.db.WithContext(ctx).Model(&models.Customer{})
	if term = strings.TrimSpace(term); term != "" {
		pattern := "%" + strings.ToLower(term) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ?", pattern, pattern)
	}

	customers := []models.Customer{}
	if err := query.Order("name ASC").Limit(customerSearchLimit).Find(&customers).Error; err != nil {
		return nil, StorageError("DATABASE_ERROR", "Failed to search customers", err)
	}
	return customers, nil
}

// normalizePhone validates the number for the configured region and formats it as E.164
func (s *CustomerService) normalizePhone(phone string) (string, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" || s.phoneRegion == "" {
		return phone, nil
	}
	num, err := libphonenumber.Parse(phone, s.phoneRegion)
	if err != nil || !libphonenumber.IsValidNumber(num) {
		return "", ValidationError("INVALID_PHONE", fmt.Sprintf("Invalid phone number %q", phone))
	}
	return libphonenumber.Format(num, libphonenumber.E164), nil
}

func (s *CustomerService) findByEmail(ctx context.Context, email string) (*models.Customer, error) {
	var existing models.Customer
	err := s.db.WithContext(ctx).Where("LOWER(email) = ?", email).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, StorageError("DATABASE_ERROR", "Failed to look up customer email", err)
	}
	return &existing, nil
}

// Create inserts a customer. When the email is already taken it returns the existing customer
// together with a Conflict error.
func (s *CustomerService) Create(ctx context.Context, in CustomerInput) (*models.Customer, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if name == "" || email == "" {
		return nil, ValidationError("MISSING_FIELDS", "Name and email are required")
	}

	phone, err := s.normalizePhone(in.Phone)
	if err != nil {
		return nil, err
	}

	existing, err := s.findByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, ConflictError("DUPLICATE_EMAIL", "A customer with this email already exists")
	}

	customer := &models.Customer{
		ID:               in.ID,
		Name:             name,
		Email:            email,
		Phone:            phone,
		Address:          strings.TrimSpace(in.Address),
		IsReturnCustomer: in.IsReturnCustomer,
		LastInteraction:  time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(customer).Error; err != nil {
		return nil, StorageError("DATABASE_ERROR", "Failed to create customer", err)
	}
	return customer, nil
}

// Update merges the patch into the customer; omitted fields keep their values
func (s *CustomerService) Update(ctx context.Context, id string, patch CustomerPatch) (*models.Customer, error) {
	customer, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, ValidationError("INVALID_NAME", "Name must not be empty")
		}
		customer.Name = name
	}
	if patch.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*patch.Email))
		if email == "" {
			return nil, ValidationError("INVALID_EMAIL", "Email must not be empty")
		}
		if email != customer.Email {
			existing, err := s.findByEmail(ctx, email)
			if err != nil {
				return nil, err
			}
			if existing != nil && existing.ID != customer.ID {
				return nil, ConflictError("DUPLICATE_EMAIL", "A customer with this email already exists")
			}
		}
		customer.Email = email
	}
	if patch.Phone != nil {
		phone, err := s.normalizePhone(*patch.Phone)
		if err != nil {
			return nil, err
		}
		customer.Phone = phone
	}
	if patch.Address != nil {
		customer.Address = strings.TrimSpace(*patch.Address)
	}
	if patch.IsReturnCustomer != nil {
		customer.IsReturnCustomer = *patch.IsReturnCustomer
	}
	customer.LastInteraction = time.Now().UTC()

	if err := s.db.WithContext(ctx).Save(customer).Error; err != nil {
		return nil, StorageError("DATABASE_ERROR", "Failed to update customer", err)
	}
	return customer, nil
}

// Delete removes a customer that owns no cards
func (s *CustomerService) Delete(ctx context.Context, id string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var customer models.Customer
		err := tx.First(&customer, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return NotFoundError("CUSTOMER_NOT_FOUND", fmt.Sprintf("Customer %s not found", id))
		}
		if err != nil {
			return err
		}

		var cards int64
		if err := tx.Model(&models.Card{}).Where("customer_id = ?", id).Count(&cards).Error; err != nil {
			return err
		}
		if cards > 0 {
			return ConflictError("CUSTOMER_HAS_CARDS",
				fmt.Sprintf("Customer has %d pipeline card(s); delete or reassign them first", cards))
		}
		return tx.Delete(&customer).Error
	})
	return asServiceError(err, "Failed to delete customer")
}

// FindOrCreatePlaceholder returns the customer with the given id, creating a placeholder
// customer when none exists. The boolean reports whether a row was created. Run it on the
// transaction that inserts the card so both writes commit together.
func (s *CustomerService) FindOrCreatePlaceholder(ctx context.Context, id string) (*models.Customer, bool, error) {
	if strings.TrimSpace(id) == "" {
		return nil, false, ValidationError("MISSING_CUSTOMER", "Customer id is required")
	}

	db := s.db.WithContext(ctx)
	var existing models.Customer
	err := db.First(&existing, "id = ?", id).Error
	if err == nil {
		return &existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	email := PlaceholderCustomerEmail(id)
	taken, err := s.findByEmail(ctx, email)
	if err != nil {
		return nil, false, err
	}
	if taken != nil {
		return nil, false, ConflictError("DUPLICATE_EMAIL",
			fmt.Sprintf("Placeholder email %s already belongs to customer %s", email, taken.ID))
	}

	placeholder := &models.Customer{
		ID:              id,
		Name:            PlaceholderCustomerName,
		Email:           email,
		Phone:           PlaceholderCustomerPhone,
		Address:         PlaceholderCustomerAddress,
		LastInteraction: time.Now().UTC(),
	}
	result := db.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).Create(placeholder)
	if result.Error != nil {
		return nil, false, result.Error
	}
	if result.RowsAffected == 1 {
		return placeholder, true, nil
	}

	var customer models.Customer
	err = db.First(&customer, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, ConflictError("CUSTOMER_CHANGED", fmt.Sprintf("Customer %s could not be created", id))
	}
	if err != nil {
		return nil, false, err
	}
	return &customer, false, nil
}
