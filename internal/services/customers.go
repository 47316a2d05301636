package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/rojanatorn/apiserver/internal/store"
	"github.com/rojanatorn/apiserver/types"
)

const (
	defaultCustomerLimit = 100
	customerActivityMax  = 50
)

// Customer validation errors mapped to 400 at the handler boundary.
var (
	ErrCustomerNameRequired = errors.New("customer name is required")
	ErrNoteRequired         = errors.New("note text is required")
)

// CustomerService manages customer records and their activity feed.
type CustomerService struct {
	repo *store.CustomerRepository
}

func NewCustomerService(repo *store.CustomerRepository) *CustomerService {
	return &CustomerService{repo: repo}
}

func (s *CustomerService) List(ctx context.Context, filter store.CustomerFilter, limit, offset int) (ListResult[types.Customer], error) {
	limit, offset = clampPage(limit, offset, defaultCustomerLimit)
	items, total, err := s.repo.List(ctx, filter, limit, offset)
	if err != nil {
		return ListResult[types.Customer]{}, err
	}
	return ListResult[types.Customer]{Items: items, TotalCount: total, Limit: limit, Offset: offset}, nil
}

func (s *CustomerService) Get(ctx context.Context, id string) (types.Customer, error) {
	return s.repo.Get(ctx, id)
}

func (s *CustomerService) Create(ctx context.Context, c types.Customer) (types.Customer, error) {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return types.Customer{}, ErrCustomerNameRequired
	}
	c.ID = uuid.NewString()
	return s.repo.Create(ctx, c)
}

func (s *CustomerService) Update(ctx context.Context, c types.Customer) (types.Customer, error) {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return types.Customer{}, ErrCustomerNameRequired
	}
	return s.repo.Update(ctx, c)
}

// AppendNote adds a note line to the customer's append-only notes log.
func (s *CustomerService) AppendNote(ctx context.Context, id, note string) (types.Customer, error) {
	note = strings.TrimSpace(note)
	if note == "" {
		return types.Customer{}, ErrNoteRequired
	}
	return s.repo.AppendNote(ctx, id, note)
}

func (s *CustomerService) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// Activity returns the customer's recent manufacturing history.
func (s *CustomerService) Activity(ctx context.Context, id string) ([]types.CustomerActivityEntry, error) {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.Activity(ctx, id, customerActivityMax)
}
