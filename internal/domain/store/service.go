package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/exp/slog"
)

// Servicer интерфейс реестра магазинов
type Servicer interface {
	Provision(ctx context.Context, code, name, location string) (*Store, error)
	Get(ctx context.Context, code string) (*Store, error)
	List(ctx context.Context, activeOnly bool) ([]*Store, error)
	Deactivate(ctx context.Context, code string) error
}

// Service реестр магазинов
type Service struct {
	repo Repository
	log  *slog.Logger
}

// NewService создает сервис реестра магазинов
func NewService(repo Repository, log *slog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log.With("component", "store_service"),
	}
}

// Provision регистрирует новый магазин. Новый магазин получает реплей
// только от своей контрольной точки — исторические широковещательные
// события до ввода в эксплуатацию ему не доставляются.
func (s *Service) Provision(ctx context.Context, code, name, location string) (*Store, error) {
	code = strings.TrimSpace(strings.ToUpper(code))
	if code == "" {
		return nil, ErrInvalidCode
	}

	now := time.Now().UTC()
	st := &Store{
		Code:      code,
		Name:      name,
		Location:  location,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(ctx, st); err != nil {
		return nil, fmt.Errorf("provision store: %w", err)
	}

	s.log.Info("store provisioned", "code", st.Code, "provisioned_seq", st.ProvisionedSeq)
	return st, nil
}

// Get возвращает магазин по коду
func (s *Service) Get(ctx context.Context, code string) (*Store, error) {
	st, err := s.repo.GetByCode(ctx, strings.ToUpper(code))
	if err != nil {
		return nil, fmt.Errorf("get store: %w", err)
	}
	return st, nil
}

// List возвращает магазины
func (s *Service) List(ctx context.Context, activeOnly bool) ([]*Store, error) {
	stores, err := s.repo.List(ctx, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("list stores: %w", err)
	}
	return stores, nil
}

// Deactivate помечает магазин выведенным из эксплуатации
func (s *Service) Deactivate(ctx context.Context, code string) error {
	if err := s.repo.Deactivate(ctx, strings.ToUpper(code)); err != nil {
		return fmt.Errorf("deactivate store: %w", err)
	}
	s.log.Info("store deactivated", "code", code)
	return nil
}
