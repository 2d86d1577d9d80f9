package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"listino/internal/dto"
	"listino/internal/infra"
	"listino/internal/model"
	"listino/internal/repository"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// ConfigService manages the Magento credentials: persisted in the DB so they
// survive restarts, and pushed into the live client on every save.
type ConfigService interface {
	Get(ctx context.Context) (*dto.ConfigResponse, error)
	Save(ctx context.Context, req dto.SaveConfigRequest, actor string) (*dto.ConfigResponse, error)
	TestConnection(ctx context.Context) *dto.TestConnectionResponse
	StoreViews(ctx context.Context) ([]dto.StoreViewItem, error)
}

type configService struct {
	repo   repository.ConfigRepository
	client *infra.MagentoClient
}

func NewConfigService(repo repository.ConfigRepository, client *infra.MagentoClient) ConfigService {
	return &configService{repo: repo, client: client}
}

func (s *configService) Get(ctx context.Context) (*dto.ConfigResponse, error) {
	cfg, err := s.repo.Get(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: nessuna configurazione salvata", ErrNotFound)
		}
		return nil, err
	}
	return toConfigResponse(cfg), nil
}

func (s *configService) Save(ctx context.Context, req dto.SaveConfigRequest, actor string) (*dto.ConfigResponse, error) {
	cfg := &model.MagentoConfig{
		MagentoURL:  req.MagentoURL,
		AccessToken: req.AccessToken,
		UpdatedAt:   time.Now(),
	}
	if err := s.repo.Save(ctx, cfg); err != nil {
		return nil, err
	}
	s.client.Configure(cfg.MagentoURL, cfg.AccessToken)

	log.Info().Str("actor", actor).Str("magento_url", cfg.MagentoURL).Msg("storefront credentials updated")
	return toConfigResponse(cfg), nil
}

// TestConnection never errors: a failed probe is a valid answer for the UI.
func (s *configService) TestConnection(ctx context.Context) *dto.TestConnectionResponse {
	count, err := s.client.TestConnection(ctx)
	if err != nil {
		return &dto.TestConnectionResponse{Success: false, Message: err.Error()}
	}
	return &dto.TestConnectionResponse{
		Success:     true,
		Message:     fmt.Sprintf("Connessione riuscita: %d store view", count),
		StoresCount: count,
	}
}

func (s *configService) StoreViews(ctx context.Context) ([]dto.StoreViewItem, error) {
	views, err := s.client.StoreViews(ctx)
	if err != nil {
		if errors.Is(err, infra.ErrNotConfigured) {
			return nil, fmt.Errorf("%w: %s", ErrValidation, err.Error())
		}
		return nil, err
	}
	items := make([]dto.StoreViewItem, 0, len(views))
	for _, v := range views {
		items = append(items, dto.StoreViewItem{ID: v.ID, Code: v.Code, Name: v.Name})
	}
	return items, nil
}

func toConfigResponse(cfg *model.MagentoConfig) *dto.ConfigResponse {
	suffix := cfg.AccessToken
	if len(suffix) > 4 {
		suffix = suffix[len(suffix)-4:]
	}
	return &dto.ConfigResponse{
		MagentoURL:  cfg.MagentoURL,
		TokenSuffix: suffix,
		UpdatedAt:   cfg.UpdatedAt.Format(time.RFC3339),
	}
}
