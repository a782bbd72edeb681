package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"gopherai-docqa/internal/ai"
	"gopherai-docqa/internal/model"
)

// Sealer encrypts API keys at rest.
type Sealer interface {
	Seal(plaintext string) (string, error)
	Open(sealed string) (string, error)
}

// GeneratorFactory builds a generator for a binding and its API key.
type GeneratorFactory func(binding ai.Binding, apiKey string) (AnswerGenerator, error)

type CredentialService struct {
	store   CredentialStore
	sealer  Sealer
	slot    *GeneratorSlot
	factory GeneratorFactory
	logger  *zap.Logger
}

func NewCredentialService(store CredentialStore, sealer Sealer, slot *GeneratorSlot, factory GeneratorFactory, logger *zap.Logger) *CredentialService {
	return &CredentialService{
		store:   store,
		sealer:  sealer,
		slot:    slot,
		factory: factory,
		logger:  logger.Named("credentials"),
	}
}

type SetCredentialInput struct {
	Provider string
	Model    string
	APIKey   string
}

type CredentialStatus struct {
	HasAPIKey bool   `json:"has_api_key"`
	Provider  string `json:"provider,omitempty"`
	Model     string `json:"model,omitempty"`
}

// Set validates the binding, persists the sealed key and swaps the active generator.
func (s *CredentialService) Set(ctx context.Context, input SetCredentialInput) (*CredentialStatus, error) {
	apiKey := strings.TrimSpace(input.APIKey)
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	binding, err := ai.NewBinding(input.Provider, input.Model)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, input.Provider)
	}
	generator, err := s.factory(binding, apiKey)
	if err != nil {
		return nil, fmt.Errorf("build generator failed: %w", err)
	}

	sealed, err := s.sealer.Seal(apiKey)
	if err != nil {
		return nil, fmt.Errorf("seal api key failed: %w", err)
	}
	cred := &model.ProviderCredential{
		Provider:     string(binding.Provider),
		Model:        binding.Model,
		SealedAPIKey: sealed,
	}
	if err := s.store.Save(ctx, cred); err != nil {
		return nil, err
	}

	s.slot.Set(binding, generator)
	s.logger.Info("llm binding updated", zap.String("provider", string(binding.Provider)), zap.String("model", binding.Model))
	return s.Status(), nil
}

func (s *CredentialService) Status() *CredentialStatus {
	_, binding, ok := s.slot.Current()
	if !ok {
		return &CredentialStatus{}
	}
	return &CredentialStatus{HasAPIKey: true, Provider: string(binding.Provider), Model: binding.Model}
}

// Restore loads the stored credential into the slot, falling back to the
// given config binding. A missing credential is not an error.
func (s *CredentialService) Restore(ctx context.Context, fallback SetCredentialInput) error {
	cred, err := s.store.Active(ctx)
	if err != nil {
		return err
	}
	if cred != nil {
		apiKey, err := s.sealer.Open(cred.SealedAPIKey)
		if err != nil {
			s.logger.Warn("stored api key cannot be opened, ignoring it", zap.Error(err))
		} else {
			binding, err := ai.NewBinding(cred.Provider, cred.Model)
			if err != nil {
				return err
			}
			generator, err := s.factory(binding, apiKey)
			if err != nil {
				return err
			}
			s.slot.Set(binding, generator)
			s.logger.Info("llm binding restored", zap.String("provider", cred.Provider), zap.String("model", cred.Model))
			return nil
		}
	}

	if strings.TrimSpace(fallback.APIKey) == "" {
		s.logger.Info("no llm credential configured yet")
		return nil
	}
	binding, err := ai.NewBinding(fallback.Provider, fallback.Model)
	if err != nil {
		return errors.Join(ErrUnknownProvider, err)
	}
	generator, err := s.factory(binding, strings.TrimSpace(fallback.APIKey))
	if err != nil {
		return err
	}
	s.slot.Set(binding, generator)
	return nil
}
