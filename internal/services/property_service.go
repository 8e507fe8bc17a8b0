package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/homekrypto/hkt-api/internal/models"
)

var decimalPattern = regexp.MustCompile(`^\d+(\.\d{1,2})?$`)

type PropertyRepository interface {
	Create(ctx context.Context, p *models.Property) (*models.Property, error)
	GetByID(ctx context.Context, id string) (*models.Property, error)
	ListActive(ctx context.Context) ([]*models.Property, error)
	ListAll(ctx context.Context) ([]*models.Property, error)
	Update(ctx context.Context, id string, p *models.Property) (*models.Property, error)
	Delete(ctx context.Context, id string) error
}

type propertyAgentRepository interface {
	GetByID(ctx context.Context, id string) (*models.Agent, error)
}

// PropertyService manages fractional-ownership listings. Public reads
// attach the referenced agent's contact info when that agent is approved.
type PropertyService struct {
	properties PropertyRepository
	agents     propertyAgentRepository
	logger     *slog.Logger
}

func NewPropertyService(properties PropertyRepository, agents propertyAgentRepository, log *slog.Logger) *PropertyService {
	return &PropertyService{
		properties: properties,
		agents:     agents,
		logger:     log,
	}
}

type PropertyInput struct {
	ID            string
	Name          string
	Location      string
	Description   string
	PricePerNight string
	TotalShares   int
	SharePrice    string
	Images        []string
	Amenities     []string
	MaxGuests     int
	Bedrooms      int
	Bathrooms     int
	IsActive      bool
	AgentID       *string
}

// PropertyView pairs a listing with the optional agent contact block.
type PropertyView struct {
	Property *models.Property
	Agent    *models.PropertyAgentInfo
}

func validatePropertyInput(input *PropertyInput) error {
	if strings.TrimSpace(input.Name) == "" || strings.TrimSpace(input.Location) == "" {
		return models.ErrBadRequest
	}
	if input.TotalShares < models.MinPropertyShares || input.TotalShares > models.MaxPropertyShares {
		return models.ErrBadRequest
	}
	if !decimalPattern.MatchString(input.PricePerNight) || !decimalPattern.MatchString(input.SharePrice) {
		return models.ErrBadRequest
	}
	return nil
}

// Create validates and stores a listing. The caller supplies the
// slug-style ID; a duplicate surfaces as ErrConflict.
func (s *PropertyService) Create(ctx context.Context, input PropertyInput) (*models.Property, error) {
	if strings.TrimSpace(input.ID) == "" {
		return nil, models.ErrBadRequest
	}
	if err := validatePropertyInput(&input); err != nil {
		return nil, err
	}
	if err := s.checkAgentRef(ctx, input.AgentID); err != nil {
		return nil, err
	}

	created, err := s.properties.Create(ctx, propertyFromInput(&input))
	if err != nil {
		return nil, err
	}

	s.logger.Info("property created", "property_id", created.ID)
	return created, nil
}

// Update replaces a listing's fields. The ID itself is immutable.
func (s *PropertyService) Update(ctx context.Context, id string, input PropertyInput) (*models.Property, error) {
	if err := validatePropertyInput(&input); err != nil {
		return nil, err
	}
	if err := s.checkAgentRef(ctx, input.AgentID); err != nil {
		return nil, err
	}

	input.ID = id
	return s.properties.Update(ctx, id, propertyFromInput(&input))
}

func (s *PropertyService) Delete(ctx context.Context, id string) error {
	return s.properties.Delete(ctx, id)
}

// Get returns one active listing with agent contact info attached when
// available. Inactive listings are not served publicly.
func (s *PropertyService) Get(ctx context.Context, id string) (*PropertyView, error) {
	property, err := s.properties.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !property.IsActive {
		return nil, models.ErrNotFound
	}
	return &PropertyView{Property: property, Agent: s.agentInfo(ctx, property)}, nil
}

// ListActive returns the public catalog with agent contact blocks.
func (s *PropertyService) ListActive(ctx context.Context) ([]*PropertyView, error) {
	properties, err := s.properties.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	views := make([]*PropertyView, 0, len(properties))
	for _, p := range properties {
		views = append(views, &PropertyView{Property: p, Agent: s.agentInfo(ctx, p)})
	}
	return views, nil
}

// ListAll returns every listing, active or not, for the admin console.
func (s *PropertyService) ListAll(ctx context.Context) ([]*models.Property, error) {
	return s.properties.ListAll(ctx)
}

func (s *PropertyService) checkAgentRef(ctx context.Context, agentID *string) error {
	if agentID == nil || *agentID == "" {
		return nil
	}
	if _, err := s.agents.GetByID(ctx, *agentID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrBadRequest
		}
		return fmt.Errorf("checking agent reference: %w", err)
	}
	return nil
}

// agentInfo loads the referenced agent's contact block. Lookups that fail
// degrade to a listing without contact info rather than failing the read.
func (s *PropertyService) agentInfo(ctx context.Context, property *models.Property) *models.PropertyAgentInfo {
	if property.AgentID == nil || *property.AgentID == "" {
		return nil
	}

	agent, err := s.agents.GetByID(ctx, *property.AgentID)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			s.logger.Error("failed to load property agent", "property_id", property.ID, "error", err)
		}
		return nil
	}
	if agent.Status != models.AgentStatusApproved || !agent.IsActive {
		return nil
	}

	return &models.PropertyAgentInfo{
		FirstName: agent.FirstName,
		LastName:  agent.LastName,
		Email:     agent.Email,
		Phone:     agent.Phone,
		City:      agent.City,
	}
}

func propertyFromInput(input *PropertyInput) *models.Property {
	agentID := input.AgentID
	if agentID != nil && *agentID == "" {
		agentID = nil
	}
	return &models.Property{
		ID:            strings.TrimSpace(input.ID),
		Name:          strings.TrimSpace(input.Name),
		Location:      strings.TrimSpace(input.Location),
		Description:   input.Description,
		PricePerNight: input.PricePerNight,
		TotalShares:   input.TotalShares,
		SharePrice:    input.SharePrice,
		Images:        input.Images,
		Amenities:     input.Amenities,
		MaxGuests:     input.MaxGuests,
		Bedrooms:      input.Bedrooms,
		Bathrooms:     input.Bathrooms,
		IsActive:      input.IsActive,
		AgentID:       agentID,
	}
}
