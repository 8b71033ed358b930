package fieldops

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"audient.app/internal/audit"
)

// ClientInput is the payload accepted by CreateClient.
type ClientInput struct {
	Name                  string `json:"client_name"`
	Code                  string `json:"client_code"`
	IndustrySector        string `json:"industry_sector"`
	CompanySize           string `json:"company_size"`
	HeadquartersLocation  string `json:"headquarters_location"`
	PrimaryOfficeLocation string `json:"primary_office_location"`
	WebsiteDomain         string `json:"website_domain"`
	Tier                  string `json:"client_tier"`
}

// ClientPatch is a partial client update. Nil fields are left unchanged and
// the code is immutable.
type ClientPatch struct {
	Name                  *string `json:"client_name"`
	IndustrySector        *string `json:"industry_sector"`
	CompanySize           *string `json:"company_size"`
	HeadquartersLocation  *string `json:"headquarters_location"`
	PrimaryOfficeLocation *string `json:"primary_office_location"`
	WebsiteDomain         *string `json:"website_domain"`
	Tier                  *string `json:"client_tier"`
	Health                *string `json:"engagement_health"`
	Active                *bool   `json:"is_active"`
}

func (p ClientPatch) Empty() bool {
	return p.Name == nil && p.IndustrySector == nil && p.CompanySize == nil &&
		p.HeadquartersLocation == nil && p.PrimaryOfficeLocation == nil &&
		p.WebsiteDomain == nil && p.Tier == nil && p.Health == nil && p.Active == nil
}

// StakeholderInput is the payload accepted by AddStakeholder.
type StakeholderInput struct {
	ContactName     string `json:"contact_name"`
	DesignationRole string `json:"designation_role"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	Notes           string `json:"notes"`
}

func validTier(t string) bool {
	switch t {
	case TierStrategic, TierNormal, TierLowTouch:
		return true
	}
	return false
}

func validHealth(h string) bool {
	switch h {
	case HealthGood, HealthNeutral, HealthRisk:
		return true
	}
	return false
}

func setTrimmed(dst, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

func errClientNotFound() error { return newError(ErrNotFound, "client not found") }

// CreateClient adds a client owned by the user. New clients start Normal,
// Neutral and active unless a tier is given.
func (s *Service) CreateClient(ctx context.Context, userID string, in ClientInput) (Client, error) {
	name := strings.TrimSpace(in.Name)
	code := strings.TrimSpace(in.Code)
	if name == "" || code == "" {
		return Client{}, invalid("client name and client code are required")
	}
	tier := strings.TrimSpace(in.Tier)
	if tier == "" {
		tier = TierNormal
	}
	if !validTier(tier) {
		return Client{}, invalid("client_tier must be Strategic, Normal or Low Touch")
	}
	if _, err := s.store.Users().Find(ctx, userID); err != nil {
		return Client{}, err
	}
	now := s.now()
	c := &Client{
		UserID:                userID,
		Name:                  name,
		Code:                  code,
		IndustrySector:        strings.TrimSpace(in.IndustrySector),
		CompanySize:           strings.TrimSpace(in.CompanySize),
		HeadquartersLocation:  strings.TrimSpace(in.HeadquartersLocation),
		PrimaryOfficeLocation: strings.TrimSpace(in.PrimaryOfficeLocation),
		WebsiteDomain:         strings.TrimSpace(in.WebsiteDomain),
		Tier:                  tier,
		Health:                HealthNeutral,
		Active:                true,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if err := s.store.Clients().Create(ctx, c); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return Client{}, newError(ErrAlreadyExists, fmt.Sprintf("client code %q already exists", code))
		}
		return Client{}, err
	}
	_ = audit.LogEvent(ctx, "client.create", map[string]any{"user_id": userID, "client_id": c.ID})
	return *c, nil
}

// ListClients returns the user's clients, newest first.
func (s *Service) ListClients(ctx context.Context, userID string) ([]Client, error) {
	list, err := s.store.Clients().ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []Client{}
	}
	return list, nil
}

func (s *Service) GetClient(ctx context.Context, userID, id string) (Client, error) {
	c, err := s.store.Clients().Find(ctx, id, userID)
	if errors.Is(err, ErrNotFound) {
		return Client{}, errClientNotFound()
	}
	if err != nil {
		return Client{}, err
	}
	return *c, nil
}

// UpdateClient applies a partial update to one of the user's clients.
func (s *Service) UpdateClient(ctx context.Context, userID, id string, patch ClientPatch) (Client, error) {
	c, err := s.store.Clients().Find(ctx, id, userID)
	if errors.Is(err, ErrNotFound) {
		return Client{}, errClientNotFound()
	}
	if err != nil {
		return Client{}, err
	}
	if patch.Empty() {
		return Client{}, invalid("no fields to update")
	}

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return Client{}, invalid("client_name cannot be empty")
		}
		c.Name = name
	}
	if patch.Tier != nil {
		if !validTier(*patch.Tier) {
			return Client{}, invalid("client_tier must be Strategic, Normal or Low Touch")
		}
		c.Tier = *patch.Tier
	}
	if patch.Health != nil {
		if !validHealth(*patch.Health) {
			return Client{}, invalid("engagement_health must be Good, Neutral or Risk")
		}
		c.Health = *patch.Health
	}
	setTrimmed(&c.IndustrySector, patch.IndustrySector)
	setTrimmed(&c.CompanySize, patch.CompanySize)
	setTrimmed(&c.HeadquartersLocation, patch.HeadquartersLocation)
	setTrimmed(&c.PrimaryOfficeLocation, patch.PrimaryOfficeLocation)
	setTrimmed(&c.WebsiteDomain, patch.WebsiteDomain)
	if patch.Active != nil {
		c.Active = *patch.Active
	}
	c.UpdatedAt = s.now()

	if err := s.store.Clients().Update(ctx, c); err != nil {
		if errors.Is(err, ErrNotFound) {
			return Client{}, errClientNotFound()
		}
		return Client{}, err
	}
	return *c, nil
}

// DeleteClient removes one of the user's clients with its stakeholders.
func (s *Service) DeleteClient(ctx context.Context, userID, id string) error {
	if err := s.store.Clients().Delete(ctx, id, userID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return errClientNotFound()
		}
		return err
	}
	_ = audit.LogEvent(ctx, "client.delete", map[string]any{"user_id": userID, "client_id": id})
	return nil
}

// AddStakeholder records a contact at one of the user's clients.
func (s *Service) AddStakeholder(ctx context.Context, userID, clientID string, in StakeholderInput) (Stakeholder, error) {
	if _, err := s.GetClient(ctx, userID, clientID); err != nil {
		return Stakeholder{}, err
	}
	name := strings.TrimSpace(in.ContactName)
	if name == "" {
		return Stakeholder{}, invalid("contact name is required")
	}
	now := s.now()
	st := &Stakeholder{
		ClientID:        clientID,
		ContactName:     name,
		DesignationRole: strings.TrimSpace(in.DesignationRole),
		Email:           strings.TrimSpace(in.Email),
		Phone:           strings.TrimSpace(in.Phone),
		Notes:           strings.TrimSpace(in.Notes),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.store.Clients().AddStakeholder(ctx, st); err != nil {
		return Stakeholder{}, err
	}
	return *st, nil
}

// ListStakeholders returns a client's contacts, oldest first.
func (s *Service) ListStakeholders(ctx context.Context, userID, clientID string) ([]Stakeholder, error) {
	if _, err := s.GetClient(ctx, userID, clientID); err != nil {
		return nil, err
	}
	list, err := s.store.Clients().ListStakeholders(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []Stakeholder{}
	}
	return list, nil
}

func (s *Service) DeleteStakeholder(ctx context.Context, userID, clientID, id string) error {
	if _, err := s.GetClient(ctx, userID, clientID); err != nil {
		return err
	}
	if err := s.store.Clients().DeleteStakeholder(ctx, id, clientID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return newError(ErrNotFound, "stakeholder not found")
		}
		return err
	}
	return nil
}
