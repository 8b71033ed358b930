package fieldops

import (
	"context"
	"errors"
	"math"
	"strings"
)

// LocationInput is the payload accepted by CreateLocation.
type LocationInput struct {
	Name               string   `json:"name"`
	Type               string   `json:"type"`
	Address            string   `json:"address"`
	Latitude           *float64 `json:"latitude"`
	Longitude          *float64 `json:"longitude"`
	UseCurrentLocation bool     `json:"use_current_location"`
}

func validCoordinates(lat, lon *float64) bool {
	if lat == nil && lon == nil {
		return true
	}
	if lat == nil || lon == nil {
		return false
	}
	if math.IsNaN(*lat) || math.IsNaN(*lon) {
		return false
	}
	return *lat >= -90 && *lat <= 90 && *lon >= -180 && *lon <= 180
}

// CreateLocation stores a location profile for the user. A user has at most
// one base location.
func (s *Service) CreateLocation(ctx context.Context, userID string, in LocationInput) (LocationProfile, error) {
	name := strings.TrimSpace(in.Name)
	kind := strings.ToLower(strings.TrimSpace(in.Type))
	address := strings.TrimSpace(in.Address)
	if name == "" {
		return LocationProfile{}, invalid("name is required")
	}
	if kind != LocationBase && kind != LocationClient {
		return LocationProfile{}, invalid("type must be base or client")
	}
	if !in.UseCurrentLocation && address == "" {
		return LocationProfile{}, invalid("address is required unless use_current_location is set")
	}
	if !validCoordinates(in.Latitude, in.Longitude) {
		return LocationProfile{}, invalid("invalid coordinates")
	}
	if _, err := s.store.Users().Find(ctx, userID); err != nil {
		return LocationProfile{}, err
	}
	if kind == LocationBase {
		_, err := s.store.Locations().FindBase(ctx, userID)
		switch {
		case err == nil:
			return LocationProfile{}, newError(ErrAlreadyExists, "base location already exists")
		case !errors.Is(err, ErrNotFound):
			return LocationProfile{}, err
		}
	}
	p := &LocationProfile{
		UserID:             userID,
		Name:               name,
		Type:               kind,
		Address:            address,
		Latitude:           in.Latitude,
		Longitude:          in.Longitude,
		UseCurrentLocation: in.UseCurrentLocation,
		CreatedAt:          s.now(),
	}
	if err := s.store.Locations().Create(ctx, p); err != nil {
		return LocationProfile{}, err
	}
	return *p, nil
}

// ListLocations returns the user's profiles, newest first.
func (s *Service) ListLocations(ctx context.Context, userID string) ([]LocationProfile, error) {
	list, err := s.store.Locations().ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []LocationProfile{}
	}
	return list, nil
}

// DeleteLocation removes one of the user's profiles.
func (s *Service) DeleteLocation(ctx context.Context, userID, id string) error {
	if err := s.store.Locations().Delete(ctx, id, userID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return newError(ErrNotFound, "location not found")
		}
		return err
	}
	return nil
}
