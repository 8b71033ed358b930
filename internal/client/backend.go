package client

import (
	"context"

	"audient.app/internal/session"
	"audient.app/internal/workhours"
)

// SessionBackend adapts Client to session.Backend.
type SessionBackend struct {
	client *Client
}

var _ session.Backend = (*SessionBackend)(nil)

func NewSessionBackend(c *Client) *SessionBackend { return &SessionBackend{client: c} }

func (b *SessionBackend) Login(ctx context.Context, req session.LoginRequest) (session.LoginResponse, error) {
	lat, lon := req.Latitude, req.Longitude
	res, err := b.client.Login(ctx, LoginRequest{
		Email:     req.Email,
		Password:  req.Password,
		Latitude:  &lat,
		Longitude: &lon,
	})
	if err != nil {
		return session.LoginResponse{}, err
	}
	cfg, err := workhours.Parse(res.Config.LoginTime, res.Config.LogoffTime, res.Config.Timezone)
	if err != nil {
		// Parse already fell back to defaults.
		cfg = workhours.Default()
	}
	return session.LoginResponse{
		User: session.User{
			ID:             res.User.ID,
			Name:           res.User.Name,
			Email:          res.User.Email,
			Role:           res.User.Role,
			OrganizationID: res.User.OrganizationID,
		},
		Token:  res.Token,
		Config: cfg,
		Period: res.Period,
	}, nil
}

func (b *SessionBackend) OrgConfig(ctx context.Context, token string) (workhours.Config, error) {
	return b.client.OrgConfig(ctx, token)
}
