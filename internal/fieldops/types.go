package fieldops

import (
	"time"

	"audient.app/internal/workhours"
)

// User is an employee or administrator of an organization.
type User struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	PasswordHash   string    `json:"-"`
	Role           string    `json:"role"`
	OrganizationID string    `json:"organization_id,omitempty"`
	LoginCount     int       `json:"login_count"`
	CreatedAt      time.Time `json:"created_at"`
}

// Organization owns the work-hours window its members are evaluated against.
type Organization struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	WorkHours workhours.Config `json:"work_hours"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// Attendance is written once per successful login.
type Attendance struct {
	ID        string           `json:"id"`
	UserID    string           `json:"user_id"`
	LoginAt   time.Time        `json:"login_at"`
	Latitude  *float64         `json:"latitude"`
	Longitude *float64         `json:"longitude"`
	Period    workhours.Period `json:"period,omitempty"`
}

// AttendanceEntry is an attendance row joined with its user, as shown to admins.
type AttendanceEntry struct {
	Attendance
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

const (
	LocationBase   = "base"
	LocationClient = "client"
)

// LocationProfile is a named place a field employee works from or visits.
type LocationProfile struct {
	ID                 string    `json:"id"`
	UserID             string    `json:"user_id"`
	Name               string    `json:"name"`
	Type               string    `json:"type"`
	Address            string    `json:"address,omitempty"`
	Latitude           *float64  `json:"latitude"`
	Longitude          *float64  `json:"longitude"`
	UseCurrentLocation bool      `json:"use_current_location"`
	CreatedAt          time.Time `json:"created_at"`
}

// Presence statuses shown on the admin dashboard.
const (
	StatusActive  = "Active"
	StatusAway    = "Away"
	StatusOffline = "Offline"
)

// EmployeeSummary is a member of the admin's organization with their latest login.
type EmployeeSummary struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	Email         string           `json:"email"`
	Role          string           `json:"role"`
	LoginCount    int              `json:"login_count"`
	CreatedAt     time.Time        `json:"created_at"`
	LastLoginAt   *time.Time       `json:"last_login_at"`
	LastLatitude  *float64         `json:"last_latitude"`
	LastLongitude *float64         `json:"last_longitude"`
	LastPeriod    workhours.Period `json:"last_period,omitempty"`
	Status        string           `json:"status"`
}

// Client tiers.
const (
	TierStrategic = "Strategic"
	TierNormal    = "Normal"
	TierLowTouch  = "Low Touch"
)

// Engagement health values.
const (
	HealthGood    = "Good"
	HealthNeutral = "Neutral"
	HealthRisk    = "Risk"
)

// Client is an account a field employee manages. Codes are unique across all users.
type Client struct {
	ID                    string    `json:"id"`
	UserID                string    `json:"user_id"`
	Name                  string    `json:"client_name"`
	Code                  string    `json:"client_code"`
	IndustrySector        string    `json:"industry_sector"`
	CompanySize           string    `json:"company_size"`
	HeadquartersLocation  string    `json:"headquarters_location"`
	PrimaryOfficeLocation string    `json:"primary_office_location"`
	WebsiteDomain         string    `json:"website_domain"`
	Tier                  string    `json:"client_tier"`
	Health                string    `json:"engagement_health"`
	Active                bool      `json:"is_active"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// Stakeholder is a contact at a client.
type Stakeholder struct {
	ID              string    `json:"id"`
	ClientID        string    `json:"client_id"`
	ContactName     string    `json:"contact_name"`
	DesignationRole string    `json:"designation_role"`
	Email           string    `json:"email"`
	Phone           string    `json:"phone"`
	Notes           string    `json:"notes"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Recording is the transcript of a field conversation. Audio is never stored.
type Recording struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	Transcript      string    `json:"transcript"`
	DurationSeconds *int      `json:"duration_seconds"`
	CreatedAt       time.Time `json:"created_at"`
}
