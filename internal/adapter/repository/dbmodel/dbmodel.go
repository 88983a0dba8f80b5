// Package dbmodel holds the row types shared by the SQL repositories.
package dbmodel

import (
	"time"

	"github.com/guregu/null/v5"
	"github.com/vadimbarashkov/shortlink/internal/entity"
)

const LinkColumns = `id, code, target_url, owner_id, click_count, created_at, last_accessed_at`

const AccessColumns = `id, link_id, ip_address, city, region, country, coordinates, organization, postal_code, timezone, ` +
	`browser_family, browser_version, os_family, os_version, device_family, observed_at`

type Link struct {
	ID             int64      `db:"id"`
	Code           string     `db:"code"`
	TargetURL      string     `db:"target_url"`
	OwnerID        *string    `db:"owner_id"`
	ClickCount     int64      `db:"click_count"`
	CreatedAt      time.Time  `db:"created_at"`
	LastAccessedAt *time.Time `db:"last_accessed_at"`
}

func (l *Link) ToEntity() *entity.Link {
	return &entity.Link{
		ID:             l.ID,
		Code:           l.Code,
		TargetURL:      l.TargetURL,
		OwnerID:        l.OwnerID,
		ClickCount:     l.ClickCount,
		CreatedAt:      l.CreatedAt,
		LastAccessedAt: l.LastAccessedAt,
	}
}

type AccessRecord struct {
	ID             int64       `db:"id"`
	LinkID         int64       `db:"link_id"`
	IPAddress      string      `db:"ip_address"`
	City           null.String `db:"city"`
	Region         null.String `db:"region"`
	Country        null.String `db:"country"`
	Coordinates    null.String `db:"coordinates"`
	Organization   null.String `db:"organization"`
	PostalCode     null.String `db:"postal_code"`
	Timezone       null.String `db:"timezone"`
	BrowserFamily  null.String `db:"browser_family"`
	BrowserVersion null.String `db:"browser_version"`
	OSFamily       null.String `db:"os_family"`
	OSVersion      null.String `db:"os_version"`
	DeviceFamily   null.String `db:"device_family"`
	ObservedAt     time.Time   `db:"observed_at"`
}

// Args returns the insert arguments in AccessColumns order, without id.
func (r *AccessRecord) Args() []any {
	return []any{
		r.LinkID, r.IPAddress,
		r.City, r.Region, r.Country, r.Coordinates, r.Organization, r.PostalCode, r.Timezone,
		r.BrowserFamily, r.BrowserVersion, r.OSFamily, r.OSVersion, r.DeviceFamily,
		r.ObservedAt,
	}
}

func NewAccessRecord(rec *entity.AccessRecord) *AccessRecord {
	return &AccessRecord{
		ID:             rec.ID,
		LinkID:         rec.LinkID,
		IPAddress:      rec.IPAddress,
		City:           rec.City,
		Region:         rec.Region,
		Country:        rec.Country,
		Coordinates:    rec.Coordinates,
		Organization:   rec.Organization,
		PostalCode:     rec.PostalCode,
		Timezone:       rec.Timezone,
		BrowserFamily:  rec.BrowserFamily,
		BrowserVersion: rec.BrowserVersion,
		OSFamily:       rec.OSFamily,
		OSVersion:      rec.OSVersion,
		DeviceFamily:   rec.DeviceFamily,
		ObservedAt:     rec.ObservedAt,
	}
}

func (r *AccessRecord) ToEntity() entity.AccessRecord {
	return entity.AccessRecord{
		ID:        r.ID,
		LinkID:    r.LinkID,
		IPAddress: r.IPAddress,
		Geo: entity.Geo{
			City:         r.City,
			Region:       r.Region,
			Country:      r.Country,
			Coordinates:  r.Coordinates,
			Organization: r.Organization,
			PostalCode:   r.PostalCode,
			Timezone:     r.Timezone,
		},
		Client: entity.Client{
			BrowserFamily:  r.BrowserFamily,
			BrowserVersion: r.BrowserVersion,
			OSFamily:       r.OSFamily,
			OSVersion:      r.OSVersion,
			DeviceFamily:   r.DeviceFamily,
		},
		ObservedAt: r.ObservedAt,
	}
}
