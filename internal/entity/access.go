package entity

import (
	"time"

	"github.com/guregu/null/v5"
)

// AccessContext carries the request data needed to enrich a resolution.
type AccessContext struct {
	IP        string
	UserAgent string
}

// AccessEvent is a single resolution waiting to be enriched and recorded.
type AccessEvent struct {
	LinkID     int64
	IP         string
	UserAgent  string
	ObservedAt time.Time
}

// Geo holds the geolocation of a client IP. Every field is independently nullable.
type Geo struct {
	City         null.String
	Region       null.String
	Country      null.String
	Coordinates  null.String
	Organization null.String
	PostalCode   null.String
	Timezone     null.String
}

// Client holds the classification of a user-agent string.
type Client struct {
	BrowserFamily  null.String
	BrowserVersion null.String
	OSFamily       null.String
	OSVersion      null.String
	DeviceFamily   null.String
}

// Enrichment is the best-effort result of looking up an access.
// The zero value is the fully-null result.
type Enrichment struct {
	Geo    Geo
	Client Client
}

// AccessRecord is one enriched resolution of a link.
type AccessRecord struct {
	ID         int64
	LinkID     int64
	IPAddress  string
	Geo
	Client
	ObservedAt time.Time
}

// NewAccessRecord combines an access event with its enrichment.
func NewAccessRecord(ev AccessEvent, enr Enrichment) *AccessRecord {
	return &AccessRecord{
		LinkID:     ev.LinkID,
		IPAddress:  ev.IP,
		Geo:        enr.Geo,
		Client:     enr.Client,
		ObservedAt: ev.ObservedAt,
	}
}
