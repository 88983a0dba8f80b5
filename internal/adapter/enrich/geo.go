package enrich

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/guregu/null/v5"
	"github.com/ipinfo/go/v2/ipinfo"
	"github.com/vadimbarashkov/shortlink/internal/entity"
)

const DefaultGeoTimeout = 1500 * time.Millisecond

// IPInfoLocator resolves client addresses through the ipinfo.io API.
type IPInfoLocator struct {
	client *ipinfo.Client
}

func NewIPInfoLocator(token string, timeout time.Duration) *IPInfoLocator {
	if timeout <= 0 {
		timeout = DefaultGeoTimeout
	}

	return &IPInfoLocator{
		client: ipinfo.NewClient(&http.Client{Timeout: timeout}, nil, token),
	}
}

// Locate returns as soon as ctx is done even if the API call is still in flight.
// The http.Client timeout bounds the abandoned call.
func (l *IPInfoLocator) Locate(ctx context.Context, ip net.IP) (entity.Geo, error) {
	const op = "adapter.enrich.IPInfoLocator.Locate"

	if !routable(ip) {
		return entity.Geo{}, fmt.Errorf("%s: address %q is not publicly routable", op, ip)
	}

	type result struct {
		core *ipinfo.Core
		err  error
	}

	ch := make(chan result, 1)
	go func() {
		core, err := l.client.GetIPInfo(ip)
		ch <- result{core: core, err: err}
	}()

	select {
	case <-ctx.Done():
		return entity.Geo{}, fmt.Errorf("%s: %w", op, ctx.Err())
	case res := <-ch:
		if res.err != nil {
			return entity.Geo{}, fmt.Errorf("%s: failed to get ip info: %w", op, res.err)
		}
		if res.core == nil || res.core.Bogon {
			return entity.Geo{}, fmt.Errorf("%s: no data for address %q", op, ip)
		}

		return geoFromCore(res.core), nil
	}
}

func geoFromCore(core *ipinfo.Core) entity.Geo {
	return entity.Geo{
		City:         null.NewString(core.City, core.City != ""),
		Region:       null.NewString(core.Region, core.Region != ""),
		Country:      null.NewString(core.Country, core.Country != ""),
		Coordinates:  null.NewString(core.Location, core.Location != ""),
		Organization: null.NewString(core.Org, core.Org != ""),
		PostalCode:   null.NewString(core.Postal, core.Postal != ""),
		Timezone:     null.NewString(core.Timezone, core.Timezone != ""),
	}
}

func routable(ip net.IP) bool {
	return ip != nil &&
		!ip.IsLoopback() &&
		!ip.IsPrivate() &&
		!ip.IsUnspecified() &&
		!ip.IsLinkLocalUnicast() &&
		!ip.IsMulticast()
}
