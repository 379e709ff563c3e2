// Package dashboard assembles per-role dashboard views: the resource
// catalogue of each role, tab filters, and the live view that ties the
// aggregated snapshot to the user's inbox and notifications.
package dashboard

import (
	"github.com/ashureev/propdesk/internal/domain"
)

// Resource describes one upstream collection shown on a dashboard.
type Resource struct {
	Key  string
	Path string
	// ListKeys are checked before the generic wrapper keys.
	ListKeys []string
	// ContainerFields are record fields that must decode to a list.
	ContainerFields []string
	// Object marks a single-object resource such as summary stats.
	Object bool
}

var (
	documents   = Resource{Key: "documents", Path: "/documents", ListKeys: []string{"documents"}}
	leases      = Resource{Key: "leases", Path: "/leases", ListKeys: []string{"leases"}, ContainerFields: []string{"payments"}}
	contracts   = Resource{Key: "contracts", Path: "/contracts", ListKeys: []string{"contracts"}, ContainerFields: []string{"documents"}}
	debts       = Resource{Key: "debts", Path: "/debts", ListKeys: []string{"debts"}, ContainerFields: []string{"items"}}
	clients     = Resource{Key: "clients", Path: "/clients", ListKeys: []string{"clients"}}
	reminders   = Resource{Key: "reminders", Path: "/reminders", ListKeys: []string{"reminders"}}
	properties  = Resource{Key: "properties", Path: "/properties", ListKeys: []string{"properties"}, ContainerFields: []string{"units", "images"}}
	payments    = Resource{Key: "payments", Path: "/payments", ListKeys: []string{"payments"}}
	maintenance = Resource{Key: "maintenance", Path: "/maintenance", ListKeys: []string{"requests", "maintenance"}, ContainerFields: []string{"attachments"}}
	invoices    = Resource{Key: "invoices", Path: "/invoices", ListKeys: []string{"invoices"}, ContainerFields: []string{"items"}}
	users       = Resource{Key: "users", Path: "/users", ListKeys: []string{"users"}}
	leads       = Resource{Key: "leads", Path: "/leads", ListKeys: []string{"leads"}}
	stats       = Resource{Key: "stats", Path: "/stats", Object: true}
)

var catalogues = map[domain.Role][]Resource{
	domain.RoleAdmin: {
		documents, leases, contracts, debts, clients, reminders,
		properties, payments, maintenance, invoices, users, stats,
	},
	domain.RoleTenant: {documents, leases, debts, payments, maintenance},
	domain.RoleSales:  {clients, contracts, properties, reminders, leads},
	domain.RoleOwner:  {properties, leases, payments, invoices, maintenance},
}

// Catalogue returns the resources shown to role, or nil for an unknown role.
func Catalogue(role domain.Role) []Resource {
	res := catalogues[role]
	if res == nil {
		return nil
	}
	out := make([]Resource, len(res))
	copy(out, res)
	return out
}

// KnownRole reports whether role has a dashboard.
func KnownRole(role domain.Role) bool {
	_, ok := catalogues[role]
	return ok
}

func findResource(catalogue []Resource, key string) (Resource, bool) {
	for _, r := range catalogue {
		if r.Key == key {
			return r, true
		}
	}
	return Resource{}, false
}
