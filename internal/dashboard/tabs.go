package dashboard

import (
	"errors"
	"fmt"
	"strings"
)

// TabAll shows a status-classified resource without a status filter.
const TabAll = "all"

var (
	// ErrUnknownResource means the resource is not on the role's dashboard.
	ErrUnknownResource = errors.New("unknown resource")
	// ErrInvalidTab means the tab is not defined for the resource.
	ErrInvalidTab = errors.New("invalid tab")
)

// statusTabs maps tab identifiers to the upstream status of each
// status-classified resource.
var statusTabs = map[string]map[string]string{
	"contracts": {
		"pending":  "Pending",
		"valid":    "Approved",
		"expired":  "Expired",
		"rejected": "Rejected",
	},
	"leases": {
		"pending": "Pending",
		"valid":   "Active",
		"expired": "Expired",
	},
	"payments": {
		"pending": "Pending",
		"valid":   "Completed",
		"overdue": "Overdue",
	},
}

// StatusFor maps a tab to the status filter for resource. TabAll yields ""
// meaning no filter.
func StatusFor(resource, tab string) (string, error) {
	tabs, ok := statusTabs[resource]
	if !ok {
		return "", fmt.Errorf("%w: %s has no status tabs", ErrInvalidTab, resource)
	}
	tab = strings.ToLower(strings.TrimSpace(tab))
	if tab == TabAll {
		return "", nil
	}
	status, ok := tabs[tab]
	if !ok {
		return "", fmt.Errorf("%w: %q for %s", ErrInvalidTab, tab, resource)
	}
	return status, nil
}
