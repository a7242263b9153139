package models

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

type Role string

const (
	RoleSuperAdmin Role = "SUPERADMIN"
	RoleSRM        Role = "SRM" // state resource manager
	RoleDRM        Role = "DRM" // district resource manager
)

var (
	ErrUnknownRole = errors.New("unknown role")
	ErrForbidden   = errors.New("operation not permitted for role")
)

func ParseRole(s string) (Role, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "SUPERADMIN":
		return RoleSuperAdmin, nil
	case "SRM":
		return RoleSRM, nil
	case "DRM":
		return RoleDRM, nil
	default:
		return "", ErrUnknownRole
	}
}

func (r Role) String() string { return string(r) }

func (r Role) IsValid() bool {
	_, ok := roleCapabilities[r]
	return ok
}

type Capability string

const (
	CapabilityViewDashboard     Capability = "dashboard.view"
	CapabilityManageDivisions   Capability = "divisions.manage"
	CapabilityManageEmployees   Capability = "employees.manage"
	CapabilityManageTrainings   Capability = "trainings.manage"
	CapabilityViewMonthlyReport Capability = "reports.monthly.view"
	CapabilityExportReport      Capability = "reports.monthly.export"
	CapabilityViewMasterReport  Capability = "reports.master.view"
	CapabilityViewAllStates     Capability = "reports.states.all"
	CapabilityTriggerSync       Capability = "reports.sync"
)

// AllCapabilities lists every capability in display order.
var AllCapabilities = []Capability{
	CapabilityViewDashboard,
	CapabilityManageDivisions,
	CapabilityManageEmployees,
	CapabilityManageTrainings,
	CapabilityViewMonthlyReport,
	CapabilityExportReport,
	CapabilityViewMasterReport,
	CapabilityViewAllStates,
	CapabilityTriggerSync,
}

var roleCapabilities = map[Role][]Capability{
	RoleSuperAdmin: {
		CapabilityViewDashboard,
		CapabilityManageDivisions,
		CapabilityManageEmployees,
		CapabilityViewMonthlyReport,
		CapabilityExportReport,
		CapabilityViewMasterReport,
		CapabilityViewAllStates,
		CapabilityTriggerSync,
	},
	RoleSRM: {
		CapabilityViewDashboard,
		CapabilityManageEmployees,
		CapabilityManageTrainings,
		CapabilityViewMonthlyReport,
		CapabilityExportReport,
		CapabilityViewMasterReport,
		CapabilityTriggerSync,
	},
	RoleDRM: {
		CapabilityViewDashboard,
		CapabilityManageTrainings,
		CapabilityViewMasterReport,
	},
}

func (r Role) Can(c Capability) bool {
	return slices.Contains(roleCapabilities[r], c)
}

// Require returns ErrForbidden unless the role has c.
func (r Role) Require(c Capability) error {
	if !r.Can(c) {
		return fmt.Errorf("%w: %s needs %s", ErrForbidden, r, c)
	}
	return nil
}

// Capabilities returns a copy of the role's capabilities in AllCapabilities order.
func (r Role) Capabilities() []Capability {
	out := make([]Capability, 0, len(roleCapabilities[r]))
	for _, c := range AllCapabilities {
		if r.Can(c) {
			out = append(out, c)
		}
	}
	return out
}

// RequestContext is the per-request session handed to every data-fetching call.
type RequestContext struct {
	Token   string
	Role    Role
	StateId string
	UserId  string
}

var ErrStateNotAllowed = errors.New("state is outside the user's scope")

// AllowedState resolves which state a report may be generated for.
// Roles without CapabilityViewAllStates are pinned to their own state; an empty
// request defaults to it.
func (rc RequestContext) AllowedState(requested string) (string, error) {
	requested = strings.TrimSpace(requested)
	if rc.Role.Can(CapabilityViewAllStates) {
		return requested, nil
	}
	if rc.StateId == "" {
		return "", ErrStateNotAllowed
	}
	if requested == "" || requested == rc.StateId {
		return rc.StateId, nil
	}
	return "", ErrStateNotAllowed
}
