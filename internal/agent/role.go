package agent

import (
	"fmt"

	"github.com/dyluth/sixhat/pkg/blackboard"
)

// Role tags one of the closed set of agent variants.
type Role string

const (
	RoleBlue        Role = "blue"
	RoleWhite       Role = "white"
	RoleRed         Role = "red"
	RoleYellow      Role = "yellow"
	RoleBlack       Role = "black"
	RoleGreen       Role = "green"
	RoleInformation Role = "information"
	RoleReflection  Role = "reflection"
	RoleReport      Role = "report"
	RoleEvaluator   Role = "evaluator"
)

type roleInfo struct {
	section blackboard.Section
	title   string
}

var roles = map[Role]roleInfo{
	RoleBlue:        {blackboard.SectionPlan, "Blue Hat"},
	RoleWhite:       {blackboard.SectionWhite, "White Hat"},
	RoleRed:         {blackboard.SectionRed, "Red Hat"},
	RoleYellow:      {blackboard.SectionYellow, "Yellow Hat"},
	RoleBlack:       {blackboard.SectionBlack, "Black Hat"},
	RoleGreen:       {blackboard.SectionGreen, "Green Hat"},
	RoleInformation: {blackboard.SectionResearch, "Information"},
	RoleReflection:  {blackboard.SectionReflection, "Reflection"},
	RoleReport:      {blackboard.SectionReport, "Report"},
	RoleEvaluator:   {blackboard.SectionEvaluation, "Evaluator"},
}

// AnalystRoles are the five hats that run in parallel each round, in
// fan-out order.
var AnalystRoles = []Role{RoleWhite, RoleRed, RoleYellow, RoleBlack, RoleGreen}

// Validate reports whether r is a known role.
func (r Role) Validate() error {
	if _, ok := roles[r]; !ok {
		return fmt.Errorf("unknown role: %q", string(r))
	}
	return nil
}

// Section is the blackboard section the role writes.
func (r Role) Section() blackboard.Section {
	return roles[r].section
}

// Title is the human-readable role name.
func (r Role) Title() string {
	if info, ok := roles[r]; ok {
		return info.title
	}
	return string(r)
}

// IsAnalyst reports whether r is one of the five parallel hats.
func (r Role) IsAnalyst() bool {
	for _, a := range AnalystRoles {
		if r == a {
			return true
		}
	}
	return false
}

// LoadBearing reports whether the session cannot proceed without this
// role's output. Failures of load-bearing roles fail the session.
func (r Role) LoadBearing() bool {
	return r == RoleBlue || r == RoleReport
}
