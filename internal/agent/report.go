package agent

import (
	"context"
	"sort"

	"github.com/dyluth/sixhat/pkg/blackboard"
)

// reportSections is the order sections appear in the report context.
var reportSections = []struct {
	section blackboard.Section
	title   string
}{
	{blackboard.SectionPlan, "Blue Hat plan"},
	{blackboard.SectionWhite, "White Hat analysis"},
	{blackboard.SectionResearch, "Research notes"},
	{blackboard.SectionRed, "Red Hat analysis"},
	{blackboard.SectionYellow, "Yellow Hat analysis"},
	{blackboard.SectionBlack, "Black Hat analysis"},
	{blackboard.SectionGreen, "Green Hat analysis"},
	{blackboard.SectionReflection, "Reflection"},
}

// reportAgent synthesises the full history into the final report.
type reportAgent struct {
	base
}

func (a *reportAgent) Run(ctx context.Context, snap *blackboard.Snapshot, cfg Config) (*Artifact, error) {
	b, _, err := withRequirement(a.role, snap)
	if err != nil {
		return nil, err
	}

	for _, s := range reportSections {
		for _, e := range snap.History(s.section) {
			if s.section == blackboard.SectionResearch && (!e.Usable() || e.Content == "") {
				continue
			}
			b.entry(s.title, e)
		}
	}
	b.heading("Task")
	b.text("Write the final report covering every round above.")

	text, err := a.complete(ctx, b.String(), reportInstructions)
	if err != nil {
		return nil, err
	}
	art := a.artifact(text)
	art.Sources = ReportSources(snap)
	return art, nil
}

// ReportSources lists the IDs of every analyst result and reflection
// verdict a report over snap covers, sorted. It depends only on the
// snapshot, so regenerating a report over the same history covers the
// same inputs.
func ReportSources(snap *blackboard.Snapshot) []string {
	var ids []string
	for _, role := range append(append([]Role{}, AnalystRoles...), RoleReflection) {
		for _, e := range snap.History(role.Section()) {
			if e.Usable() {
				ids = append(ids, e.ID)
			}
		}
	}
	sort.Strings(ids)
	return ids
}
