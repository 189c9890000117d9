package validation

import (
	"fmt"
	"strings"

	"github.com/aretw0/flowgraph/pkg/domain"
)

// Titles of the built-in checks, in default run order.
const (
	TitleSections            = "Sections"
	TitleFees                = "Fees"
	TitleInviteToPay         = "Invite to Pay"
	TitleFileTypes           = "File types"
	TitleProjectTypes        = "Project types"
	TitlePlanningConstraints = "Planning Constraints"
	TitleTemplatedNodes      = "Templated nodes"
)

// ProjectTypeFn is the passport variable that records the project type.
const ProjectTypeFn = "proposal.projectType"

// Option configures the default registry.
type Option func(*options)

type options struct {
	allow *AllowList
}

// WithAllowList replaces the embedded allow-list.
func WithAllowList(a *AllowList) Option {
	return func(o *options) {
		o.allow = a
	}
}

// Default returns a registry with the built-in checks.
func Default(opts ...Option) *Registry {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.allow == nil {
		o.allow = DefaultAllowList()
	}

	r := NewRegistry()
	r.Register(TitleSections, CheckSections)
	r.Register(TitleFees, CheckFees)
	r.Register(TitleInviteToPay, CheckInviteToPay)
	r.Register(TitleFileTypes, FileTypesCheck(o.allow))
	r.Register(TitleProjectTypes, ProjectTypesCheck(o.allow))
	r.Register(TitlePlanningConstraints, CheckPlanningConstraints)
	r.Register(TitleTemplatedNodes, CheckTemplatedNodes)
	return r
}

// CheckSections requires Sections to lead the flow and stay out of external portals.
func CheckSections(in Input) (Status, string) {
	g := in.Graph
	if !g.HasType(domain.TypeSection) {
		return StatusNotApplicable, "Your flow is not using Sections"
	}
	if sectionInExternalPortal(g) {
		return StatusFail, "Found Sections in one or more External Portals, but Sections are only allowed in main flow"
	}
	edges := g.EdgesOf(domain.RootID)
	if len(edges) == 0 || g[edges[0]].Type != domain.TypeSection {
		return StatusFail, "When using Sections, your flow must start with a Section"
	}
	return StatusPass, "Your flow has valid Sections"
}

// sectionInExternalPortal looks below every portal node the flattener
// synthesised from an external reference.
func sectionInExternalPortal(g domain.Graph) bool {
	for _, portal := range g.NodesOfType(domain.TypeInternalPortal) {
		var data domain.InternalPortalData
		if err := portal.Decode(&data); err != nil || !data.FlattenedFromExternalPortal {
			continue
		}
		for _, id := range g.Descendants(portal.ID) {
			if g[id].Type == domain.TypeSection {
				return true
			}
		}
	}
	return false
}

// CheckFees requires exactly one SetFee alongside Pay.
func CheckFees(in Input) (Status, string) {
	g := in.Graph
	if !g.HasType(domain.TypePay) {
		return StatusNotApplicable, "Your flow is not using Pay"
	}
	if n := g.CountByType()[domain.TypeSetFee]; n != 1 {
		return StatusFail, fmt.Sprintf("When using Pay, your flow must have exactly ONE SetFee component (found %d)", n)
	}
	return StatusPass, "Your flow has valid Pay and SetFee"
}

// CheckInviteToPay validates the extra components invite-to-pay depends on.
func CheckInviteToPay(in Input) (Status, string) {
	g := in.Graph
	enabled := false
	for _, n := range g.NodesOfType(domain.TypePay) {
		var pay domain.PayData
		if err := n.Decode(&pay); err != nil {
			return StatusFail, malformed(n, err)
		}
		if pay.InviteToPay() {
			enabled = true
		}
	}
	if !enabled {
		return StatusNotApplicable, "Your flow is not using Invite to Pay"
	}

	counts := g.CountByType()
	switch {
	case counts[domain.TypeSend] != 1:
		return StatusFail, "When using Invite to Pay, your flow must have exactly ONE Send"
	case counts[domain.TypePay] != 1:
		return StatusFail, "When using Invite to Pay, your flow must have exactly ONE Pay"
	case counts[domain.TypeFindProperty] == 0:
		return StatusFail, "When using Invite to Pay, your flow must have a FindProperty"
	case len(projectTypeChecklists(g)) == 0:
		return StatusFail, "When using Invite to Pay, your flow must have a Checklist that sets the passport variable `" + ProjectTypeFn + "`"
	}
	return StatusPass, "Your flow has valid Invite to Pay"
}

// FileTypesCheck returns a check of FileUpload and UploadAndLabel fields against a.
func FileTypesCheck(a *AllowList) CheckFunc {
	return func(in Input) (Status, string) {
		fields := make(map[string]bool)
		active := false

		for _, n := range in.Graph.NodesOfType(domain.TypeFileUpload) {
			var data domain.FileUploadData
			if err := n.Decode(&data); err != nil {
				return StatusFail, malformed(n, err)
			}
			if data.HideDropZone {
				continue
			}
			active = true
			if data.Fn != "" {
				fields[data.Fn] = true
			}
		}
		for _, n := range in.Graph.NodesOfType(domain.TypeUploadAndLabel) {
			var data domain.UploadAndLabelData
			if err := n.Decode(&data); err != nil {
				return StatusFail, malformed(n, err)
			}
			if data.HideDropZone {
				continue
			}
			active = true
			for _, ft := range data.FileTypes {
				if ft.Fn != "" {
					fields[ft.Fn] = true
				}
			}
		}

		if !active {
			return StatusNotApplicable, "Your flow is not using FileUpload or UploadAndLabel"
		}

		unsupported := make(map[string]bool)
		for fn := range fields {
			if !a.FileTypeSupported(fn) {
				unsupported[fn] = true
			}
		}
		if len(unsupported) > 0 {
			return StatusFail, "Your FileUpload or UploadAndLabel are setting data fields that are not supported by the current release of the ODP Schema: " +
				strings.Join(sortedKeys(unsupported), ", ")
		}
		return StatusPass, "Files collected via FileUpload or UploadAndLabel are all supported by the ODP Schema"
	}
}

// ProjectTypesCheck returns a check of project type answers against a.
func ProjectTypesCheck(a *AllowList) CheckFunc {
	return func(in Input) (Status, string) {
		g := in.Graph
		checklists := projectTypeChecklists(g)
		if len(checklists) == 0 {
			return StatusNotApplicable, "Your flow is not using Checklists which set `" + ProjectTypeFn + "`"
		}

		unsupported := make(map[string]bool)
		for _, c := range checklists {
			for _, id := range c.Edges {
				answer, ok := g.NodeByID(id)
				if !ok || answer.Type != domain.TypeAnswer {
					continue
				}
				if val := answer.Str("val"); val != "" && !a.ProjectTypeSupported(val) {
					unsupported[val] = true
				}
			}
		}
		if len(unsupported) > 0 {
			return StatusFail, "Your Checklists setting `" + ProjectTypeFn + "` include options that are not supported by the current release of the ODP Schema: " +
				strings.Join(sortedKeys(unsupported), ", ")
		}
		return StatusPass, "Project types set via Checklists are all supported by the ODP Schema"
	}
}

// malformed reports a node whose data cannot be read as its type's fields.
func malformed(n domain.Node, err error) string {
	return fmt.Sprintf("Node %s has malformed %s data: %v", n.ID, n.Type, err)
}

func projectTypeChecklists(g domain.Graph) []domain.Node {
	var out []domain.Node
	for _, n := range g.NodesOfType(domain.TypeChecklist) {
		if n.Fn() == ProjectTypeFn {
			out = append(out, n)
		}
	}
	return out
}

// CheckPlanningConstraints allows at most one PlanningConstraints node.
func CheckPlanningConstraints(in Input) (Status, string) {
	n := in.Graph.CountByType()[domain.TypePlanningConstraints]
	switch {
	case n == 0:
		return StatusNotApplicable, "Your flow is not using Planning Constraints"
	case n > 1:
		return StatusFail, "When using Planning Constraints, your flow cannot have more than ONE Planning Constraints component"
	}
	return StatusPass, "Your flow has valid Planning Constraints"
}

// CheckTemplatedNodes requires every node flagged for customisation to have an edit.
func CheckTemplatedNodes(in Input) (Status, string) {
	if !in.Templated {
		return StatusNotApplicable, "Your flow is not templated"
	}

	var missing []string
	for _, id := range in.Graph.IDs() {
		n := in.Graph[id]
		var data domain.TemplatedData
		if err := n.Decode(&data); err != nil {
			return StatusFail, malformed(n, err)
		}
		if !data.AreTemplatedNodeInstructionsRequired {
			continue
		}
		if _, ok := in.Edits[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return StatusFail, "Customise each required templated node before publishing: " + strings.Join(missing, ", ")
	}
	return StatusPass, "All required templated nodes have been customised"
}
