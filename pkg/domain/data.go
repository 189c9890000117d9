package domain

// Typed views of node data, one per component kind that the engine reasons
// about. They are decoded on demand with Node.Decode; the graph itself keeps
// the raw property bag so unknown keys survive copy, replace and merge.

// QuestionData is the data of a Question node.
type QuestionData struct {
	Text            string `json:"text"`
	Fn              string `json:"fn"`
	Description     string `json:"description"`
	NeverAutoAnswer bool   `json:"neverAutoAnswer"`
}

// AnswerData is the data of an Answer node.
type AnswerData struct {
	Text  string   `json:"text"`
	Val   string   `json:"val"`
	Flags []string `json:"flags"`
}

// ChecklistData is the data of a Checklist node.
type ChecklistData struct {
	Text            string `json:"text"`
	Fn              string `json:"fn"`
	AllRequired     bool   `json:"allRequired"`
	NeverAutoAnswer bool   `json:"neverAutoAnswer"`
}

// SectionData is the data of a Section node.
type SectionData struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// InternalPortalData is the data of an InternalPortal node.
// FlattenedFromExternalPortal marks portals synthesised by the flattener.
type InternalPortalData struct {
	Text                        string `json:"text"`
	FlowID                      string `json:"flowId"`
	FlattenedFromExternalPortal bool   `json:"flattenedFromExternalPortal"`
}

// ExternalPortalData is the data of an ExternalPortal node.
type ExternalPortalData struct {
	FlowID string `json:"flowId"`
}

// PayData is the data of a Pay node.
type PayData struct {
	Title                   string   `json:"title"`
	Fn                      string   `json:"fn"`
	AllowInviteToPay        bool     `json:"allowInviteToPay"`
	InviteToPayDestinations []string `json:"inviteToPayDestinations"`
}

// InviteToPay reports whether the Pay node enables invite-to-pay.
func (p PayData) InviteToPay() bool {
	return p.AllowInviteToPay || len(p.InviteToPayDestinations) > 0
}

// SetFeeData is the data of a SetFee node.
type SetFeeData struct {
	Fn string `json:"fn"`
}

// SendData is the data of a Send node.
type SendData struct {
	Title        string   `json:"title"`
	Destinations []string `json:"destinations"`
}

// FileUploadData is the data of a FileUpload node.
type FileUploadData struct {
	Title        string `json:"title"`
	Fn           string `json:"fn"`
	HideDropZone bool   `json:"hideDropZone"`
}

// FileType is one requested file of an UploadAndLabel node.
type FileType struct {
	Name string         `json:"name"`
	Fn   string         `json:"fn"`
	Rule map[string]any `json:"rule"`
}

// UploadAndLabelData is the data of an UploadAndLabel node.
type UploadAndLabelData struct {
	Title        string     `json:"title"`
	FileTypes    []FileType `json:"fileTypes"`
	HideDropZone bool       `json:"hideDropZone"`
}

// PlanningConstraintsData is the data of a PlanningConstraints node.
type PlanningConstraintsData struct {
	Title string `json:"title"`
	Fn    string `json:"fn"`
}

// ContentData is the data of a Content node.
type ContentData struct {
	Content string `json:"content"`
}

// TemplatedData carries the template instruction flag any node may set.
type TemplatedData struct {
	AreTemplatedNodeInstructionsRequired bool   `json:"areTemplatedNodeInstructionsRequired"`
	TemplatedNodeInstructions            string `json:"templatedNodeInstructions"`
}
