package model

// CustomField is one named value attached to a lead.
type CustomField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type Contact struct {
	ID    int64  `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// RawLead is a CRM lead flattened to the attributes the normalizer reads.
// Timestamps are unix seconds, zero when absent.
type RawLead struct {
	ID           int64         `json:"id"`
	Name         string        `json:"name"`
	StatusID     int64         `json:"statusId"`
	PipelineID   int64         `json:"pipelineId"`
	CreatedAt    int64         `json:"createdAt,omitempty"`
	UpdatedAt    int64         `json:"updatedAt,omitempty"`
	ClosedAt     int64         `json:"closedAt,omitempty"`
	CustomFields []CustomField `json:"customFields"`
	Contact      *Contact      `json:"contact,omitempty"`
}

func (l RawLead) ContactPhone() string {
	if l.Contact == nil {
		return ""
	}
	return l.Contact.Phone
}

func (l RawLead) ContactName() string {
	if l.Contact == nil {
		return ""
	}
	return l.Contact.Name
}
