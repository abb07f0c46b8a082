package model

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// FlexString accepts a JSON string, number, bool or null. AmoCRM returns
// date fields as numbers and text fields as strings under the same "value" key.
type FlexString string

func (s *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0, bytes.Equal(data, []byte("null")):
		*s = ""
	case data[0] == '"':
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = FlexString(v)
	default:
		*s = FlexString(data)
	}
	return nil
}

// FlexInt accepts a JSON number, a numeric string or null. Webhook payloads
// carry ids as strings, the REST API as numbers.
type FlexInt int64

func (n *FlexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*n = 0
		return nil
	}
	raw := string(data)
	if data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			*n = 0
			return nil
		}
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return err
	}
	*n = FlexInt(v)
	return nil
}

type AmoFieldValue struct {
	Value    FlexString `json:"value"`
	EnumID   FlexInt    `json:"enum_id,omitempty"`
	EnumCode string     `json:"enum_code,omitempty"`
}

// UnmarshalJSON also accepts a bare scalar, which form webhooks send for
// date fields (values[0]=1724425440).
func (v *AmoFieldValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] != '{' {
		*v = AmoFieldValue{}
		return v.Value.UnmarshalJSON(data)
	}

	type plain AmoFieldValue
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*v = AmoFieldValue(p)
	return nil
}

// AmoCustomField covers both the v4 shape (field_id/field_name) and the
// webhook shape (id/name).
type AmoCustomField struct {
	FieldID   FlexInt         `json:"field_id,omitempty"`
	ID        FlexInt         `json:"id,omitempty"`
	FieldName string          `json:"field_name,omitempty"`
	Name      string          `json:"name,omitempty"`
	FieldCode string          `json:"field_code,omitempty"`
	Values    []AmoFieldValue `json:"values"`
}

func (f AmoCustomField) DisplayName() string {
	if f.FieldName != "" {
		return f.FieldName
	}
	return f.Name
}

func (f AmoCustomField) FirstValue() string {
	if len(f.Values) == 0 {
		return ""
	}
	return string(f.Values[0].Value)
}

type AmoContact struct {
	ID                 FlexInt          `json:"id"`
	Name               string           `json:"name"`
	CustomFieldsValues []AmoCustomField `json:"custom_fields_values,omitempty"`
	CustomFields       []AmoCustomField `json:"custom_fields,omitempty"`
}

// Phone returns the first value of the contact's PHONE field.
func (c AmoContact) Phone() string {
	for _, group := range [][]AmoCustomField{c.CustomFieldsValues, c.CustomFields} {
		for _, f := range group {
			if f.FieldCode == "PHONE" || f.DisplayName() == "Телефон" {
				if v := f.FirstValue(); v != "" {
					return v
				}
			}
		}
	}
	return ""
}

func (c AmoContact) ToContact() *Contact {
	return &Contact{
		ID:    int64(c.ID),
		Name:  c.Name,
		Phone: c.Phone(),
	}
}

type AmoLeadEmbedded struct {
	Contacts []AmoContact `json:"contacts,omitempty"`
}

type AmoLead struct {
	ID                 FlexInt          `json:"id"`
	Name               string           `json:"name"`
	Price              FlexInt          `json:"price,omitempty"`
	StatusID           FlexInt          `json:"status_id"`
	OldStatusID        FlexInt          `json:"old_status_id,omitempty"`
	PipelineID         FlexInt          `json:"pipeline_id"`
	ResponsibleUserID  FlexInt          `json:"responsible_user_id,omitempty"`
	ContactID          FlexInt          `json:"contact_id,omitempty"`
	CreatedAt          FlexInt          `json:"created_at,omitempty"`
	UpdatedAt          FlexInt          `json:"updated_at,omitempty"`
	ClosedAt           FlexInt          `json:"closed_at,omitempty"`
	CustomFieldsValues []AmoCustomField `json:"custom_fields_values,omitempty"`
	CustomFields       []AmoCustomField `json:"custom_fields,omitempty"`
	Embedded           *AmoLeadEmbedded `json:"_embedded,omitempty"`
}

// ToRawLead flattens the lead. Field order is preserved so that the first
// occurrence of a duplicated name keeps precedence.
func (l AmoLead) ToRawLead() RawLead {
	fields := make([]CustomField, 0, len(l.CustomFieldsValues)+len(l.CustomFields))
	for _, group := range [][]AmoCustomField{l.CustomFieldsValues, l.CustomFields} {
		for _, f := range group {
			fields = append(fields, CustomField{Name: f.DisplayName(), Value: f.FirstValue()})
		}
	}

	raw := RawLead{
		ID:           int64(l.ID),
		Name:         l.Name,
		StatusID:     int64(l.StatusID),
		PipelineID:   int64(l.PipelineID),
		CreatedAt:    int64(l.CreatedAt),
		UpdatedAt:    int64(l.UpdatedAt),
		ClosedAt:     int64(l.ClosedAt),
		CustomFields: fields,
	}
	if l.Embedded != nil && len(l.Embedded.Contacts) > 0 {
		raw.Contact = l.Embedded.Contacts[0].ToContact()
	}
	return raw
}

type AmoStatus struct {
	ID         FlexInt `json:"id"`
	Name       string  `json:"name"`
	Sort       int     `json:"sort"`
	Color      string  `json:"color,omitempty"`
	PipelineID FlexInt `json:"pipeline_id,omitempty"`
	Type       int     `json:"type,omitempty"`
}

type AmoPipeline struct {
	ID       FlexInt `json:"id"`
	Name     string  `json:"name"`
	Sort     int     `json:"sort"`
	IsMain   bool    `json:"is_main"`
	Embedded struct {
		Statuses []AmoStatus `json:"statuses"`
	} `json:"_embedded"`
}

type AmoAccount struct {
	ID        FlexInt `json:"id"`
	Name      string  `json:"name"`
	Subdomain string  `json:"subdomain"`
}

// WebhookPayload is an AmoCRM webhook delivery, decoded either from JSON or
// from the bracketed form encoding.
type WebhookPayload struct {
	EventType string          `json:"event_type,omitempty"`
	Leads     WebhookLeads    `json:"leads"`
	Contacts  WebhookContacts `json:"contacts"`
	Account   WebhookAccount  `json:"account"`
}

type WebhookLeads struct {
	Add    []AmoLead `json:"add,omitempty"`
	Update []AmoLead `json:"update,omitempty"`
	Status []AmoLead `json:"status,omitempty"`
	Delete []AmoLead `json:"delete,omitempty"`
}

type WebhookContacts struct {
	Add    []AmoContact `json:"add,omitempty"`
	Update []AmoContact `json:"update,omitempty"`
}

type WebhookAccount struct {
	ID        FlexInt `json:"id,omitempty"`
	Subdomain string  `json:"subdomain,omitempty"`
}
