package domain

import "time"

// FormTemplate describes a printable form backed by a remote file,
// together with the field mappings that place customer data onto it.
type FormTemplate struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	// RemoteFileID and ShareLink reference the uploaded template file.
	RemoteFileID string `json:"remoteFileId,omitempty"`
	ShareLink    string `json:"shareLink,omitempty"`

	// Mappings is an unordered set keyed by mapping id.
	Mappings map[string]FieldMapping `json:"mappings,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// FieldMapping places one logical customer field at a coordinate on a form.
type FieldMapping struct {
	ID string `json:"id"`
	// Field is the logical customer field name, e.g. "name" or "nric".
	Field string  `json:"field"`
	Page  int     `json:"page,omitempty"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	// Display attributes.
	FontSize float64 `json:"fontSize,omitempty"`
	Bold     bool    `json:"bold,omitempty"`
}

// ExcelTemplate describes a spreadsheet export template backed by a
// remote file, with cell mappings in place of coordinates.
type ExcelTemplate struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	RemoteFileID string `json:"remoteFileId,omitempty"`
	ShareLink    string `json:"shareLink,omitempty"`

	// Mappings is an unordered set keyed by mapping id.
	Mappings map[string]CellMapping `json:"mappings,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CellMapping places one logical customer field into a spreadsheet cell.
type CellMapping struct {
	ID    string `json:"id"`
	Field string `json:"field"`
	// Sheet and Cell address the target, e.g. sheet "VSA", cell "B12".
	Sheet string `json:"sheet,omitempty"`
	Cell  string `json:"cell"`
}

// RecordID returns the template's identifier for merge comparisons.
func (t FormTemplate) RecordID() string { return t.ID }

// RecordID returns the template's identifier for merge comparisons.
func (t ExcelTemplate) RecordID() string { return t.ID }

// AddMapping inserts a field mapping, allocating the set lazily.
func (t *FormTemplate) AddMapping(m FieldMapping) {
	if t.Mappings == nil {
		t.Mappings = make(map[string]FieldMapping)
	}
	t.Mappings[m.ID] = m
}

// RemoveMapping deletes a mapping by its id, never by position.
// Removing an absent id is a no-op.
func (t *FormTemplate) RemoveMapping(id string) {
	delete(t.Mappings, id)
}

// AddMapping inserts a cell mapping, allocating the set lazily.
func (t *ExcelTemplate) AddMapping(m CellMapping) {
	if t.Mappings == nil {
		t.Mappings = make(map[string]CellMapping)
	}
	t.Mappings[m.ID] = m
}

// RemoveMapping deletes a mapping by its id, never by position.
func (t *ExcelTemplate) RemoveMapping(id string) {
	delete(t.Mappings, id)
}
