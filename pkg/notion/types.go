package notion

import (
	"encoding/json"
	"strings"
)

// RecordMap is the upstream block graph: a flat arena keyed by record ID.
// Cross-references between records are plain ID lookups into these maps,
// which keeps cyclic block graphs representable without any ownership tree.
type RecordMap struct {
	Blocks          map[string]*BlockRecord          `json:"block"`
	Collections     map[string]*CollectionRecord     `json:"collection"`
	CollectionViews map[string]*CollectionViewRecord `json:"collection_view"`
	Users           map[string]*UserRecord           `json:"notion_user"`
}

// PageBlock returns the block value for id, or ErrPageNotFound when the
// graph lacks it.
func (m *RecordMap) PageBlock(id string) (*Block, error) {
	if m == nil {
		return nil, ErrPageNotFound
	}
	rec := m.Blocks[id]
	if rec == nil || rec.Value == nil {
		return nil, ErrPageNotFound
	}
	return rec.Value, nil
}

// BlockRecord wraps a block value with its access role, mirroring the wire shape.
type BlockRecord struct {
	Role  string `json:"role"`
	Value *Block `json:"value"`
}

// Block is a single node of the page graph. Pages, paragraphs and collection
// rows are all blocks; which fields are populated depends on Type.
type Block struct {
	ID           string               `json:"id"`
	Type         string               `json:"type"`
	Properties   map[string]RichValue `json:"properties,omitempty"`
	ParentID     string               `json:"parent_id,omitempty"`
	ParentTable  string               `json:"parent_table,omitempty"`
	CollectionID string               `json:"collection_id,omitempty"`
	ViewIDs      []string             `json:"view_ids,omitempty"`
	Format       map[string]any       `json:"format,omitempty"`
	CreatedByID  string               `json:"created_by_id,omitempty"`
	Content      []string             `json:"content,omitempty"`
	Alive        bool                 `json:"alive,omitempty"`
}

// CollectionRecord wraps a collection value with its access role.
type CollectionRecord struct {
	Role  string      `json:"role"`
	Value *Collection `json:"value"`
}

// Collection is a table-like entity; Schema declares how row properties decode.
type Collection struct {
	ID          string                   `json:"id"`
	Name        RichValue                `json:"name,omitempty"`
	Schema      map[string]*SchemaColumn `json:"schema"`
	ParentID    string                   `json:"parent_id,omitempty"`
	ParentTable string                   `json:"parent_table,omitempty"`
	Format      json.RawMessage          `json:"format,omitempty"`
}

// DisplayName joins the collection's rich-text name into a plain string.
func (c *Collection) DisplayName() string {
	if c == nil {
		return ""
	}
	return c.Name.PlainText()
}

// SchemaColumn maps an internal property key to its display name and type.
type SchemaColumn struct {
	Name    string         `json:"name"`
	Type    ColumnType     `json:"type"`
	Options []SchemaOption `json:"options,omitempty"`
}

// SchemaOption is one declared choice of a select / multi_select column.
type SchemaOption struct {
	ID    string `json:"id"`
	Color string `json:"color,omitempty"`
	Value string `json:"value"`
}

// CollectionViewRecord wraps a view value with its access role.
type CollectionViewRecord struct {
	Role  string          `json:"role"`
	Value *CollectionView `json:"value"`
}

// CollectionView is one saved presentation (filters, sorts, column layout)
// of a collection.
type CollectionView struct {
	ID       string          `json:"id"`
	Name     string          `json:"name,omitempty"`
	Type     string          `json:"type,omitempty"`
	Format   *ViewFormat     `json:"format,omitempty"`
	Query2   *Query          `json:"query2,omitempty"`
	PageSort json.RawMessage `json:"page_sort,omitempty"`
}

// ViewFormat carries the view-level layout and filter settings we act on.
// Table column order only exists for table views; galleries have none.
type ViewFormat struct {
	TableProperties   []TableProperty  `json:"table_properties,omitempty"`
	PropertyFilters   []PropertyFilter `json:"property_filters,omitempty"`
	CollectionPointer *RecordPointer   `json:"collection_pointer,omitempty"`
}

// TableProperty is one column slot of a table view.
type TableProperty struct {
	Width    int    `json:"width,omitempty"`
	Visible  bool   `json:"visible"`
	Property string `json:"property"`
}

// PropertyFilter is a filter declared on the view format rather than in query2.
type PropertyFilter struct {
	Property string      `json:"property,omitempty"`
	Filter   *FilterSpec `json:"filter"`
}

// RecordPointer references another record by table and ID.
type RecordPointer struct {
	ID      string `json:"id"`
	Table   string `json:"table,omitempty"`
	SpaceID string `json:"spaceId,omitempty"`
}

// Query is a view's stored filter and sort specification.
type Query struct {
	Filter *FilterGroup    `json:"filter,omitempty"`
	Sort   json.RawMessage `json:"sort,omitempty"`
}

// FilterGroup composes filter entries; the upstream only emits "and" here.
type FilterGroup struct {
	Operator string         `json:"operator,omitempty"`
	Filters  []*FilterEntry `json:"filters,omitempty"`
}

// FilterEntry binds a filter to the internal property key it applies to.
type FilterEntry struct {
	Property string      `json:"property"`
	Filter   *FilterSpec `json:"filter"`
}

// FilterSpec is a single operator application.
type FilterSpec struct {
	Operator string       `json:"operator"`
	Value    *FilterValue `json:"value,omitempty"`
}

// FilterValue is the operand: Type is e.g. "exact", Value the matched text.
type FilterValue struct {
	Type  string `json:"type,omitempty"`
	Value string `json:"value,omitempty"`
}

// UserRecord wraps an upstream notion_user record.
type UserRecord struct {
	Role  string     `json:"role"`
	Value *UserValue `json:"value"`
}

// UserValue is the raw upstream user shape.
type UserValue struct {
	ID           string `json:"id"`
	GivenName    string `json:"given_name"`
	FamilyName   string `json:"family_name"`
	ProfilePhoto string `json:"profile_photo"`
	Email        string `json:"email,omitempty"`
}

// User is the resolved entity we expose to clients.
type User struct {
	ID           string `json:"id"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	FullName     string `json:"fullName"`
	ProfilePhoto string `json:"profilePhoto"`
}

// AsUser converts the raw record into the exposed shape.
func (u *UserValue) AsUser() User {
	return User{
		ID:           u.ID,
		FirstName:    u.GivenName,
		LastName:     u.FamilyName,
		FullName:     strings.TrimSpace(u.GivenName + " " + u.FamilyName),
		ProfilePhoto: u.ProfilePhoto,
	}
}

// RichValue is the raw formatted-text encoding used by most property values:
// a sequence of [text, [[mark, arg]]] tuples.
type RichValue []Fragment

// PlainText concatenates all fragment texts, ignoring marks.
func (v RichValue) PlainText() string {
	var b strings.Builder
	for _, f := range v {
		b.WriteString(f.Text)
	}
	return b.String()
}

// Fragment is one [text, marks] tuple of a rich value.
type Fragment struct {
	Text  string
	Marks []Mark
}

// UnmarshalJSON decodes the positional [text, marks] tuple.
func (f *Fragment) UnmarshalJSON(data []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return err
	}
	*f = Fragment{}
	if len(parts) > 0 {
		if err := json.Unmarshal(parts[0], &f.Text); err != nil {
			return err
		}
	}
	if len(parts) > 1 {
		if err := json.Unmarshal(parts[1], &f.Marks); err != nil {
			return err
		}
	}
	return nil
}

// MarshalJSON re-emits the positional tuple so raw passthrough round-trips.
func (f Fragment) MarshalJSON() ([]byte, error) {
	if len(f.Marks) == 0 {
		return json.Marshal([]any{f.Text})
	}
	return json.Marshal([]any{f.Text, f.Marks})
}

// Mark is one inline annotation: a tag plus an optional argument whose shape
// depends on the tag ("a" carries a URL, "d" a date payload, "u" a user ID).
type Mark struct {
	Tag string
	Arg json.RawMessage
}

// UnmarshalJSON decodes the positional [tag, arg] tuple.
func (m *Mark) UnmarshalJSON(data []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return err
	}
	*m = Mark{}
	if len(parts) > 0 {
		if err := json.Unmarshal(parts[0], &m.Tag); err != nil {
			return err
		}
	}
	if len(parts) > 1 {
		m.Arg = parts[1]
	}
	return nil
}

// MarshalJSON re-emits the positional tuple.
func (m Mark) MarshalJSON() ([]byte, error) {
	if m.Arg == nil {
		return json.Marshal([]any{m.Tag})
	}
	return json.Marshal([]any{m.Tag, m.Arg})
}

// StringArg decodes the mark argument as a plain string, or "" if it isn't one.
func (m Mark) StringArg() string {
	var s string
	if err := json.Unmarshal(m.Arg, &s); err != nil {
		return ""
	}
	return s
}

// DateValue is the structured payload of a "d" mark.
type DateValue struct {
	Type      string `json:"type,omitempty"`
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
	StartTime string `json:"start_time,omitempty"`
	EndTime   string `json:"end_time,omitempty"`
	TimeZone  string `json:"time_zone,omitempty"`
}

// FileLink is one decoded entry of a file column.
type FileLink struct {
	Name   string `json:"name"`
	URL    string `json:"url"`
	RawURL string `json:"rawUrl,omitempty"`
}

// Row is one decoded collection member, keyed by schema display names plus
// the reserved "id" and "format" keys. It exists only within a request.
type Row map[string]any

// ID returns the source block ID of the row.
func (r Row) ID() string {
	id, _ := r["id"].(string)
	return id
}

// Format returns the source block's display format, or nil.
func (r Row) Format() map[string]any {
	f, _ := r["format"].(map[string]any)
	return f
}
