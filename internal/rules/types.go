// Package rules holds the typed rule tree that drives statement extraction:
// Company -> Account -> StatementType -> header/lines rule groups ->
// locations, fields, tables, and transaction specs. The tree is loaded once
// from YAML rule files and linked so cross-references (account type, statement
// type, company, statement table) resolve to shared objects.
package rules

// ValueKind is the closed set of field value types.
type ValueKind string

const (
	KindNumeric ValueKind = "numeric"
	KindString  ValueKind = "string"
	KindDate    ValueKind = "date"
)

// Cell addresses a fixed cell in an extracted table.
type Cell struct {
	Row int `yaml:"row"`
	Col int `yaml:"col"`
}

// NumericModifier adjusts a numeric field after pattern matching: when the
// configured prefix or suffix token is present the value is scaled by
// Multiplier, and values whose sign is excluded are clamped to zero.
type NumericModifier struct {
	Prefix                string  `yaml:"prefix"`
	Suffix                string  `yaml:"suffix"`
	Multiplier            float64 `yaml:"multiplier"`
	ExcludeNegativeValues bool    `yaml:"exclude_negative_values"`
	ExcludePositiveValues bool    `yaml:"exclude_positive_values"`
}

// Scale returns the configured multiplier, defaulting to 1 when unset.
func (m *NumericModifier) Scale() float64 {
	if m == nil || m.Multiplier == 0 {
		return 1
	}
	return m.Multiplier
}

// FieldOffset describes a secondary value read from an adjacent column. When
// the primary field extracts successfully, the offset value is re-run through
// the full pipeline with this spec and replaces the primary value.
type FieldOffset struct {
	RowsOffset      int              `yaml:"rows_offset"`
	ColsOffset      int              `yaml:"cols_offset"`
	Vital           bool             `yaml:"vital"`
	Type            ValueKind        `yaml:"type"`
	NumericCurrency string           `yaml:"numeric_currency"`
	NumericModifier *NumericModifier `yaml:"numeric_modifier"`
}

// Field is one extractable value: where to find it, what kind it is, and how
// to normalize it. A failure on a vital field is a hard failure for the
// document rather than a soft miss.
type Field struct {
	Field                string           `yaml:"field"`
	Cell                 *Cell            `yaml:"cell"`
	Column               *int             `yaml:"column"`
	Vital                bool             `yaml:"vital"`
	Type                 ValueKind        `yaml:"type"`
	StripCharactersStart string           `yaml:"strip_characters_start"`
	StripCharactersEnd   string           `yaml:"strip_characters_end"`
	NumericCurrency      string           `yaml:"numeric_currency"`
	NumericModifier      *NumericModifier `yaml:"numeric_modifier"`
	StringPattern        string           `yaml:"string_pattern"`
	StringMaxLength      int              `yaml:"string_max_length"`
	DateFormat           string           `yaml:"date_format"`
	ValueOffset          *FieldOffset     `yaml:"value_offset"`
}

// DynamicLineSpec ties the last table column boundary to the x-position of an
// image on the page, for layouts where the final column tracks a logo.
type DynamicLineSpec struct {
	ImageID          int    `yaml:"image_id"`
	ImageLocationTag string `yaml:"image_location_tag"`
}

// Location selects a page region. PageNumber 0 means "spawn": the location is
// duplicated for every page not already claimed by an explicit location.
type Location struct {
	PageNumber              int              `yaml:"page_number"`
	TopLeft                 []float64        `yaml:"top_left"`
	BottomRight             []float64        `yaml:"bottom_right"`
	VerticalLines           []float64        `yaml:"vertical_lines"`
	DynamicLastVerticalLine *DynamicLineSpec `yaml:"dynamic_last_vertical_line"`
	AllowTextFailover       bool             `yaml:"allow_text_failover"`
	TryShiftDown            float64          `yaml:"try_shift_down"`
}

// FieldValidation is an extra pattern a named field must match for a row to
// qualify as a bookend boundary.
type FieldValidation struct {
	Field   string `yaml:"field"`
	Pattern string `yaml:"pattern"`
}

// Bookend identifies the first and last row of a multi-row transaction. A row
// is a start candidate when at least MinNonEmptyStart of the start fields
// extracted successfully; symmetrically for end rows.
type Bookend struct {
	StartFields          []string         `yaml:"start_fields"`
	MinNonEmptyStart     int              `yaml:"min_non_empty_start"`
	EndFields            []string         `yaml:"end_fields"`
	MinNonEmptyEnd       int              `yaml:"min_non_empty_end"`
	ExtraValidationStart *FieldValidation `yaml:"extra_validation_start"`
	ExtraValidationEnd   *FieldValidation `yaml:"extra_validation_end"`
}

// MergeFields lists fields concatenated across a transaction's rows.
type MergeFields struct {
	Fields    []string `yaml:"fields"`
	Separator string   `yaml:"separator"`
}

// TransactionSpec describes how tabular rows are assembled into discrete
// transactions. Bookend rule sets are tried in declaration order; rows claimed
// by an earlier set are excluded from later ones.
type TransactionSpec struct {
	Bookends          []Bookend    `yaml:"transaction_bookends"`
	FillForwardFields []string     `yaml:"fill_forward_fields"`
	MergeFields       *MergeFields `yaml:"merge_fields"`
}

// StatementTable is a tabular extraction unit: table-acquisition tuning, the
// fields pulled from it, and optionally a TransactionSpec for multi-row
// transaction assembly.
type StatementTable struct {
	Name            string           `yaml:"statement_table"`
	Type            string           `yaml:"type"`
	HeaderText      string           `yaml:"header_text"`
	RemoveHeader    bool             `yaml:"remove_header"`
	Locations       []Location       `yaml:"locations"`
	Fields          []Field          `yaml:"fields"`
	TableColumns    int              `yaml:"table_columns"`
	TableRows       int              `yaml:"table_rows"`
	RowSpacing      float64          `yaml:"row_spacing"`
	TransactionSpec *TransactionSpec `yaml:"transaction_spec"`
}

// Config is one extraction rule: either a single field read from locations, or
// a statement table referenced by key. A Config with no statement table also
// serves as a discriminator when attached to a company or account.
type Config struct {
	Name              string     `yaml:"config"`
	StatementTableKey string     `yaml:"statement_table_key"`
	Locations         []Location `yaml:"locations"`
	Field             *Field     `yaml:"field"`

	// StatementTable is populated by linking from StatementTableKey.
	StatementTable *StatementTable `yaml:"-"`
}

// ConfigGroup is an ordered list of Configs for one statement section.
type ConfigGroup struct {
	Configs []Config `yaml:"configs"`
}

// StatementType owns the header and lines rule groups for one statement
// layout.
type StatementType struct {
	Name   string      `yaml:"statement_type"`
	Header ConfigGroup `yaml:"header"`
	Lines  ConfigGroup `yaml:"lines"`
}

// AccountType classifies an account (current, savings, credit card, ...).
type AccountType struct {
	Name string `yaml:"account_type"`
}

// Company is an institution. Its Config, when present, is the discriminator
// used to decide whether a document belongs to this institution.
type Company struct {
	Name   string  `yaml:"company"`
	Config *Config `yaml:"config"`
}

// Account is a leaf of the hierarchy. Every account references exactly one
// company, one account type, and one statement type by key; the object
// pointers are populated at link time.
type Account struct {
	Name              string `yaml:"account"`
	CompanyKey        string `yaml:"company_key"`
	AccountTypeKey    string `yaml:"account_type_key"`
	StatementTypeKey  string `yaml:"statement_type_key"`
	ExcludeLastNPages int    `yaml:"exclude_last_n_pages"`
	Config            Config `yaml:"config"`

	Company       *Company       `yaml:"-"`
	AccountType   *AccountType   `yaml:"-"`
	StatementType *StatementType `yaml:"-"`
}

// StdRef maps one statement type's raw field onto a standard field, with the
// numeric/date normalization to apply on the way.
type StdRef struct {
	StatementType         string  `yaml:"statement_type"`
	Field                 string  `yaml:"field"`
	Format                string  `yaml:"format"`
	Default               string  `yaml:"default"`
	Multiplier            float64 `yaml:"multiplier"`
	ExcludePositiveValues bool    `yaml:"exclude_positive_values"`
	ExcludeNegativeValues bool    `yaml:"exclude_negative_values"`
	Terminator            string  `yaml:"terminator"`
}

// Scale returns the configured multiplier, defaulting to 1 when unset.
func (r StdRef) Scale() float64 {
	if r.Multiplier == 0 {
		return 1
	}
	return r.Multiplier
}

// StandardField is a canonical field downstream validation and storage operate
// on, with one StdRef per statement type that can supply it.
type StandardField struct {
	Section string    `yaml:"section"`
	Type    ValueKind `yaml:"type"`
	Vital   bool      `yaml:"vital"`
	Refs    []StdRef  `yaml:"std_refs"`
}

// Ref returns the StdRef matching a statement type, or false when none is
// configured.
func (f *StandardField) Ref(statementType string) (StdRef, bool) {
	for _, ref := range f.Refs {
		if ref.StatementType == statementType {
			return ref, true
		}
	}
	return StdRef{}, false
}
