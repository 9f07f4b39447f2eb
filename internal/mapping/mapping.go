// Package mapping converts raw file rows into canonical leads: column
// mapping templates, address normalization, and parcel id formatting.
package mapping

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/lead-engine/internal/model"
)

// Canonical field names accepted by mapping templates. Anything else maps
// into Lead.Extra.
const (
	FieldOriginalAddress = "original_address"
	FieldCity            = "city"
	FieldZipCode         = "zip_code"
	FieldParcelID        = "parcel_id"
	FieldOwnerFirstName  = "owner_first_name"
	FieldOwnerLastName   = "owner_last_name"
	FieldMailingAddress  = "mailing_address"
	FieldPhone           = "phone"
	FieldEmail           = "email"
)

// ColumnMapping pairs one source column with one canonical field.
type ColumnMapping struct {
	SourceColumn string `yaml:"source_column"`
	Field        string `yaml:"field"`
}

// Template is a saved set of column mappings for a data provider's export
// format.
type Template struct {
	Name     string          `yaml:"name"`
	Mappings []ColumnMapping `yaml:"mappings"`
}

// LoadTemplate reads a mapping template from a YAML file.
func LoadTemplate(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "mapping: read template %s", path)
	}

	var tpl Template
	if err := yaml.Unmarshal(data, &tpl); err != nil {
		return nil, eris.Wrap(err, "mapping: parse template")
	}

	if len(tpl.Mappings) == 0 {
		return nil, eris.Errorf("mapping: template %s has no mappings", path)
	}
	for _, m := range tpl.Mappings {
		if m.SourceColumn == "" || m.Field == "" {
			return nil, eris.Errorf("mapping: template %s has an incomplete mapping entry", path)
		}
	}

	return &tpl, nil
}

// Mapper applies a template to raw rows, producing canonical leads scoped
// to one market.
type Mapper struct {
	template *Template
	market   model.Market
	colIdx   map[string]int
}

// NewMapper resolves the template's source columns against the file header.
// Columns named by the template but absent from the header are an error;
// unmapped header columns are ignored.
func NewMapper(tpl *Template, header []string, market model.Market) (*Mapper, error) {
	idx := make(map[string]int, len(header))
	for i, col := range header {
		idx[strings.TrimSpace(col)] = i
	}

	colIdx := make(map[string]int, len(tpl.Mappings))
	for _, m := range tpl.Mappings {
		i, ok := idx[m.SourceColumn]
		if !ok {
			return nil, eris.Errorf("mapping: source column %q not found in file header", m.SourceColumn)
		}
		colIdx[m.Field] = i
	}

	return &Mapper{template: tpl, market: market, colIdx: colIdx}, nil
}

// Apply maps one raw row to a canonical Lead, computing the derived fields
// the dedup pipeline keys on: normalized address, formatted parcel id, and
// owner full name.
func (m *Mapper) Apply(row []string) model.Lead {
	get := func(field string) string {
		i, ok := m.colIdx[field]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	lead := model.Lead{
		OriginalAddress: get(FieldOriginalAddress),
		City:            get(FieldCity),
		ZipCode:         get(FieldZipCode),
		ParcelID:        get(FieldParcelID),
		OwnerFirstName:  get(FieldOwnerFirstName),
		OwnerLastName:   get(FieldOwnerLastName),
		MailingAddress:  get(FieldMailingAddress),
		Phone:           get(FieldPhone),
		Email:           get(FieldEmail),

		State:     m.market.State,
		StateFull: m.market.StateFull,
		Market:    m.market.MarketCode,

		Status:          model.LeadStatusNew,
		SyncStatus:      model.SyncStatusNotSynced,
		SkipTraceStatus: model.SkipTraceStatusNotStarted,
	}

	if lead.OwnerFirstName != "" || lead.OwnerLastName != "" {
		lead.OwnerFullName = FullName(lead.OwnerFirstName, lead.OwnerLastName)
	}

	if lead.ParcelID != "" {
		lead.ParcelID = FormatParcelID(lead.ParcelID, m.market.ParcelIDType)
		lead.ParcelIDType = m.market.ParcelIDType
	}

	lead.NormalizedAddress = NormalizeAddress(lead.OriginalAddress)

	// Canonical fields with no dedicated Lead column go into Extra.
	for field, i := range m.colIdx {
		if isKnownField(field) || i >= len(row) {
			continue
		}
		if v := strings.TrimSpace(row[i]); v != "" {
			if lead.Extra == nil {
				lead.Extra = make(map[string]string)
			}
			lead.Extra[field] = v
		}
	}

	return lead
}

// ApplyAll maps every row in order.
func (m *Mapper) ApplyAll(rows [][]string) []model.Lead {
	leads := make([]model.Lead, len(rows))
	for i, row := range rows {
		leads[i] = m.Apply(row)
	}
	return leads
}

func isKnownField(field string) bool {
	switch field {
	case FieldOriginalAddress, FieldCity, FieldZipCode, FieldParcelID,
		FieldOwnerFirstName, FieldOwnerLastName, FieldMailingAddress,
		FieldPhone, FieldEmail:
		return true
	}
	return false
}
