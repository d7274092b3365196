package pipeline

import "github.com/cashforce/propostas-sync/internal/normalize"

// RawRow is one spreadsheet row keyed by its original header text.
type RawRow map[string]any

// Record is a proposta keyed by canonical field name. Before Normalize runs
// the values are raw cell contents; afterwards each value is the field's
// typed value or nil.
type Record map[string]any

// MapRow projects a raw row onto canonical field names. Headers not in the
// mapping table are dropped; no parsing or validation happens here.
func MapRow(row RawRow) Record {
	rec := make(Record, len(row))
	for label, value := range row {
		if field, ok := columnMapping[label]; ok {
			rec[field] = value
		}
	}
	return rec
}

// HasKey reports whether a mapped record carries a usable nfid: non-empty
// after trimming and not a placeholder token.
func HasKey(rec Record) bool {
	return normalize.String(rec[KeyField]) != nil
}

// FilterKeyed drops records without a usable nfid, preserving order.
func FilterKeyed(recs []Record) []Record {
	kept := make([]Record, 0, len(recs))
	for _, rec := range recs {
		if HasKey(rec) {
			kept = append(kept, rec)
		}
	}
	return kept
}

// Normalize converts every field of a mapped record according to its
// declared type. Each conversion degrades to nil on failure; the record as a
// whole always survives. Fields absent from the input stay absent.
func Normalize(rec Record) Record {
	out := make(Record, len(rec))
	for field, raw := range rec {
		switch fieldTypes[field] {
		case TypeText:
			out[field] = ptrAny(normalize.Text(raw))
		case TypeCurrency:
			out[field] = ptrAny(normalize.Currency(raw))
		case TypePercentage:
			out[field] = ptrAny(normalize.Percentage(raw))
		case TypeDate:
			out[field] = ptrAny(normalize.Date(raw))
		case TypeBoolean:
			out[field] = ptrAny(normalize.Boolean(raw))
		case TypeInteger:
			out[field] = ptrAny(normalize.Integer(raw))
		default:
			out[field] = ptrAny(normalize.String(raw))
		}
	}
	return out
}

// Key returns the record's nfid, or "" when absent.
func (r Record) Key() string {
	if s, ok := r[KeyField].(string); ok {
		return s
	}
	return ""
}

// OperationDate returns the normalized data_operacao (ISO formatted), or ""
// when the date was absent or unparsable.
func (r Record) OperationDate() string {
	if s, ok := r[OperationDateField].(string); ok {
		return s
	}
	return ""
}

// ptrAny flattens a typed nil pointer into an untyped nil so the record
// marshals as JSON null and interface comparisons against nil behave.
func ptrAny[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}
