package model

// Metadata is the free-form key/value bag persisted as JSONB alongside a
// payment. The gateway does not echo back fields we stored earlier (QR
// codes, ticket URLs, payment method), so updates must merge rather than
// replace.
type Metadata map[string]interface{}

// Merge returns a new bag with incoming values written over base,
// per key. Keys absent from incoming survive from base untouched; this is
// the metadata-preservation guarantee reconciliation relies on.
func (base Metadata) Merge(incoming Metadata) Metadata {
	out := make(Metadata, len(base)+len(incoming))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range incoming {
		out[k] = v
	}
	return out
}

// String fetches a string-typed field, tolerating absence and wrong types.
func (m Metadata) String(key string) string {
	if m == nil {
		return ""
	}
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

// Int fetches a numeric field. JSON decoding yields float64, so both
// numeric shapes are accepted.
func (m Metadata) Int(key string) int {
	if m == nil {
		return 0
	}
	switch v := m[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}
