package ast

// RawString is a parsed string literal that keeps both its logical value and,
// when it came from source, the raw quoted token it was parsed from. Keeping
// the raw token lets the formatter round-trip a file's original escaping
// style instead of always re-escaping from the logical value.
type RawString struct {
	Value string
	raw   string
}

// NewRawString constructs a RawString with no raw source token, as when a
// directive is built programmatically rather than parsed.
func NewRawString(value string) RawString {
	return RawString{Value: value}
}

// NewRawStringWithRaw constructs a RawString from a parsed STRING token,
// keeping both the raw quoted text and its unquoted logical value.
func NewRawStringWithRaw(raw, value string) RawString {
	return RawString{Value: value, raw: raw}
}

// HasRaw reports whether this RawString retains its original source token.
func (r RawString) HasRaw() bool { return r.raw != "" }

// Raw returns the original quoted source token, or "" if there is none.
func (r RawString) Raw() string { return r.raw }

// String implements fmt.Stringer, returning the logical value.
func (r RawString) String() string { return r.Value }

// StringMetadata records the original quoted form of a string-valued field
// (payee, narration) so the formatter can preserve source escaping exactly.
type StringMetadata struct {
	raw string
}

// NewStringMetadata constructs a StringMetadata from a raw quoted token.
func NewStringMetadata(raw string) *StringMetadata {
	return &StringMetadata{raw: raw}
}

// HasOriginal reports whether m retains an original quoted token. Nil-safe.
func (m *StringMetadata) HasOriginal() bool {
	return m != nil && m.raw != ""
}

// QuotedContent returns the original quoted token including its quotes.
func (m *StringMetadata) QuotedContent() string {
	if m == nil {
		return ""
	}
	return m.raw
}
