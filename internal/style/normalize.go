package style

import (
	"encoding/json"
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// ErrNoJSON is returned when a model reply holds no JSON object.
var ErrNoJSON = errors.New("style: no json object in response")

var (
	jsonObjectRE = regexp.MustCompile(`\{[\s\S]*\}`)
	hexColorRE   = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)
)

// ParseFields pulls the first {...} block out of a model reply and decodes it
// into raw fields. Code fences and surrounding prose are ignored.
func ParseFields(text string) (map[string]json.RawMessage, error) {
	block := jsonObjectRE.FindString(text)
	if block == "" {
		return nil, ErrNoJSON
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal([]byte(block), &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

// Normalize validates every field of the schema independently. Absent,
// mistyped or out-of-domain values take the schema default; numeric fields
// are clamped to their ranges.
func Normalize(schema Schema, fields map[string]json.RawMessage) Attributes {
	if schema == SchemaZone {
		z := normalizeZone(fields)
		return Attributes{Schema: SchemaZone, Zone: &z}
	}
	p := normalizePercent(fields)
	return Attributes{Schema: SchemaPercent, Percent: &p}
}

func normalizePercent(fields map[string]json.RawMessage) PercentStyle {
	def := DefaultPercent()
	out := def

	out.TextColor = colorField(fields, "text_color", def.TextColor)
	out.StrokeColor = strokeField(fields, "stroke_color", def.StrokeColor)
	out.XPercent = numberField(fields, "x_percent", def.XPercent, MinPositionPercent, MaxPositionPercent)
	out.YPercent = numberField(fields, "y_percent", def.YPercent, MinPositionPercent, MaxPositionPercent)
	out.FontSizePercent = numberField(fields, "font_size_percent", def.FontSizePercent, MinFontSizePercent, MaxFontSizePercent)
	out.Alignment = Alignment(enumField(fields, "alignment", string(def.Alignment),
		string(AlignLeft), string(AlignCenter), string(AlignRight)))
	out.FontWeight = weightField(fields, "font_weight", def.FontWeight)

	return out
}

func normalizeZone(fields map[string]json.RawMessage) ZoneStyle {
	def := DefaultZone()
	out := def

	zones := make([]string, len(Zones))
	for i, z := range Zones {
		zones[i] = string(z)
	}

	out.TextColor = colorField(fields, "text_color", def.TextColor)
	out.TextPosition = Zone(enumField(fields, "text_position", string(def.TextPosition), zones...))
	out.FontSize = SizeBucket(enumField(fields, "font_size", string(def.FontSize),
		string(SizeSmall), string(SizeMedium), string(SizeLarge), string(SizeXLarge)))
	out.FontStyle = enumField(fields, "font_style", def.FontStyle,
		FontStyleBold, FontStyleNormal, FontStyleThin, FontStyleItalic)

	return out
}

func stringField(fields map[string]json.RawMessage, key string) (string, bool) {
	raw, ok := fields[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return strings.TrimSpace(s), true
}

func isNull(raw json.RawMessage) bool {
	return strings.TrimSpace(string(raw)) == "null"
}

// CanonicalColor expands #RGB to #RRGGBB and upper-cases the digits.
func CanonicalColor(s string) (string, bool) {
	if !hexColorRE.MatchString(s) {
		return "", false
	}
	digits := strings.ToUpper(s[1:])
	if len(digits) == 3 {
		digits = string([]byte{digits[0], digits[0], digits[1], digits[1], digits[2], digits[2]})
	}
	return "#" + digits, true
}

func colorField(fields map[string]json.RawMessage, key, def string) string {
	s, ok := stringField(fields, key)
	if !ok {
		return def
	}
	if c, ok := CanonicalColor(s); ok {
		return c
	}
	return def
}

// strokeField keeps an explicit null, which disables the outline.
func strokeField(fields map[string]json.RawMessage, key string, def *string) *string {
	raw, ok := fields[key]
	if ok && isNull(raw) {
		return nil
	}
	s, ok := stringField(fields, key)
	if ok {
		if c, ok := CanonicalColor(s); ok {
			return &c
		}
	}
	if def == nil {
		return nil
	}
	c := *def
	return &c
}

func numberField(fields map[string]json.RawMessage, key string, def, lo, hi float64) float64 {
	raw, ok := fields[key]
	if !ok {
		return def
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return def
	}
	return clamp(v, lo, hi)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func enumField(fields map[string]json.RawMessage, key, def string, allowed ...string) string {
	s, ok := stringField(fields, key)
	if !ok {
		return def
	}
	s = strings.ToLower(s)
	for _, a := range allowed {
		if s == a {
			return a
		}
	}
	return def
}

// weightField accepts "normal", "bold" or a CSS numeric weight 100..900.
func weightField(fields map[string]json.RawMessage, key, def string) string {
	s, ok := stringField(fields, key)
	if !ok {
		return def
	}
	s = strings.ToLower(s)
	if s == FontStyleNormal || s == FontStyleBold {
		return s
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 100 && n <= 900 && n%100 == 0 {
		return s
	}
	return def
}

// IsBold reports whether a percent-schema weight renders with the bold face.
func IsBold(weight string) bool {
	if weight == FontStyleBold {
		return true
	}
	n, err := strconv.Atoi(weight)
	return err == nil && n >= 600
}
