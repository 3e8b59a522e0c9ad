// Package style describes how caption text is drawn on a remade thumbnail
// and derives those attributes from a reference thumbnail with a vision model.
//
// Two attribute schemas exist. The percent schema places text with
// continuous coordinates and sizes; the zone schema uses named zones and
// size buckets. A deployment runs exactly one of them, and Attributes is a
// tagged variant carrying the payload of the active schema.
package style

import (
	"encoding/json"
	"fmt"
)

// Schema selects the attribute shape.
type Schema string

const (
	SchemaPercent Schema = "percent"
	SchemaZone    Schema = "zone"
)

// ParseSchema maps a config value to a Schema, percent being canonical.
func ParseSchema(s string) Schema {
	if Schema(s) == SchemaZone {
		return SchemaZone
	}
	return SchemaPercent
}

// Alignment is the horizontal anchor of the caption.
type Alignment string

const (
	AlignLeft   Alignment = "left"
	AlignCenter Alignment = "center"
	AlignRight  Alignment = "right"
)

// Zone is a named caption position in the zone schema. The table is the
// full 3x3 grid: middle-left and middle-right complete the seven positions
// the zone prompt historically offered.
type Zone string

const (
	ZoneTopLeft      Zone = "top-left"
	ZoneTopCenter    Zone = "top-center"
	ZoneTopRight     Zone = "top-right"
	ZoneMiddleLeft   Zone = "middle-left"
	ZoneCenter       Zone = "center"
	ZoneMiddleRight  Zone = "middle-right"
	ZoneBottomLeft   Zone = "bottom-left"
	ZoneBottomCenter Zone = "bottom-center"
	ZoneBottomRight  Zone = "bottom-right"
)

// Zones lists every accepted zone, row by row.
var Zones = []Zone{
	ZoneTopLeft, ZoneTopCenter, ZoneTopRight,
	ZoneMiddleLeft, ZoneCenter, ZoneMiddleRight,
	ZoneBottomLeft, ZoneBottomCenter, ZoneBottomRight,
}

// SizeBucket is a qualitative caption size in the zone schema.
type SizeBucket string

const (
	SizeSmall  SizeBucket = "small"
	SizeMedium SizeBucket = "medium"
	SizeLarge  SizeBucket = "large"
	SizeXLarge SizeBucket = "xlarge"
)

// Font styles of the zone schema.
const (
	FontStyleBold   = "bold"
	FontStyleNormal = "normal"
	FontStyleThin   = "thin"
	FontStyleItalic = "italic"
)

// Bounds of the percent schema numeric fields.
const (
	MinPositionPercent = 0.0
	MaxPositionPercent = 100.0
	MinFontSizePercent = 4.0
	MaxFontSizePercent = 30.0
)

// PercentStyle is the continuous schema. A nil StrokeColor means the
// reference text has no outline and the stroke pass is skipped.
type PercentStyle struct {
	TextColor       string    `json:"text_color"`
	StrokeColor     *string   `json:"stroke_color"`
	XPercent        float64   `json:"x_percent"`
	YPercent        float64   `json:"y_percent"`
	FontSizePercent float64   `json:"font_size_percent"`
	Alignment       Alignment `json:"alignment"`
	FontWeight      string    `json:"font_weight"`
}

// ZoneStyle is the named-zone schema.
type ZoneStyle struct {
	TextColor    string     `json:"text_color"`
	TextPosition Zone       `json:"text_position"`
	FontSize     SizeBucket `json:"font_size"`
	FontStyle    string     `json:"font_style"`
}

// Attributes carries exactly one payload, the one named by Schema.
type Attributes struct {
	Schema  Schema
	Percent *PercentStyle
	Zone    *ZoneStyle
}

const (
	defaultTextColor   = "#FFFFFF"
	defaultStrokeColor = "#000000"
)

// DefaultPercent is the fallback record of the percent schema.
func DefaultPercent() PercentStyle {
	stroke := defaultStrokeColor
	return PercentStyle{
		TextColor:       defaultTextColor,
		StrokeColor:     &stroke,
		XPercent:        50,
		YPercent:        85,
		FontSizePercent: 12,
		Alignment:       AlignCenter,
		FontWeight:      FontStyleBold,
	}
}

// DefaultZone is the fallback record of the zone schema.
func DefaultZone() ZoneStyle {
	return ZoneStyle{
		TextColor:    defaultTextColor,
		TextPosition: ZoneBottomCenter,
		FontSize:     SizeLarge,
		FontStyle:    FontStyleBold,
	}
}

// Default returns the full default record for schema.
func Default(schema Schema) Attributes {
	if schema == SchemaZone {
		z := DefaultZone()
		return Attributes{Schema: SchemaZone, Zone: &z}
	}
	p := DefaultPercent()
	return Attributes{Schema: SchemaPercent, Percent: &p}
}

// Valid reports whether the payload matches the tag.
func (a Attributes) Valid() bool {
	switch a.Schema {
	case SchemaPercent:
		return a.Percent != nil && a.Zone == nil
	case SchemaZone:
		return a.Zone != nil && a.Percent == nil
	default:
		return false
	}
}

// MarshalJSON flattens the payload next to a "schema" tag.
func (a Attributes) MarshalJSON() ([]byte, error) {
	var payload any
	switch a.Schema {
	case SchemaPercent:
		payload = a.Percent
	case SchemaZone:
		payload = a.Zone
	}
	if payload == nil || !a.Valid() {
		return nil, fmt.Errorf("style: attributes payload does not match schema %q", a.Schema)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	tag, _ := json.Marshal(a.Schema)
	fields["schema"] = tag
	return json.Marshal(fields)
}

// UnmarshalJSON reads the schema tag and normalizes the remaining fields.
func (a *Attributes) UnmarshalJSON(data []byte) error {
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	var schema Schema
	if raw, ok := fields["schema"]; ok {
		if err := json.Unmarshal(raw, &schema); err != nil {
			return fmt.Errorf("style: schema tag: %w", err)
		}
	}
	if schema != SchemaPercent && schema != SchemaZone {
		return fmt.Errorf("style: unknown schema %q", schema)
	}
	*a = Normalize(schema, fields)
	return nil
}
