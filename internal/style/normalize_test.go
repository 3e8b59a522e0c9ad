package style

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fieldsOf(t *testing.T, text string) map[string]json.RawMessage {
	t.Helper()
	fields, err := ParseFields(text)
	require.NoError(t, err)
	return fields
}

func TestParseFieldsIgnoresFencesAndProse(t *testing.T) {
	text := "Here you go:\n```json\n{\"text_color\": \"#ff0\"}\n```\nThanks"

	fields := fieldsOf(t, text)

	assert.JSONEq(t, `"#ff0"`, string(fields["text_color"]))
}

func TestParseFieldsWithoutObject(t *testing.T) {
	_, err := ParseFields("no json here")
	assert.ErrorIs(t, err, ErrNoJSON)

	_, err = ParseFields("{not json}")
	assert.Error(t, err)
}

func TestNormalizePercentClamps(t *testing.T) {
	fields := fieldsOf(t, `{
		"text_color": "#abc",
		"x_percent": -10,
		"y_percent": 140,
		"font_size_percent": 500,
		"alignment": "diagonal",
		"font_weight": "800"
	}`)

	attrs := Normalize(SchemaPercent, fields)

	require.True(t, attrs.Valid())
	p := attrs.Percent
	assert.Equal(t, "#AABBCC", p.TextColor)
	assert.Equal(t, 0.0, p.XPercent)
	assert.Equal(t, 100.0, p.YPercent)
	assert.Equal(t, 30.0, p.FontSizePercent)
	assert.Equal(t, AlignCenter, p.Alignment)
	assert.Equal(t, "800", p.FontWeight)
	require.NotNil(t, p.StrokeColor)
	assert.Equal(t, "#000000", *p.StrokeColor)
}

func TestNormalizePercentStrokeNull(t *testing.T) {
	attrs := Normalize(SchemaPercent, fieldsOf(t, `{"stroke_color": null}`))
	assert.Nil(t, attrs.Percent.StrokeColor)

	attrs = Normalize(SchemaPercent, fieldsOf(t, `{"stroke_color": "red"}`))
	require.NotNil(t, attrs.Percent.StrokeColor)
	assert.Equal(t, "#000000", *attrs.Percent.StrokeColor)

	attrs = Normalize(SchemaPercent, fieldsOf(t, `{"stroke_color": "#123456"}`))
	require.NotNil(t, attrs.Percent.StrokeColor)
	assert.Equal(t, "#123456", *attrs.Percent.StrokeColor)
}

func TestNormalizePercentWrongTypes(t *testing.T) {
	attrs := Normalize(SchemaPercent, fieldsOf(t, `{
		"x_percent": "20",
		"font_size_percent": 8,
		"text_color": 255,
		"font_weight": "heavy"
	}`))

	def := DefaultPercent()
	assert.Equal(t, def.XPercent, attrs.Percent.XPercent)
	assert.Equal(t, 8.0, attrs.Percent.FontSizePercent)
	assert.Equal(t, def.TextColor, attrs.Percent.TextColor)
	assert.Equal(t, def.FontWeight, attrs.Percent.FontWeight)
}

func TestNormalizeZone(t *testing.T) {
	attrs := Normalize(SchemaZone, fieldsOf(t, `{
		"text_color": "#00FF00",
		"text_position": "TOP-LEFT",
		"font_size": "huge",
		"font_style": "italic"
	}`))

	require.True(t, attrs.Valid())
	z := attrs.Zone
	assert.Equal(t, "#00FF00", z.TextColor)
	assert.Equal(t, ZoneTopLeft, z.TextPosition)
	assert.Equal(t, SizeLarge, z.FontSize)
	assert.Equal(t, FontStyleItalic, z.FontStyle)
}

func TestNormalizeEmptyIsDefault(t *testing.T) {
	assert.Equal(t, Default(SchemaPercent), Normalize(SchemaPercent, nil))
	assert.Equal(t, Default(SchemaZone), Normalize(SchemaZone, nil))
}

func TestIsBold(t *testing.T) {
	assert.True(t, IsBold("bold"))
	assert.True(t, IsBold("600"))
	assert.True(t, IsBold("900"))
	assert.False(t, IsBold("500"))
	assert.False(t, IsBold("normal"))
}

func TestAttributesJSON(t *testing.T) {
	attrs := Default(SchemaPercent)

	data, err := json.Marshal(attrs)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "percent", decoded["schema"])
	assert.Equal(t, "#FFFFFF", decoded["text_color"])

	var back Attributes
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, attrs, back)

	assert.Error(t, json.Unmarshal([]byte(`{"schema":"grid"}`), &back))

	_, err = json.Marshal(Attributes{Schema: SchemaZone})
	assert.Error(t, err)
}

func TestPrompt(t *testing.T) {
	assert.Contains(t, Prompt(SchemaPercent), "x_percent")
	assert.Contains(t, Prompt(SchemaZone), "text_position")
}
