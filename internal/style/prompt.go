package style

const percentPrompt = `Analyze the style of the largest title text in this YouTube thumbnail.

Return ONLY the JSON object below, with no other explanation.

{
  "text_color": "main text color as a hex code, e.g. #FFFFFF",
  "stroke_color": "outline color of the text as a hex code, or null when the text has no outline",
  "x_percent": "horizontal anchor of the text as a number from 0 to 100 (percent of image width)",
  "y_percent": "vertical center of the text as a number from 0 to 100 (percent of image height)",
  "font_size_percent": "text height as a number, percent of image height",
  "alignment": "one of left, center, right",
  "font_weight": "one of normal, bold, or a numeric weight such as 800"
}

Guide:
- x_percent is the left edge for left alignment, the center for center alignment and the right edge for right alignment.
- Numbers must be JSON numbers, not strings.

Return JSON only.`

const zonePrompt = `Analyze the style of the largest title text in this YouTube thumbnail.

Return ONLY the JSON object below, with no other explanation.

{
  "text_color": "main text color as a hex code, e.g. #FFFFFF",
  "text_position": "one of top-left, top-center, top-right, middle-left, center, middle-right, bottom-left, bottom-center, bottom-right",
  "font_size": "one of small, medium, large, xlarge",
  "font_style": "one of bold, normal, thin, italic"
}

Guide:
- font_size: xlarge above 20% of the image height, large 12-20%, medium 8-12%, small below 8%.

Return JSON only.`

// Prompt returns the instruction sent with the thumbnail for schema.
func Prompt(schema Schema) string {
	if schema == SchemaZone {
		return zonePrompt
	}
	return percentPrompt
}
