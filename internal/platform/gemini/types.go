package gemini

// Features is the analysis of one image.
type Features struct {
	Description       string            `json:"description"`
	ExtractedFeatures ExtractedFeatures `json:"extracted_features"`
}

// ExtractedFeatures holds the product attributes read from the image.
type ExtractedFeatures struct {
	Brand       string `json:"brand"`
	Category    string `json:"category"`
	Color       string `json:"color"`
	Composition string `json:"composition"`
}

const analysisPrompt = `Analyze this image and provide the following information in JSON format:
{
  "description": "A detailed description of the image in one sentence. Extract brand name, category, color, and composition.",
  "extracted_features": {
    "brand": "Extracted brand name from the image, if any.",
    "category": "Extracted category of the product, if identifiable.",
    "color": "Primary color of the product.",
    "composition": "Any composition details visible in the image as well as angle and scale/zoom, background color, people, items, text"
  }
}
Ensure the response is a valid JSON object. Return only the JSON object, no additional text.`

// featuresSchema is the JSON schema model output must satisfy. Feature
// values may be null when the model cannot tell.
const featuresSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["description", "extracted_features"],
  "properties": {
    "description": {"type": "string"},
    "extracted_features": {
      "type": "object",
      "properties": {
        "brand": {"type": ["string", "null"]},
        "category": {"type": ["string", "null"]},
        "color": {"type": ["string", "null"]},
        "composition": {"type": ["string", "null"]}
      }
    }
  }
}`
