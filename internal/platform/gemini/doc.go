// Package gemini analyzes product images with Google's Gemini models.
//
// VisionAnalyzer accepts a base64 string or a data URI, sends the image
// together with a fixed extraction prompt, and returns the description and
// extracted features. The configured models are tried in order; rate-limit
// errors are retried on the same model with exponential backoff and jitter
// before falling back to the next one. Responses are requested as JSON and
// validated against a JSON schema before being decoded.
package gemini
