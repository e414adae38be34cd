package extract

import (
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/paysplit/paysplit"
)

// candidateSchema is the shape contract for extraction replies. Business
// rules (percentage sums, address validity, currency) are deliberately
// absent: the schema only rejects structurally unusable replies.
const candidateSchema = `{
  "type": "object",
  "required": ["recipients", "amount"],
  "properties": {
    "recipients": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["percentage"],
        "properties": {
          "address": {"type": "string"},
          "name": {"type": "string"},
          "percentage": {"type": "number"}
        }
      }
    },
    "amount": {"type": "number"},
    "currency": {"type": "string"},
    "description": {"type": "string"}
  }
}`

var schemaLoader = gojsonschema.NewStringLoader(candidateSchema)

// validateCandidateJSON checks an extraction reply against the candidate
// schema and classifies any failure as extraction_malformed.
func validateCandidateJSON(content string) error {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewStringLoader(content))
	if err != nil {
		return paysplit.NewUpstreamError(paysplit.CodeExtractionMalformed, "extraction reply is not valid JSON", err)
	}
	if result.Valid() {
		return nil
	}
	details := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		details = append(details, desc.String())
	}
	return paysplit.NewUpstreamError(paysplit.CodeExtractionMalformed, "extraction reply does not match the invoice shape: "+strings.Join(details, "; "), nil)
}
