package wire

import (
	"github.com/invopop/jsonschema"
)

// SchemaFor reflects the JSON Schema of a payload type. Other services on
// the platform (not all of them written in Go) validate stored payloads
// against these published schemas instead of re-declaring the shapes.
func SchemaFor(v any) *jsonschema.Schema {
	r := &jsonschema.Reflector{
		// Inline everything: consumers get one self-contained document per
		// payload type rather than a $defs forest.
		DoNotReference: true,
	}
	return r.Reflect(v)
}

// EnvelopeSchema returns the schema of the outer envelope all stored
// payloads share.
func EnvelopeSchema() *jsonschema.Schema {
	return SchemaFor(&Envelope{})
}
