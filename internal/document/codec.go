package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// SchemaVersion is the version written into envelopes by Wrap.
const SchemaVersion = 1

var (
	ErrMalformed   = errors.New("malformed document json")
	ErrMissingName = errors.New("document has no identity name")
	ErrNewerSchema = errors.New("document schema is newer than supported")
)

// Envelope is the versioned wrapper accepted on import.
type Envelope struct {
	SchemaVersion int                 `json:"schemaVersion"`
	Document      *CommissionDocument `json:"document"`
}

// Wrap puts d into a versioned envelope.
func Wrap(d *CommissionDocument) Envelope {
	return Envelope{SchemaVersion: SchemaVersion, Document: d}
}

// Format identifies which on-disk layout Decode recognised.
type Format string

const (
	FormatBare     Format = "bare"
	FormatEnvelope Format = "envelope"
	FormatLegacy   Format = "legacy"
)

// Decode parses an imported file. It accepts the bare document, a versioned
// envelope and the legacy flat layout. Fields missing from the input keep
// their default values. The identity name field must be present, even if
// empty, for the input to be accepted.
func Decode(data []byte) (*CommissionDocument, Format, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if _, ok := top["photographerName"]; ok {
		doc, err := decodeLegacy(data)
		if err != nil {
			return nil, "", err
		}
		return finish(doc, FormatLegacy)
	}

	format := FormatBare
	if rawDoc, ok := top["document"]; ok {
		if _, versioned := top["schemaVersion"]; versioned {
			var v struct {
				SchemaVersion int `json:"schemaVersion"`
			}
			if err := json.Unmarshal(data, &v); err != nil {
				return nil, "", fmt.Errorf("%w: %v", ErrMalformed, err)
			}
			if v.SchemaVersion > SchemaVersion {
				return nil, "", fmt.Errorf("%w: version %d", ErrNewerSchema, v.SchemaVersion)
			}
			if err := json.Unmarshal(rawDoc, &top); err != nil {
				return nil, "", fmt.Errorf("%w: %v", ErrMalformed, err)
			}
			data = rawDoc
			format = FormatEnvelope
		}
	}

	if !hasIdentityName(top) {
		return nil, "", ErrMissingName
	}

	doc := Default()
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return finish(doc, format)
}

func hasIdentityName(top map[string]json.RawMessage) bool {
	rawIdentity, ok := top["identity"]
	if !ok {
		return false
	}
	var identity map[string]json.RawMessage
	if err := json.Unmarshal(rawIdentity, &identity); err != nil {
		return false
	}
	name, ok := identity["name"]
	return ok && !bytes.Equal(bytes.TrimSpace(name), []byte("null"))
}

func finish(doc *CommissionDocument, format Format) (*CommissionDocument, Format, error) {
	doc.Normalize()
	if err := doc.Validate(); err != nil {
		return nil, "", err
	}
	return doc, format, nil
}

// DecodeStored parses a document previously written by this program. It
// skips the import checks and overlays the stored fields onto a default
// document, so a document saved before a field existed still loads with
// that field populated.
func DecodeStored(data []byte) (*CommissionDocument, error) {
	doc := Default()
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	doc.Normalize()
	return doc, nil
}
