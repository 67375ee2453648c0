package inbox

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// ExportDocument is the JSON form of a parsed records file.
type ExportDocument struct {
	Source      string          `json:"source" jsonschema:"required"`
	Contacts    int             `json:"contacts" jsonschema:"required"`
	TotalUnread int             `json:"total_unread" jsonschema:"required"`
	Messages    []UnreadMessage `json:"messages" jsonschema:"required"`
}

func NewExportDocument(source string, s *Snapshot) ExportDocument {
	msgs := s.Messages()
	if msgs == nil {
		msgs = []UnreadMessage{}
	}
	return ExportDocument{
		Source:      source,
		Contacts:    s.Len(),
		TotalUnread: s.TotalUnread(),
		Messages:    msgs,
	}
}

// ExportSchema returns the JSON Schema describing ExportDocument.
func ExportSchema(pretty bool) ([]byte, error) {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	schema := reflector.Reflect(&ExportDocument{})
	if pretty {
		return json.MarshalIndent(schema, "", "  ")
	}
	return json.Marshal(schema)
}
