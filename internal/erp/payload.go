package erp

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/dukaforge/stocklink/pkg/types"
)

// Output modes for the tabular retrieval operation.
const (
	OutputModeTable = 1
	OutputModeText  = 2
)

// Output detail levels. The default dataset omits fields that are empty in
// the source; the full dataset carries them as empty elements.
const (
	OutputDefaultDataset = 2
	OutputIncludeEmpty   = 3
)

// OutputOptions is the options fragment of a tabular retrieval request.
type OutputOptions struct {
	Mode     int
	Metadata int
	Detail   int
}

// DefaultOutputOptions returns the options used when the caller supplies
// none: tabular output, no metadata, full dataset including empty values.
func DefaultOutputOptions() OutputOptions {
	return OutputOptions{Mode: OutputModeTable, Metadata: 0, Detail: OutputIncludeEmpty}
}

// Fragment renders the options wire fragment.
func (o OutputOptions) Fragment() string {
	return fmt.Sprintf("<options><Outputmode>%d</Outputmode><Metadata>%d</Metadata><Outputoptions>%d</Outputoptions></options>",
		o.Mode, o.Metadata, o.Detail)
}

// ParseRows parses a tabular payload into ordered rows. The payload's root
// element wraps one element per row; each row element wraps one element per
// field. An empty field element yields an empty string; a field the server
// omitted from a row (default dataset detail) is simply absent from that
// row's map.
func ParseRows(payload []byte) ([]types.Row, error) {
	dec := xml.NewDecoder(bytes.NewReader(payload))

	rows := []types.Row{}
	depth := 0
	var row types.Row
	var field string
	var value strings.Builder

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse tabular payload: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			switch depth {
			case 2:
				row = types.Row{}
			case 3:
				field = t.Name.Local
				value.Reset()
			}
		case xml.CharData:
			if depth == 3 {
				value.Write(t)
			}
		case xml.EndElement:
			switch depth {
			case 3:
				row[field] = value.String()
			case 2:
				rows = append(rows, row)
			}
			depth--
		}
	}
	return rows, nil
}

// escapeXML escapes a value for embedding in a wire fragment.
func escapeXML(s string) string {
	var b bytes.Buffer
	// EscapeText on plain text cannot fail.
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
