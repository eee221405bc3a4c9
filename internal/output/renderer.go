package output

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/tyemirov/ctxtree/internal/types"
)

const unsupportedFormatErrorFormat = "unsupported output format %q"

// Renderer writes a summary document in one output format.
type Renderer interface {
	Render(document *types.SummaryDocument) error
}

// NewRenderer returns the renderer for format.
func NewRenderer(format string, writer io.Writer, includeSummary bool) (Renderer, error) {
	switch format {
	case types.FormatRaw:
		return &rawRenderer{writer: writer, includeSummary: includeSummary}, nil
	case types.FormatJSON:
		return &jsonRenderer{writer: writer}, nil
	case types.FormatXML:
		return &xmlRenderer{writer: writer}, nil
	case types.FormatYAML:
		return &yamlRenderer{writer: writer}, nil
	default:
		return nil, fmt.Errorf(unsupportedFormatErrorFormat, format)
	}
}

type rawRenderer struct {
	writer         io.Writer
	includeSummary bool
}

func (renderer *rawRenderer) Render(document *types.SummaryDocument) error {
	if document == nil {
		return nil
	}
	if renderer.includeSummary {
		if _, writeError := fmt.Fprintf(renderer.writer, "%s\n\n", FormatSummaryLine(document)); writeError != nil {
			return writeError
		}
	}
	if _, writeError := io.WriteString(renderer.writer, document.ASCII); writeError != nil {
		return writeError
	}
	if renderer.includeSummary && len(document.TruncatedDirectories) > 0 {
		if writeError := writeList(renderer.writer, truncatedHeader, document.TruncatedDirectories); writeError != nil {
			return writeError
		}
	}
	if len(document.Files) > 0 {
		return writeList(renderer.writer, filesHeader, document.Files)
	}
	return nil
}

func writeList(writer io.Writer, header string, items []string) error {
	if _, writeError := fmt.Fprintf(writer, "\n%s\n", header); writeError != nil {
		return writeError
	}
	for _, item := range items {
		if _, writeError := fmt.Fprintf(writer, listItemFormat, item); writeError != nil {
			return writeError
		}
	}
	return nil
}

type jsonRenderer struct {
	writer io.Writer
}

func (renderer *jsonRenderer) Render(document *types.SummaryDocument) error {
	encoded, jsonEncodeError := json.MarshalIndent(document, indentPrefix, indentSpacer)
	if jsonEncodeError != nil {
		return jsonEncodeError
	}
	_, writeError := fmt.Fprintln(renderer.writer, string(encoded))
	return writeError
}

type xmlRenderer struct {
	writer io.Writer
}

func (renderer *xmlRenderer) Render(document *types.SummaryDocument) error {
	encoded, xmlMarshalError := xml.MarshalIndent(document, indentPrefix, indentSpacer)
	if xmlMarshalError != nil {
		return xmlMarshalError
	}
	_, writeError := fmt.Fprintln(renderer.writer, xmlHeader+string(encoded))
	return writeError
}

type yamlRenderer struct {
	writer io.Writer
}

func (renderer *yamlRenderer) Render(document *types.SummaryDocument) error {
	encoder := yaml.NewEncoder(renderer.writer)
	encoder.SetIndent(len(indentSpacer))
	if encodeError := encoder.Encode(document); encodeError != nil {
		return encodeError
	}
	return encoder.Close()
}
