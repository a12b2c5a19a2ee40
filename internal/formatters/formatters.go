// Package formatters renders a cleanup RunReport for the artifacts directory.
package formatters

import (
	"context"
	"fmt"

	"github.com/redhat-openshift-ecosystem/ecr-cleanup/internal/cleanup"
)

const DefaultFormat = "json"

// FormatterFunc renders r as bytes.
type FormatterFunc = func(ctx context.Context, r *cleanup.RunReport) ([]byte, error)

// ResponseFormatter describes the expected methods a formatter
// must implement.
type ResponseFormatter interface {
	// PrettyName is the name used to represent this formatter.
	PrettyName() string
	// FileExtension represents the file extension one might use when creating
	// a file with the contents of this formatter.
	FileExtension() string
	// Format takes a RunReport, formats it as needed, and returns the formatted
	// report ready to write as a byte slice.
	Format(context.Context, *cleanup.RunReport) (response []byte, formattingError error)
}

// NewByName returns a predefined ResponseFormatter with the given name.
func NewByName(name string) (ResponseFormatter, error) {
	formatter, defined := availableFormatters[name]
	if !defined {
		return nil, fmt.Errorf("%s: %s",
			"The requested formatter is unknown",
			name,
		)
	}

	return formatter, nil
}

// New returns a new formatter with the provided name and FormatterFunc.
func New(name, extension string, fn FormatterFunc) (ResponseFormatter, error) {
	if len(name) == 0 {
		return nil, fmt.Errorf(
			"failed to create a new generic formatter: formatter name is required",
		)
	}

	gf := genericFormatter{
		name:          name,
		formatterFunc: fn,
		fileExtension: extension,
	}

	return &gf, nil
}

// Names lists the formats NewByName accepts.
func Names() []string {
	return []string{"json", "text", "xml", "yaml"}
}

// genericFormatter implements the ResponseFormatter interface around a
// FormatterFunc.
type genericFormatter struct {
	name          string
	fileExtension string
	formatterFunc FormatterFunc
}

// PrettyName returns a string identification of the formatter that's in use.
func (f *genericFormatter) PrettyName() string {
	return f.name
}

// Format returns the formatted report as a byte slice.
func (f *genericFormatter) Format(ctx context.Context, r *cleanup.RunReport) ([]byte, error) {
	return f.formatterFunc(ctx, r)
}

// FileExtension returns the extension a user might use when formatting
// a report with this formatter and writing that to disk.
func (f *genericFormatter) FileExtension() string {
	return f.fileExtension
}

// availableFormatters maps configuration-friendly values to their
// corresponding Formatter.
var availableFormatters = map[string]ResponseFormatter{
	"json": &genericFormatter{"Generic JSON", "json", genericJSONFormatter},
	"xml":  &genericFormatter{"Generic XML", "xml", genericXMLFormatter},
	"yaml": &genericFormatter{"Generic YAML", "yaml", genericYAMLFormatter},
	"text": &genericFormatter{"Plain Text", "txt", textFormatter},
}
