package formatters

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"

	"sigs.k8s.io/yaml"

	"github.com/redhat-openshift-ecosystem/ecr-cleanup/internal/cleanup"
)

var (
	jsonMarshalIndent = json.MarshalIndent
	xmlMarshalIndent  = xml.MarshalIndent
	yamlMarshal       = yaml.Marshal
)

// genericJSONFormatter is a FormatterFunc that formats a report as JSON
func genericJSONFormatter(ctx context.Context, r *cleanup.RunReport) ([]byte, error) {
	responseJSON, err := jsonMarshalIndent(r, "", "    ")
	if err != nil {
		e := fmt.Errorf("error formatting report with formatter %s: %w",
			"json",
			err,
		)

		return nil, e
	}

	return responseJSON, nil
}

// genericXMLFormatter is a FormatterFunc that formats a report as XML
func genericXMLFormatter(ctx context.Context, r *cleanup.RunReport) ([]byte, error) {
	responseXML, err := xmlMarshalIndent(r, "", "    ")
	if err != nil {
		e := fmt.Errorf("error formatting report with formatter %s: %w",
			"xml",
			err,
		)

		return nil, e
	}

	return append([]byte(xml.Header), responseXML...), nil
}

// genericYAMLFormatter is a FormatterFunc that formats a report as YAML,
// using the JSON field names
func genericYAMLFormatter(ctx context.Context, r *cleanup.RunReport) ([]byte, error) {
	responseYAML, err := yamlMarshal(r)
	if err != nil {
		return nil, fmt.Errorf("error formatting report with formatter %s: %w", "yaml", err)
	}

	return responseYAML, nil
}
