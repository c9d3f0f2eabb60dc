package auditflow

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	inputsReadErrorTemplateConstant  = "unable to read audit inputs file: %w"
	inputsParseErrorTemplateConstant = "unable to parse audit inputs file: %w"
)

// InputsDocument is the operator-authored YAML document supplying optional
// audit inputs: per-department salary assumptions and free-form business
// inputs forwarded to the calculation backend.
type InputsDocument struct {
	DepartmentSalaries map[string]float64 `yaml:"department_salaries"`
	BusinessInputs     map[string]any     `yaml:"business_inputs"`
}

// LoadInputsDocument reads and parses the YAML inputs file at path.
func LoadInputsDocument(path string) (InputsDocument, error) {
	contentBytes, readError := os.ReadFile(path)
	if readError != nil {
		return InputsDocument{}, fmt.Errorf(inputsReadErrorTemplateConstant, readError)
	}

	var document InputsDocument
	if unmarshalError := yaml.Unmarshal(contentBytes, &document); unmarshalError != nil {
		return InputsDocument{}, fmt.Errorf(inputsParseErrorTemplateConstant, unmarshalError)
	}

	return document, nil
}

// LoadAssumptionsDocument reads a free-form YAML mapping of calculation
// assumptions forwarded verbatim to the backend.
func LoadAssumptionsDocument(path string) (map[string]any, error) {
	contentBytes, readError := os.ReadFile(path)
	if readError != nil {
		return nil, fmt.Errorf(inputsReadErrorTemplateConstant, readError)
	}

	var assumptions map[string]any
	if unmarshalError := yaml.Unmarshal(contentBytes, &assumptions); unmarshalError != nil {
		return nil, fmt.Errorf(inputsParseErrorTemplateConstant, unmarshalError)
	}

	return assumptions, nil
}
