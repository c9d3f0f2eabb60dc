package auditflow_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/sfaudit/internal/auditflow"
)

const inputsDocumentContentConstant = `department_salaries:
  sales: 95000
  engineering: 140000
business_inputs:
  crm_seats: 120
  industry: manufacturing
`

func writeTemporaryFile(testInstance *testing.T, fileName string, content string) string {
	testInstance.Helper()

	filePath := filepath.Join(testInstance.TempDir(), fileName)
	require.NoError(testInstance, os.WriteFile(filePath, []byte(content), 0o600))

	return filePath
}

func TestLoadInputsDocumentParsesSalariesAndBusinessInputs(testInstance *testing.T) {
	testInstance.Parallel()

	inputsPath := writeTemporaryFile(testInstance, "inputs.yaml", inputsDocumentContentConstant)

	document, loadError := auditflow.LoadInputsDocument(inputsPath)
	require.NoError(testInstance, loadError)
	require.Equal(testInstance, float64(95000), document.DepartmentSalaries["sales"])
	require.Equal(testInstance, float64(140000), document.DepartmentSalaries["engineering"])
	require.Equal(testInstance, 120, document.BusinessInputs["crm_seats"])
	require.Equal(testInstance, "manufacturing", document.BusinessInputs["industry"])
}

func TestLoadInputsDocumentRejectsMissingFile(testInstance *testing.T) {
	testInstance.Parallel()

	_, loadError := auditflow.LoadInputsDocument(filepath.Join(testInstance.TempDir(), "absent.yaml"))
	require.Error(testInstance, loadError)
}

func TestLoadInputsDocumentRejectsMalformedYAML(testInstance *testing.T) {
	testInstance.Parallel()

	inputsPath := writeTemporaryFile(testInstance, "broken.yaml", "department_salaries: [unclosed")

	_, loadError := auditflow.LoadInputsDocument(inputsPath)
	require.Error(testInstance, loadError)
}

func TestLoadAssumptionsDocumentParsesFreeFormMapping(testInstance *testing.T) {
	testInstance.Parallel()

	assumptionsPath := writeTemporaryFile(testInstance, "assumptions.yaml", "hourly_rate: 85.5\nautomation_factor: 0.4\n")

	assumptions, loadError := auditflow.LoadAssumptionsDocument(assumptionsPath)
	require.NoError(testInstance, loadError)
	require.Equal(testInstance, 85.5, assumptions["hourly_rate"])
	require.Equal(testInstance, 0.4, assumptions["automation_factor"])
}
