// Package auditflow drives audit runs end to end: submission, polling the
// session status until it leaves processing, and fetching derived artifacts
// such as the PDF report. It exposes CommandBuilder for wiring the audit
// Cobra command group and Service for driving the workflow programmatically.
package auditflow
