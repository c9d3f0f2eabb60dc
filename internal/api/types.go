package api

// AuditStatus enumerates the lifecycle states reported for an audit session.
type AuditStatus string

// Audit status enumerations.
const (
	AuditStatusProcessing AuditStatus = "processing"
	AuditStatusCompleted  AuditStatus = "completed"
	AuditStatusError      AuditStatus = "error"
)

// IsTerminal reports whether the status ends the processing lifecycle.
func (status AuditStatus) IsTerminal() bool {
	return status == AuditStatusCompleted || status == AuditStatusError
}

// BusinessInfo carries the customer-supplied business profile. It is valid
// when at least one of AnnualRevenue or EmployeeHeadcount is present.
type BusinessInfo struct {
	AnnualRevenue     float64 `json:"annual_revenue,omitempty" mapstructure:"annual_revenue"`
	EmployeeHeadcount int     `json:"employee_headcount,omitempty" mapstructure:"employee_headcount"`
	RevenueRange      string  `json:"revenue_range,omitempty" mapstructure:"revenue_range"`
	EmployeeRange     string  `json:"employee_range,omitempty" mapstructure:"employee_range"`
}

// HasRequiredFields reports whether revenue or headcount is present.
func (info BusinessInfo) HasRequiredFields() bool {
	return info.AnnualRevenue != 0 || info.EmployeeHeadcount != 0
}

// BusinessInfoResponse carries the server acknowledgement for a saved profile.
type BusinessInfoResponse struct {
	BusinessSessionID string `json:"business_session_id"`
	Message           string `json:"message,omitempty"`
}

// SessionSummary describes one past audit session in dashboard listings.
type SessionSummary struct {
	ID               string             `json:"id"`
	OrgName          string             `json:"org_name"`
	CreatedAt        string             `json:"created_at"`
	Status           AuditStatus        `json:"status"`
	FindingsCount    int                `json:"findings_count"`
	EstimatedSavings map[string]float64 `json:"estimated_savings,omitempty"`
}

// AuditRequest is the submission shape for a new audit run. Nil maps encode
// as JSON null, matching the backend contract for omitted inputs.
type AuditRequest struct {
	SessionID          string             `json:"session_id"`
	UseQuickEstimate   bool               `json:"use_quick_estimate"`
	DepartmentSalaries map[string]float64 `json:"department_salaries"`
	BusinessInputs     map[string]any     `json:"business_inputs"`
}

// Finding is one audit observation with its savings estimate.
type Finding struct {
	ID               string   `json:"id"`
	Category         string   `json:"category"`
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	Impact           string   `json:"impact"`
	TimeSavingsHours float64  `json:"time_savings_hours"`
	ROIEstimate      float64  `json:"roi_estimate"`
	Recommendation   string   `json:"recommendation"`
	AffectedObjects  []string `json:"affected_objects,omitempty"`
	ParentSessionID  string   `json:"session_id,omitempty"`
}

// AuditRunResponse acknowledges a submitted audit run.
type AuditRunResponse struct {
	SessionID string         `json:"session_id"`
	Status    AuditStatus    `json:"status,omitempty"`
	Summary   map[string]any `json:"summary,omitempty"`
	Findings  []Finding      `json:"findings,omitempty"`
}

// Audit is the full result payload for one audit session. Backend-owned
// sections stay loosely typed.
type Audit struct {
	SessionID     string         `json:"session_id,omitempty"`
	Status        AuditStatus    `json:"status"`
	Session       map[string]any `json:"session,omitempty"`
	Summary       map[string]any `json:"summary,omitempty"`
	Findings      []Finding      `json:"findings,omitempty"`
	BusinessStage map[string]any `json:"business_stage,omitempty"`
	Error         string         `json:"error,omitempty"`
}

// Health states reported by HealthCheck.
const (
	HealthStateHealthy   = "healthy"
	HealthStateUnhealthy = "unhealthy"
)

// HealthStatus is the non-failing health check result.
type HealthStatus struct {
	Status  string
	Details map[string]any
	Error   string
}
