package health

// Status represents the health status of a component or the service.
type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusDegraded Status = "degraded"
	StatusCritical Status = "critical"
)

// ComponentHealth is the health of a single dependency.
type ComponentHealth struct {
	Component string `json:"component"`
	Status    Status `json:"status"`
	Error     string `json:"error,omitempty"`
}

// Report is the full health snapshot returned by the detailed endpoint.
type Report struct {
	Status     Status                     `json:"status"`
	Components map[string]ComponentHealth `json:"components"`
	Messages   map[string]int64           `json:"messages,omitempty"`
}
