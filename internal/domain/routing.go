package domain

// AgentType is the downstream handler chosen by the supervisor
type AgentType string

const (
	AgentDocument        AgentType = "DOCUMENT"
	AgentRisk            AgentType = "RISK"
	AgentChatbot         AgentType = "CHATBOT"
	AgentHumanEscalation AgentType = "HUMAN_ESCALATION"
)

// Request types sent to the supervisor
const (
	RequestDocumentAnalysis = "DOCUMENT_ANALYSIS"
	RequestRiskAssessment   = "RISK_ASSESSMENT"
)

// RoutingRequest asks the supervisor where a task should go
type RoutingRequest struct {
	RequestType          string     `json:"request_type"`
	CustomerRef          string     `json:"customer_ref"`
	TaskDescription      string     `json:"task_description"`
	LegalBasis           LegalBasis `json:"legal_basis"`
	ConfidenceThreshold  float64    `json:"confidence_threshold"`
	PriorSubmissionCount int        `json:"prior_submission_count"`
	CurrentStatus        string     `json:"current_status"`
	RiskIndicators       []string   `json:"risk_indicators"`
}

// RoutingDecision is the supervisor's answer
type RoutingDecision struct {
	SelectedAgent       AgentType   `json:"selected_agent"`
	PrivacyChecksPassed bool        `json:"privacy_checks_passed"`
	RequiredAgents      []AgentType `json:"required_agents"`
	EscalationReason    string      `json:"escalation_reason,omitempty"`
}
