package api

import "time"

type Run struct {
	Id         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Scopes     []string  `json:"scopes"`
	Resources  int       `json:"resources"`
	Findings   int       `json:"findings"`
}

type Resource struct {
	Id    string `json:"id"`
	Name  string `json:"name"`
	Kind  string `json:"kind"`
	Scope string `json:"scope"`
	Group string `json:"group,omitempty"`
}

type Finding struct {
	Id             string   `json:"id,omitempty"`
	Resource       Resource `json:"resource"`
	Category       string   `json:"category"`
	Severity       string   `json:"severity"`
	Reason         string   `json:"reason"`
	Recommendation string   `json:"recommendation"`
	ActionOutcome  string   `json:"action_outcome,omitempty"`
	ActionError    string   `json:"action_error,omitempty"`
}
