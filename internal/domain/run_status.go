package domain

import "time"

// RunStatus summarises the last run of a command.
type RunStatus struct {
	Command    string          `json:"command"`
	Input      string          `json:"input,omitempty"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Groups     int             `json:"groups"`
	Successes  int             `json:"successes"`
	Failures   []FailureRecord `json:"failures,omitempty"`
	Error      string          `json:"error,omitempty"`
}

// FailureRecord is the persisted form of a Failure.
type FailureRecord struct {
	Key    string `json:"key"`
	Domain string `json:"domain"`
	Error  string `json:"error"`
}

// Record converts f into its persisted form.
func (f Failure) Record() FailureRecord {
	msg := ""
	if f.Err != nil {
		msg = f.Err.Error()
	}
	return FailureRecord{Key: f.Key, Domain: f.Domain, Error: msg}
}
