package domain

// UserNewsBundle holds the per-user material for one digest run, transient
type UserNewsBundle struct {
	Email    string
	Name     string
	Articles []Article // ordered, at most 6
}

// DigestOutcome records the result of one user's digest delivery. Skipped
// marks users already served earlier today; Sent covers fresh deliveries only.
type DigestOutcome struct {
	Email   string `json:"email"`
	Sent    bool   `json:"sent"`
	Skipped bool   `json:"skipped,omitempty"`
	Error   string `json:"error,omitempty"`
}

// DigestReport summarizes a full digest run
type DigestReport struct {
	Success  bool            `json:"success"`
	Message  string          `json:"message"`
	Outcomes []DigestOutcome `json:"outcomes,omitempty"`
}

// SentCount returns the number of successful deliveries in the report
func (r *DigestReport) SentCount() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Sent {
			n++
		}
	}
	return n
}
