package domain

import "time"

// Owner is the principal an account or loan belongs to. Owners are managed
// outside this service; the core only resolves them.
type Owner struct {
	ID        string
	Username  string
	FullName  string
	Active    bool
	CreatedAt time.Time
}
