package model

// Project is read-only reference data.
type Project struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	ClientID *int64 `json:"client_id,omitempty"`
}

// Task is read-only reference data. Entries are booked against tasks.
type Task struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	ProjectID *int64 `json:"project_id,omitempty"`
}

// Client is read-only reference data owning projects.
type Client struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
