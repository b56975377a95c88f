package models

// County is one entry of the cadastral county list.
type County struct {
	ID   string `json:"Id"`
	Name string `json:"Name"`
}
