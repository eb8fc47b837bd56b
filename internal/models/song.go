package models

// Song is a single catalog entry. Songs are read-only once loaded.
type Song struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Game    string `json:"game"`
	Artist  string `json:"artist,omitempty"`
	Year    int    `json:"year,omitempty"`
	Console string `json:"console,omitempty"`
}
