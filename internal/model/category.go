package model

// Category groups tasks by kind of work (camera, edit, sound, ...).
// Categories are seeded outside the application and only read here.
type Category struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	DefaultPoints int    `json:"defaultPoints"`
}
