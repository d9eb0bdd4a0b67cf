package canteen

import "time"

type Canteen struct {
	ID           int64
	Name         string
	Acronym      string
	Timings      string
	IsOpen       bool
	Active       bool
	OrderCounter int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
