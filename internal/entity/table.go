package entity

type Table struct {
	ID         int    `json:"id"`
	Number     string `json:"number"`
	Capacity   int    `json:"capacity"`
	IsOccupied bool   `json:"is_occupied"`
	IsActive   bool   `json:"is_active"`
}
