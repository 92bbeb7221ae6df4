package dto

type PlaceWagerRequest struct {
	Direction string `json:"direction"` // "will_complete" | "will_fail"
	Amount    int64  `json:"amount"`
}
