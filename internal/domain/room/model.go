package room

import "errors"

var ErrNoBedAvailable = errors.New("no bed available")

type Room struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Type          string  `json:"type"` // dormitory, private
	Capacity      int     `json:"capacity"`
	PricePerNight float64 `json:"price_per_night"`
	Beds          []Bed   `json:"beds,omitempty"`
}

type Bed struct {
	ID        string `json:"id"`
	RoomID    string `json:"room_id"`
	Number    int    `json:"number"`
	Available bool   `json:"available"`
}

func (r *Room) AvailableBeds() int {
	n := 0
	for _, b := range r.Beds {
		if b.Available {
			n++
		}
	}
	return n
}
