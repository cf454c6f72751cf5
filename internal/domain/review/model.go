package review

import "time"

type Review struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Country   string    `json:"country,omitempty"`
	Rating    int       `json:"rating"`
	Text      string    `json:"text"`
	Source    string    `json:"source"` // site, booking.com, google
	CreatedAt time.Time `json:"created_at"`
}

type Summary struct {
	Count         int         `json:"count"`
	AverageRating float64     `json:"average_rating"`
	Distribution  map[int]int `json:"distribution"`
}

func Summarize(reviews []*Review) Summary {
	s := Summary{Distribution: map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0}}
	total := 0
	for _, r := range reviews {
		s.Count++
		total += r.Rating
		s.Distribution[r.Rating]++
	}
	if s.Count > 0 {
		s.AverageRating = float64(total) / float64(s.Count)
	}
	return s
}
