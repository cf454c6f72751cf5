package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/guillermolam/alberguecarcalejo-sub002/internal/domain/room"
)

type RoomsDTO struct {
	Date          string       `json:"date"`
	Rooms         []*room.Room `json:"rooms"`
	AvailableBeds int          `json:"available_beds"`
}

type ListRooms struct {
	rooms RoomStore
}

func NewListRooms(rooms RoomStore) *ListRooms {
	return &ListRooms{rooms: rooms}
}

// Execute lists rooms with the beds free on the night starting at day.
func (uc *ListRooms) Execute(ctx context.Context, day time.Time) (*RoomsDTO, error) {
	rooms, err := uc.rooms.List(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	if rooms == nil {
		rooms = []*room.Room{}
	}

	dto := &RoomsDTO{Date: day.Format("2006-01-02"), Rooms: rooms}
	for _, r := range rooms {
		dto.AvailableBeds += r.AvailableBeds()
	}
	return dto, nil
}
