package service

import (
	"amokanban/internal/normalizer"
	"amokanban/pkg/model"
)

// DemoDeals returns the fixed sample bookings shown while the CRM is
// unreachable, dated today and assigned to branch.
func DemoDeals(branch string, today model.Date, norm *normalizer.Normalizer) []model.Booking {
	demo := []model.Booking{
		{
			ID:        "demo-1",
			Name:      "Иван Петров",
			Time:      "19:00",
			Guests:    4,
			Phone:     "+7 (999) 123-45-67",
			Comment:   "День рождения",
			Zone:      "Зона 3",
			HasVR:     true,
			HasShisha: false,
		},
		{
			ID:        "demo-2",
			Name:      "Мария Сидорова",
			Time:      "20:30",
			Guests:    2,
			Phone:     "+7 (999) 234-56-78",
			Comment:   "Романтический ужин",
			Zone:      "Зона 1",
			HasVR:     false,
			HasShisha: true,
		},
	}

	var zones *normalizer.ZoneMapper
	if norm != nil {
		zones = norm.Zones()
	}
	for i := range demo {
		demo[i].Branch = branch
		demo[i].BookingDate = today
		demo[i].TableID = zones.TableID(branch, demo[i].Zone)
	}
	return demo
}
