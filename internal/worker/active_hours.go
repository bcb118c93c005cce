package worker

import (
	"fmt"
	"time"
)

// ActiveHours - окно времени суток, когда можно напоминать; обе границы включены
type ActiveHours struct {
	From     time.Duration
	To       time.Duration
	Location *time.Location
}

func DefaultActiveHours() ActiveHours {
	return ActiveHours{From: 9 * time.Hour, To: 21 * time.Hour, Location: time.Local}
}

// ParseActiveHours разбирает границы вида "09:00" и имя часового пояса
func ParseActiveHours(from, to, zone string) (ActiveHours, error) {
	h := DefaultActiveHours()

	var err error
	if from != "" {
		if h.From, err = parseClock(from); err != nil {
			return h, err
		}
	}
	if to != "" {
		if h.To, err = parseClock(to); err != nil {
			return h, err
		}
	}
	if h.From > h.To {
		return h, fmt.Errorf("начало окна %s позже конца %s", from, to)
	}
	if zone != "" {
		if h.Location, err = time.LoadLocation(zone); err != nil {
			return h, fmt.Errorf("часовой пояс %q: %w", zone, err)
		}
	}
	return h, nil
}

func parseClock(raw string) (time.Duration, error) {
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return time.Duration(t.Hour())*time.Hour +
				time.Duration(t.Minute())*time.Minute +
				time.Duration(t.Second())*time.Second, nil
		}
	}
	return 0, fmt.Errorf("неверное время %q, ожидается ЧЧ:ММ", raw)
}

// Contains проверяет момент по местному времени окна с точностью до секунды
func (h ActiveHours) Contains(t time.Time) bool {
	loc := h.Location
	if loc == nil {
		loc = time.Local
	}
	local := t.In(loc)
	sinceMidnight := time.Duration(local.Hour())*time.Hour +
		time.Duration(local.Minute())*time.Minute +
		time.Duration(local.Second())*time.Second
	return sinceMidnight >= h.From && sinceMidnight <= h.To
}
