package model

import (
	"fmt"
	"strings"
	"time"
)

// DayKind вид дня: повторяющийся день недели или конкретная дата
type DayKind string

const (
	DayKindWeekday DayKind = "weekday"
	DayKindDate    DayKind = "date"
)

// Названия дней недели в нижнем регистре, порядок как в time.Weekday
var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// DayKey явный тегированный вариант дня: либо день недели, либо ISO-дата.
// Хранится в БД двумя колонками (day_kind, day_value).
type DayKey struct {
	Kind  DayKind `json:"kind"`
	Value string  `json:"value"`
}

// WeekdayKey создаёт ключ повторяющегося дня недели
func WeekdayKey(name string) (DayKey, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if _, ok := weekdayNames[name]; !ok {
		return DayKey{}, fmt.Errorf("unknown weekday %q", name)
	}
	return DayKey{Kind: DayKindWeekday, Value: name}, nil
}

// DateKey создаёт ключ конкретной даты (формат YYYY-MM-DD)
func DateKey(isoDate string) (DayKey, error) {
	if _, err := time.Parse("2006-01-02", isoDate); err != nil {
		return DayKey{}, fmt.Errorf("invalid date %q: %w", isoDate, err)
	}
	return DayKey{Kind: DayKindDate, Value: isoDate}, nil
}

// ParseDayKey собирает DayKey из пары (kind, value) с валидацией
func ParseDayKey(kind, value string) (DayKey, error) {
	switch DayKind(kind) {
	case DayKindWeekday:
		return WeekdayKey(value)
	case DayKindDate:
		return DateKey(value)
	default:
		return DayKey{}, fmt.Errorf("unknown day kind %q", kind)
	}
}

// Date возвращает дату для ключей вида DayKindDate
func (d DayKey) Date() (time.Time, error) {
	if d.Kind != DayKindDate {
		return time.Time{}, fmt.Errorf("day key %q is not a date", d.Value)
	}
	return time.Parse("2006-01-02", d.Value)
}

// Weekday возвращает день недели для ключей вида DayKindWeekday
func (d DayKey) Weekday() (time.Weekday, error) {
	wd, ok := weekdayNames[d.Value]
	if d.Kind != DayKindWeekday || !ok {
		return 0, fmt.Errorf("day key %q is not a weekday", d.Value)
	}
	return wd, nil
}

// IsRecurring сообщает, повторяется ли день еженедельно
func (d DayKey) IsRecurring() bool {
	return d.Kind == DayKindWeekday
}

func (d DayKey) String() string {
	return d.Value
}

// Validate проверяет что ключ корректно собран
func (d DayKey) Validate() error {
	_, err := ParseDayKey(string(d.Kind), d.Value)
	return err
}
