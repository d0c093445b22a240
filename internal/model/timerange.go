package model

import (
	"fmt"
	"regexp"
)

var timeOfDayRe = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// TimeRange интервал времени в пределах одного дня, локальное время "HH:MM".
// Формат фиксированной ширины, поэтому строковое сравнение совпадает с
// хронологическим.
type TimeRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Validate проверяет формат и что начало раньше конца
func (tr TimeRange) Validate() error {
	if !timeOfDayRe.MatchString(tr.Start) {
		return fmt.Errorf("invalid start time %q", tr.Start)
	}
	if !timeOfDayRe.MatchString(tr.End) {
		return fmt.Errorf("invalid end time %q", tr.End)
	}
	if tr.Start >= tr.End {
		return fmt.Errorf("start %q must be before end %q", tr.Start, tr.End)
	}
	return nil
}

func (tr TimeRange) String() string {
	return tr.Start + "-" + tr.End
}
