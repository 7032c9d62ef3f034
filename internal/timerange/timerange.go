// Package timerange содержит чистые функции для работы с интервалами времени
// внутри одного дня: проверка пересечения, сортировка, форматирование.
package timerange

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// MinutesPerDay количество минут в сутках
const MinutesPerDay = 24 * 60

// Clock время дня с точностью до минуты (0 = 00:00, 1439 = 23:59)
type Clock int

// NewClock создаёт Clock из часов и минут
func NewClock(hour, minute int) (Clock, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid clock %02d:%02d", hour, minute)
	}
	return Clock(hour*60 + minute), nil
}

// MustClock как NewClock, но паникует на некорректном значении
func MustClock(hour, minute int) Clock {
	c, err := NewClock(hour, minute)
	if err != nil {
		panic(err)
	}
	return c
}

// ParseClock разбирает строку формата "15:04"
func ParseClock(s string) (Clock, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("parse clock %q: %w", s, err)
	}
	return Clock(t.Hour()*60 + t.Minute()), nil
}

// Hour возвращает часы
func (c Clock) Hour() int { return int(c) / 60 }

// Minute возвращает минуты
func (c Clock) Minute() int { return int(c) % 60 }

// IsValid проверяет что значение лежит внутри суток
func (c Clock) IsValid() bool {
	return c >= 0 && c < MinutesPerDay
}

// String форматирует как "15:04"
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

func (c Clock) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *Clock) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("clock must be a string: %w", err)
	}
	parsed, err := ParseClock(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// dateLayout формат хранения даты
const dateLayout = "2006-01-02"

// Date календарная дата в формате YYYY-MM-DD.
// Строковое представление сравнивается лексикографически в хронологическом порядке.
type Date string

// ParseDate проверяет и нормализует дату
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return "", fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date(t.Format(dateLayout)), nil
}

// MustDate как ParseDate, но паникует на некорректном значении
func MustDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// DateOf возвращает дату момента времени в его часовом поясе
func DateOf(t time.Time) Date {
	return Date(t.Format(dateLayout))
}

// IsValid проверяет формат даты
func (d Date) IsValid() bool {
	_, err := time.Parse(dateLayout, string(d))
	return err == nil
}

// String возвращает строковое представление
func (d Date) String() string {
	return string(d)
}

// In возвращает момент времени для даты и времени дня в указанном поясе
func (d Date) In(loc *time.Location, c Clock) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(dateLayout, string(d), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", d, err)
	}
	y, m, day := t.Date()
	return time.Date(y, m, day, c.Hour(), c.Minute(), 0, 0, loc), nil
}

// Overlaps возвращает true если полуоткрытые интервалы [aStart, aEnd) и [bStart, bEnd) пересекаются.
// Касание границ (aEnd == bStart) пересечением не считается.
func Overlaps(aStart, aEnd, bStart, bEnd Clock) bool {
	return aStart < bEnd && bStart < aEnd
}

// IsValidRange проверяет что начало строго раньше конца
func IsValidRange(start, end Clock) bool {
	return start < end
}

// Range интервал времени внутри одной даты
type Range struct {
	Date  Date  `json:"date"`
	Start Clock `json:"start"`
	End   Clock `json:"end"`
}

// Validate проверяет дату и границы интервала
func (r Range) Validate() error {
	if !r.Date.IsValid() {
		return fmt.Errorf("invalid date %q", r.Date)
	}
	if !r.Start.IsValid() || !r.End.IsValid() {
		return fmt.Errorf("time out of day bounds: %s-%s", r.Start, r.End)
	}
	if !IsValidRange(r.Start, r.End) {
		return fmt.Errorf("start %s must be before end %s", r.Start, r.End)
	}
	return nil
}

// Overlaps проверяет пересечение с другим интервалом той же даты
func (r Range) Overlaps(other Range) bool {
	return r.Date == other.Date && Overlaps(r.Start, r.End, other.Start, other.End)
}

// Duration длительность интервала
func (r Range) Duration() time.Duration {
	return time.Duration(r.End-r.Start) * time.Minute
}

// Less упорядочивает интервалы по дате, началу и концу
func (r Range) Less(other Range) bool {
	if r.Date != other.Date {
		return r.Date < other.Date
	}
	if r.Start != other.Start {
		return r.Start < other.Start
	}
	return r.End < other.End
}

// Format форматирует как "20.10.2025 09:00-10:00"
func (r Range) Format() string {
	t, err := time.Parse(dateLayout, string(r.Date))
	if err != nil {
		return fmt.Sprintf("%s %s-%s", r.Date, r.Start, r.End)
	}
	return fmt.Sprintf("%s %s-%s", t.Format("02.01.2006"), r.Start, r.End)
}

// Sort сортирует интервалы хронологически
func Sort(ranges []Range) {
	sort.SliceStable(ranges, func(i, j int) bool {
		return ranges[i].Less(ranges[j])
	})
}
