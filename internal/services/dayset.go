package services

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

const allDaysMask uint8 = 0x7F

// DaySet is the set of weekdays (0=Sunday..6=Saturday) a plan is active on.
// It is either every day or a specific proper subset; the zero value and a
// set holding all seven days are both every day.
type DaySet struct {
	mask uint8
}

func AllDays() DaySet {
	return DaySet{mask: allDaysMask}
}

// NewDaySet validates days. Empty input means every day.
func NewDaySet(days []int) (DaySet, error) {
	var mask uint8
	for _, day := range days {
		if day < 0 || day > 6 {
			return DaySet{}, fmt.Errorf("%w: %d", ErrInvalidActiveDays, day)
		}
		mask |= 1 << uint(day)
	}
	if mask == 0 {
		return AllDays(), nil
	}
	return DaySet{mask: mask}, nil
}

// DaySetFromStored reads a persisted day list, ignoring values outside 0..6.
func DaySetFromStored(days []int) DaySet {
	var mask uint8
	for _, day := range days {
		if day >= 0 && day <= 6 {
			mask |= 1 << uint(day)
		}
	}
	return DaySet{mask: mask}
}

func (set DaySet) bits() uint8 {
	if set.mask == 0 {
		return allDaysMask
	}
	return set.mask
}

func (set DaySet) IsAllDays() bool {
	return set.bits() == allDaysMask
}

func (set DaySet) Contains(weekday time.Weekday) bool {
	return set.bits()&(1<<uint(weekday)) != 0
}

func (set DaySet) Intersects(other DaySet) bool {
	return set.bits()&other.bits() != 0
}

// Days lists the member weekdays in ascending order, expanding every day to 0..6.
func (set DaySet) Days() []int {
	days := make([]int, 0, 7)
	for day := 0; day < 7; day++ {
		if set.bits()&(1<<uint(day)) != 0 {
			days = append(days, day)
		}
	}
	return days
}

// Stored is the persisted form: nil for every day.
func (set DaySet) Stored() []int {
	if set.IsAllDays() {
		return nil
	}
	return set.Days()
}

// Label renders the set for people, using names indexed by weekday.
func (set DaySet) Label(names []string, everyDay string) string {
	if set.IsAllDays() {
		return everyDay
	}
	labels := make([]string, 0, 7)
	for _, day := range set.Days() {
		if day < len(names) {
			labels = append(labels, names[day])
			continue
		}
		labels = append(labels, time.Weekday(day).String()[:3])
	}
	return strings.Join(labels, ", ")
}

func (set DaySet) String() string {
	if set.IsAllDays() {
		return "all"
	}
	days := set.Days()
	sort.Ints(days)
	parts := make([]string, 0, len(days))
	for _, day := range days {
		parts = append(parts, fmt.Sprint(day))
	}
	return "{" + strings.Join(parts, ",") + "}"
}
