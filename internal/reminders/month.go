package reminders

import "time"

// Cell is one day of the month grid.
type Cell struct {
	Day         Day
	InMonth     bool
	Highlighted bool
	Selected    bool
	Today       bool
}

// Month is a Sunday-first grid of whole weeks covering one month.
type Month struct {
	Year  int
	Month time.Month
	Weeks [][]Cell
	Prev  Day
	Next  Day
}

// Month builds the grid for year/month using the loaded reminders.
func (c *Calendar) Month(year int, month time.Month) Month {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	start := first.AddDate(0, 0, -int(first.Weekday()))
	today := Today(c.loc)

	c.mu.Lock()
	defer c.mu.Unlock()

	grid := Month{
		Year:  first.Year(),
		Month: first.Month(),
		Prev:  DayOf(first.AddDate(0, -1, 0)),
		Next:  DayOf(first.AddDate(0, 1, 0)),
	}
	for weekStart := start; !weekStart.After(last); weekStart = weekStart.AddDate(0, 0, 7) {
		week := make([]Cell, 7)
		for i := range week {
			d := DayOf(weekStart.AddDate(0, 0, i))
			week[i] = Cell{
				Day:         d,
				InMonth:     d.Month == first.Month(),
				Highlighted: c.highlighted[d] > 0,
				Selected:    d == c.selected,
				Today:       d == today,
			}
		}
		grid.Weeks = append(grid.Weeks, week)
	}
	return grid
}
