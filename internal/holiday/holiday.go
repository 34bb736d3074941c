// Package holiday synthesizes the German holiday events: fixed-date
// holidays recurring yearly and flexible ones derived from the Easter date.
// All generated events carry the synthetic ID and are rebuilt whenever the
// viewed year or the law configuration changes; they are never persisted.
package holiday

import (
	"time"

	"kalender/internal/dateutil"
	"kalender/internal/event"
	"kalender/internal/frequency"
)

// LawSet selects the legal holidays that are not nationwide. The fields
// correspond to the optional holidays of the German Bundesländer.
type LawSet struct {
	Epiphany       bool `yaml:"epiphany"`        // Heilige Drei Könige (BW, BY, ST)
	WomensDay      bool `yaml:"womens_day"`      // Internationaler Frauentag (BE, MV)
	CorpusChristi  bool `yaml:"corpus_christi"`  // Fronleichnam (BW, BY, HE, NW, RP, SL)
	AugsburgPeace  bool `yaml:"augsburg_peace"`  // Friedensfest (Augsburg)
	Assumption     bool `yaml:"assumption"`      // Mariä Himmelfahrt (SL, parts of BY)
	WorldChildrens bool `yaml:"world_childrens"` // Weltkindertag (TH)
	Reformation    bool `yaml:"reformation"`     // Reformationstag (BB, MV, SN, ST, TH, HB, HH, NI, SH)
	AllSaints      bool `yaml:"all_saints"`      // Allerheiligen (BW, BY, NW, RP, SL)
	Repentance     bool `yaml:"repentance"`      // Buß- und Bettag (SN)
}

// ActionDay is a fixed-date observance in one of the configurable action
// day sets (e.g. Weltwassertag).
type ActionDay struct {
	Name  string     `yaml:"name"`
	Month time.Month `yaml:"month"`
	Day   int        `yaml:"day"`
}

// ActionSet is one user-configurable collection of action days.
type ActionSet struct {
	Enabled bool        `yaml:"enabled"`
	Days    []ActionDay `yaml:"days"`
}

// Options selects which rule sets the generators emit.
type Options struct {
	Laws        LawSet       `yaml:"laws"`
	SpecialDays bool         `yaml:"special_days"`
	TimeShift   bool         `yaml:"time_shift"`
	Seasons     bool         `yaml:"seasons"`
	ActionSets  [2]ActionSet `yaml:"action_sets"`
}

// LawPresets maps a Bundesland code to its legal holiday selection.
var LawPresets = map[string]LawSet{
	"BW": {Epiphany: true, CorpusChristi: true, AllSaints: true},
	"BY": {Epiphany: true, CorpusChristi: true, Assumption: true, AllSaints: true},
	"BE": {WomensDay: true},
	"BB": {Reformation: true},
	"HB": {Reformation: true},
	"HH": {Reformation: true},
	"HE": {CorpusChristi: true},
	"MV": {WomensDay: true, Reformation: true},
	"NI": {Reformation: true},
	"NW": {CorpusChristi: true, AllSaints: true},
	"RP": {CorpusChristi: true, AllSaints: true},
	"SL": {CorpusChristi: true, Assumption: true, AllSaints: true},
	"SN": {Reformation: true, Repentance: true},
	"ST": {Epiphany: true, Reformation: true},
	"SH": {Reformation: true},
	"TH": {WorldChildrens: true, Reformation: true},
}

// Easter returns Easter Sunday of the given year in the Gregorian calendar,
// using Oudin's computus.
func Easter(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1

	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.Local)
}

// yearlyEvent builds a synthesized event recurring on the same day and
// month every year.
func yearlyEvent(name string, typ event.Type, year int, month time.Month, day int) *event.Event {
	e := event.New(event.SyntheticID, name,
		time.Date(year, month, day, 0, 0, 0, 0, time.Local),
		frequency.FromBooleans(false, false, true))
	e.Type = typ
	return e
}

// onceEvent builds a synthesized one-time event on the given date.
func onceEvent(name string, typ event.Type, date time.Time) *event.Event {
	e := event.New(event.SyntheticID, name, dateutil.Date(date), frequency.FromBooleans(false, false, false))
	e.Type = typ
	return e
}

// Static returns the fixed-date holiday events anchored in the given year.
// They recur yearly, so the engine only regenerates them when the law
// configuration changes or a different year is viewed.
func Static(year int, opts Options) []*event.Event {
	var out []*event.Event
	law := func(name string, month time.Month, day int) {
		out = append(out, yearlyEvent(name, event.TypeHolidayLaw, year, month, day))
	}
	special := func(name string, month time.Month, day int) {
		out = append(out, yearlyEvent(name, event.TypeHolidaySpecial, year, month, day))
	}

	law("Neujahr", time.January, 1)
	if opts.Laws.Epiphany {
		law("Heilige Drei Könige", time.January, 6)
	}
	if opts.Laws.WomensDay {
		law("Internationaler Frauentag", time.March, 8)
	}
	law("Tag der Arbeit", time.May, 1)
	if opts.Laws.AugsburgPeace {
		law("Augsburger Friedensfest", time.August, 8)
	}
	if opts.Laws.Assumption {
		law("Mariä Himmelfahrt", time.August, 15)
	}
	if opts.Laws.WorldChildrens {
		law("Weltkindertag", time.September, 20)
	}
	law("Tag der Deutschen Einheit", time.October, 3)
	if opts.Laws.Reformation {
		law("Reformationstag", time.October, 31)
	}
	if opts.Laws.AllSaints {
		law("Allerheiligen", time.November, 1)
	}
	law("1. Weihnachtstag", time.December, 25)
	law("2. Weihnachtstag", time.December, 26)

	if opts.SpecialDays {
		special("Valentinstag", time.February, 14)
		special("Walpurgisnacht", time.April, 30)
		special("Nikolaus", time.December, 6)
		special("Heiligabend", time.December, 24)
		special("Silvester", time.December, 31)
	}

	for _, set := range opts.ActionSets {
		if !set.Enabled {
			continue
		}
		for _, d := range set.Days {
			out = append(out, yearlyEvent(d.Name, event.TypeSpecial, year, d.Month, d.Day))
		}
	}

	return out
}

// Flexible returns the holidays of the given year whose dates must be
// computed: the Easter-derived days, the counted weekday days, the DST
// switches and the season markers. All of them are one-time events tied to
// that year.
func Flexible(year int, opts Options) []*event.Event {
	easter := Easter(year)
	var out []*event.Event
	law := func(name string, offset int) {
		out = append(out, onceEvent(name, event.TypeHolidayLaw, easter.AddDate(0, 0, offset)))
	}
	special := func(name string, date time.Time) {
		out = append(out, onceEvent(name, event.TypeHolidaySpecial, date))
	}

	law("Karfreitag", -2)
	law("Ostersonntag", 0)
	law("Ostermontag", 1)
	law("Christi Himmelfahrt", 39)
	law("Pfingstsonntag", 49)
	law("Pfingstmontag", 50)
	if opts.Laws.CorpusChristi {
		law("Fronleichnam", 60)
	}
	if opts.Laws.Repentance {
		out = append(out, onceEvent("Buß- und Bettag", event.TypeHolidayLaw, repentanceDay(year)))
	}

	if opts.SpecialDays {
		special("Rosenmontag", easter.AddDate(0, 0, -48))
		special("Aschermittwoch", easter.AddDate(0, 0, -46))
		special("Palmsonntag", easter.AddDate(0, 0, -7))
		special("Muttertag", mothersDay(year))
		special("Erntedankfest", dateutil.NthWeekdayOfMonth(year, time.October, time.Sunday, 1))
		special("Volkstrauertag", adventSunday(year, 1).AddDate(0, 0, -14))
		special("Totensonntag", adventSunday(year, 1).AddDate(0, 0, -7))
		for i := 1; i <= 4; i++ {
			special(adventName(i), adventSunday(year, i))
		}
	}

	if opts.TimeShift {
		shift := func(name string, date time.Time) {
			out = append(out, onceEvent(name, event.TypeTimeShift, date))
		}
		shift("Beginn der Sommerzeit", dateutil.NthWeekdayOfMonth(year, time.March, time.Sunday, 0))
		shift("Ende der Sommerzeit", dateutil.NthWeekdayOfMonth(year, time.October, time.Sunday, 0))
	}

	if opts.Seasons {
		season := func(name string, month time.Month, day int) {
			out = append(out, onceEvent(name, event.TypeSeason,
				time.Date(year, month, day, 0, 0, 0, 0, time.Local)))
		}
		season("Frühlingsanfang", time.March, 20)
		season("Sommeranfang", time.June, 21)
		season("Herbstanfang", time.September, 22)
		season("Winteranfang", time.December, 21)
	}

	return out
}

// repentanceDay is the Wednesday before November 23rd.
func repentanceDay(year int) time.Time {
	d := time.Date(year, time.November, 22, 0, 0, 0, 0, time.Local)
	for d.Weekday() != time.Wednesday {
		d = d.AddDate(0, 0, -1)
	}
	return d
}

// mothersDay is the second Sunday of May.
func mothersDay(year int) time.Time {
	return dateutil.NthWeekdayOfMonth(year, time.May, time.Sunday, 2)
}

// adventSunday returns the nth Advent Sunday (1-4). The fourth Advent is
// the last Sunday before December 25th.
func adventSunday(year int, n int) time.Time {
	d := time.Date(year, time.December, 24, 0, 0, 0, 0, time.Local)
	for d.Weekday() != time.Sunday {
		d = d.AddDate(0, 0, -1)
	}
	return d.AddDate(0, 0, -7*(4-n))
}

func adventName(n int) string {
	switch n {
	case 1:
		return "1. Advent"
	case 2:
		return "2. Advent"
	case 3:
		return "3. Advent"
	default:
		return "4. Advent"
	}
}
