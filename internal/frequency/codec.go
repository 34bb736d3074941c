package frequency

// Legacy 16-bit code layout, kept for the XML file format:
//
//	bits 13-15  mode selector (0 = ByDate, 1 = ByWeekday, 2 = ByInterval,
//	            3 = ByMonthEnd, 4 = ByLabourDay)
//	ByDate      bit 0 weekly, bit 1 monthly, bit 2 yearly; the all-zero
//	            code means "occurs once"
//	ByWeekday   bits 0-2 weekday ordinal 1-7, bits 3-5 week index 0-5
//	ByInterval  bits 0-9 interval 1-1023, bits 10-11 unit
//
// Mode 4 sets the sign bit, which is why the wire type is a signed int16.

const (
	modeShift = 13
	modeMask  = 0x7 << modeShift

	flagWeekly  = 1 << 0
	flagMonthly = 1 << 1
	flagYearly  = 1 << 2

	weekdayMask    = 0x7
	weekIndexShift = 3
	weekIndexMask  = 0x7 << weekIndexShift

	intervalMask = 0x3ff
	unitShift    = 10
	unitMask     = 0x3 << unitShift
)

// Code returns the legacy 16-bit representation of f.
func (f Frequency) Code() int16 {
	switch f.Mode {
	case Once:
		return 0
	case ByDate:
		var c uint16
		if f.Weekly {
			c |= flagWeekly
		}
		if f.Monthly {
			c |= flagMonthly
		}
		if f.Yearly {
			c |= flagYearly
		}
		return int16(c)
	case ByWeekday:
		c := uint16(1) << modeShift
		c |= uint16(f.Weekday) & weekdayMask
		c |= (uint16(f.WeekIndex) << weekIndexShift) & weekIndexMask
		return int16(c)
	case ByInterval:
		c := uint16(2) << modeShift
		c |= uint16(f.Interval) & intervalMask
		c |= (uint16(f.Unit) << unitShift) & unitMask
		return int16(c)
	case ByMonthEnd:
		return int16(uint16(3) << modeShift)
	case ByLabourDay:
		c := uint16(4) << modeShift
		return int16(c)
	}
	return 0
}

// Decode parses a legacy 16-bit code into its structured form. Unknown mode
// values decode as Once so that damaged files degrade to non-recurring
// events instead of failing the whole load.
func Decode(code int16) Frequency {
	c := uint16(code)
	switch (c & modeMask) >> modeShift {
	case 0:
		if c == 0 {
			return Frequency{Mode: Once}
		}
		return Frequency{
			Mode:    ByDate,
			Weekly:  c&flagWeekly != 0,
			Monthly: c&flagMonthly != 0,
			Yearly:  c&flagYearly != 0,
		}
	case 1:
		return Frequency{
			Mode:      ByWeekday,
			Weekday:   int(c & weekdayMask),
			WeekIndex: int((c & weekIndexMask) >> weekIndexShift),
		}
	case 2:
		// A zero interval payload can only come from a damaged file;
		// clamp it like NewInterval does so Match never divides by zero.
		interval := int(c & intervalMask)
		if interval < 1 {
			interval = 1
		}
		return Frequency{
			Mode:     ByInterval,
			Interval: interval,
			Unit:     Unit((c & unitMask) >> unitShift),
		}
	case 3:
		return Frequency{Mode: ByMonthEnd}
	case 4:
		return Frequency{Mode: ByLabourDay}
	}
	return Frequency{Mode: Once}
}
