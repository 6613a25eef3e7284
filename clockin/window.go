package clockin

import (
	"fmt"
	"time"

	"carolinalumpers.com/clockin/utils"
)

// WorkHours bounds the hours of day during which clock-ins are accepted.
// Start is inclusive and End exclusive, so End 24 allows up to 23:59:59.
type WorkHours struct {
	Start int
	End   int
}

// Validate checks the hour of ts, which must already be in business local time.
func (w WorkHours) Validate(ts time.Time) error {
	h := ts.Hour()
	if h < w.Start || h >= w.End {
		return reject(ReasonOutOfWindow, fmt.Sprintf(
			"Clock-in time %s is outside allowed work hours (%s – %s).",
			utils.FormatHourReadable(h),
			utils.FormatHourReadable(w.Start),
			utils.FormatHourReadable(w.End),
		))
	}
	return nil
}
