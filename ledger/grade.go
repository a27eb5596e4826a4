package ledger

import "time"

// Grade thresholds in days of remaining shelf life at creation.
const (
	gradeAPlusDays = 365
	gradeADays     = 180
	gradeBDays     = 90
)

// GradeFor derives the quality grade from the gap between expiry and now.
// Pure function of its inputs; the engine calls it exactly once per batch,
// at creation. A batch graded A+ in January stays A+ forever - the grade
// reflects risk at the moment of production, not current risk.
func GradeFor(expiry, now time.Time) Grade {
	daysToExpiry := expiry.Sub(now).Hours() / 24

	switch {
	case daysToExpiry > gradeAPlusDays:
		return GradeAPlus
	case daysToExpiry > gradeADays:
		return GradeA
	case daysToExpiry > gradeBDays:
		return GradeB
	default:
		return GradeC
	}
}
