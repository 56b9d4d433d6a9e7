package email

const (
	subjectNextActionReminderFmt = "Next action due: %s"
)
