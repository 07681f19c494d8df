package jobs

type JobType string

const (
	// email the department admin about a fresh form submission
	JobFormAlert JobType = "form_alert"

	// build a CSV of all submitted forms and park it in object storage
	JobFormExport JobType = "form_export_csv"
)

func (t JobType) IsValid() bool {
	switch t {
	case JobFormAlert, JobFormExport:
		return true
	default:
		return false
	}
}
