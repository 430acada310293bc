package jobs

type JobType string

const (
	JobNotifyNewMessage      JobType = "notify.new_message"
	JobNotifyPatientAssigned JobType = "notify.patient_assigned"
)

// check to see if the job type is a known constant

func (t JobType) IsValid() bool {
	switch t {
	case JobNotifyNewMessage, JobNotifyPatientAssigned:
		return true
	default:
		return false
	}
}
