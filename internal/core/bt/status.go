package bt

// Status represents the execution result of a node activation.
type Status int

const (
	StatusSuccess Status = iota
	StatusFailure
	StatusRunning
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "Success"
	case StatusFailure:
		return "Failure"
	case StatusRunning:
		return "Running"
	default:
		return "Invalid"
	}
}

// IsTerminal reports whether the status ends an activation.
func (s Status) IsTerminal() bool { return s == StatusSuccess || s == StatusFailure }

func (s Status) valid() bool { return s >= StatusSuccess && s <= StatusRunning }

func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Status) UnmarshalText(b []byte) error {
	switch string(b) {
	case "Success", "success", "SUCCESS":
		*s = StatusSuccess
	case "Failure", "failure", "FAILURE":
		*s = StatusFailure
	case "Running", "running", "RUNNING":
		*s = StatusRunning
	default:
		return ErrInvalidStatus
	}
	return nil
}
