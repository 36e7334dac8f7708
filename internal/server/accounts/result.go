package accounts

// Result is the outcome of an account operation. Validation outcomes are
// reported as results, never as errors; DBInternalError is the only result
// that comes with an error.
type Result int

const (
	Ok Result = iota
	NameTooLong
	PassTooLong
	EmailTooLong
	NameAlreadyExists
	NameNotExist
	DBInternalError
)

// Limits in runes, checked on the normalized strings.
const (
	MaxAccountStr = 20
	MaxPassStr    = 16
	MaxEmailStr   = 64
)

func (r Result) String() string {
	switch r {
	case Ok:
		return "Ok"
	case NameTooLong:
		return "NameTooLong"
	case PassTooLong:
		return "PassTooLong"
	case EmailTooLong:
		return "EmailTooLong"
	case NameAlreadyExists:
		return "NameAlreadyExists"
	case NameNotExist:
		return "NameNotExist"
	case DBInternalError:
		return "DBInternalError"
	default:
		return "Unknown"
	}
}
