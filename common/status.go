package common

//go:generate go run github.com/dmarkham/enumer -json -type Status -trimprefix Status

// Status is the outcome of an upload or a deletion
type Status int

const (
	StatusDONE Status = iota
	StatusPARTIAL
	StatusFAILED
	StatusCANCELLED
)
