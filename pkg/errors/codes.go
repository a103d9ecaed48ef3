package errors

type Code string

const (
	CodeUnknown      Code = "UNKNOWN"
	CodeInvalid      Code = "INVALID_ARGUMENT"
	CodeBadRequest   Code = "BAD_REQUEST"
	CodeNotFound     Code = "NOT_FOUND"
	CodeConflict     Code = "CONFLICT"
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeInternal     Code = "INTERNAL"
)
