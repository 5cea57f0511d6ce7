package assignment

import "fmt"

// Status classifies the outcome of a bulk relationship mutation.
type Status string

const (
	StatusSuccess         Status = "success"
	StatusPartialSuccess  Status = "partial_success"
	StatusNotFound        Status = "not_found"
	StatusAllInvalid      Status = "all_invalid"
	StatusSystemViolation Status = "system_violation"
	StatusUnauthorized    Status = "unauthorized"
)

// Code is the operation-family specific result code surfaced to callers.
type Code string

const (
	CodeSuccess        Code = "Success"
	CodePartialSuccess Code = "PartialSuccess"

	CodeRoleNotFound  Code = "RoleNotFoundError"
	CodeGroupNotFound Code = "GroupNotFoundError"
	CodeUserNotFound  Code = "UserNotFoundError"

	CodeInvalidIDs           Code = "InvalidIdsError"
	CodeInvalidPermissionIDs Code = "InvalidPermissionIdsError"
	CodeInvalidRoleIDs       Code = "InvalidRoleIdsError"
	CodeInvalidUserIDs       Code = "InvalidUserIdsError"

	CodeSystemDefinedRole       Code = "SystemDefinedRoleError"
	CodeSystemPermissionRemoval Code = "SystemPermissionRemovalError"
	CodeLastOwner               Code = "LastOwnerError"
	CodeUnauthorized            Code = "UnauthorizedError"
)

// Result reports the per-item outcome of a bulk mutation. InvalidIDs holds
// requested ids that were rejected because they were not found, belonged to
// a different account, or were already (or not) related; the three causes
// are deliberately not distinguished. SystemIDs holds ids whose removal was
// blocked by system-defined protection.
type Result struct {
	Status        Status  `json:"status"`
	Code          Code    `json:"code"`
	Message       string  `json:"message"`
	ModifiedCount int     `json:"modified_count"`
	InvalidIDs    []int64 `json:"invalid_ids,omitempty"`
	SystemIDs     []int64 `json:"system_ids,omitempty"`
}

func (r Result) Succeeded() bool {
	return r.Status == StatusSuccess || r.Status == StatusPartialSuccess
}

func Success(modified int, message string) Result {
	return Result{Status: StatusSuccess, Code: CodeSuccess, Message: message, ModifiedCount: modified}
}

func PartialSuccess(modified int, invalid, system []int64, message string) Result {
	return Result{
		Status:        StatusPartialSuccess,
		Code:          CodePartialSuccess,
		Message:       message,
		ModifiedCount: modified,
		InvalidIDs:    invalid,
		SystemIDs:     system,
	}
}

func NotFound(code Code, entity string, id int64, requested []int64) Result {
	return Result{
		Status:     StatusNotFound,
		Code:       code,
		Message:    fmt.Sprintf("%s %d was not found", entity, id),
		InvalidIDs: requested,
	}
}

func AllInvalid(code Code, requested []int64) Result {
	return Result{
		Status:     StatusAllInvalid,
		Code:       code,
		Message:    "all ids are invalid (not found, from a different account, or relationship state does not allow the change)",
		InvalidIDs: requested,
	}
}

func SystemViolation(code Code, blocked []int64, message string) Result {
	return Result{
		Status:    StatusSystemViolation,
		Code:      code,
		Message:   message,
		SystemIDs: blocked,
	}
}

func Unauthorized() Result {
	return Result{
		Status:  StatusUnauthorized,
		Code:    CodeUnauthorized,
		Message: "caller is not authorized for this operation",
	}
}

// Diff returns the requested ids that are absent from accepted, preserving
// request order.
func Diff(requested, accepted []int64) []int64 {
	acceptedSet := make(map[int64]struct{}, len(accepted))
	for _, id := range accepted {
		acceptedSet[id] = struct{}{}
	}
	var missing []int64
	for _, id := range requested {
		if _, ok := acceptedSet[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}

// Dedupe removes duplicate ids preserving first occurrence.
func Dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
