package cerr

import "net/http"

// Code discriminates every failure the system can report. All domain codes
// are caller-recoverable validation failures; only Internal and Unknown
// indicate a defect.
type Code int

const (
	OK = Code(iota)
	Canceled
	Unknown
	Internal
	NotFound
	InvalidArgument

	// Temporal failures.
	InvalidTimeValue
	NewTimeBeforeSystemTime
	EndTimeBeforeStartTime
	EndTimeAfterSystemTime
	StartTimeBeforeAvailable
	DueBeforeSystemTime
	DueBeforeCreationTime

	// Identity and lookup failures.
	ProjectNotFound
	TaskNotFound
	UserNotFound
	ProjectNameAlreadyInUse
	TaskNameAlreadyInUse

	// State failures.
	IncorrectTaskStatus
	ReplacedTaskNotFailed

	// Graph failures.
	LoopDependencyGraph

	// Role and assignment failures.
	IncorrectRole
	UserAlreadyAssigned
	IncorrectUser
	PermissionDenied

	// Construction failures.
	IllegalTaskRoles
)

var codeNames = map[Code]string{
	OK:                       "ok",
	Canceled:                 "canceled",
	Unknown:                  "unknown",
	Internal:                 "internal",
	NotFound:                 "not_found",
	InvalidArgument:          "invalid_argument",
	InvalidTimeValue:         "invalid_time_value",
	NewTimeBeforeSystemTime:  "new_time_before_system_time",
	EndTimeBeforeStartTime:   "end_time_before_start_time",
	EndTimeAfterSystemTime:   "end_time_after_system_time",
	StartTimeBeforeAvailable: "start_time_before_available",
	DueBeforeSystemTime:      "due_before_system_time",
	DueBeforeCreationTime:    "due_before_creation_time",
	ProjectNotFound:          "project_not_found",
	TaskNotFound:             "task_not_found",
	UserNotFound:             "user_not_found",
	ProjectNameAlreadyInUse:  "project_name_already_in_use",
	TaskNameAlreadyInUse:     "task_name_already_in_use",
	IncorrectTaskStatus:      "incorrect_task_status",
	ReplacedTaskNotFailed:    "replaced_task_not_failed",
	LoopDependencyGraph:      "loop_dependency_graph",
	IncorrectRole:            "incorrect_role",
	UserAlreadyAssigned:      "user_already_assigned",
	IncorrectUser:            "incorrect_user",
	PermissionDenied:         "permission_denied",
	IllegalTaskRoles:         "illegal_task_roles",
}

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return "unknown"
}

func (c Code) HTTPCode() int {
	switch c {
	case OK:
		return http.StatusOK
	case Canceled:
		return 499
	case Unknown, Internal:
		return http.StatusInternalServerError
	case NotFound, ProjectNotFound, TaskNotFound, UserNotFound:
		return http.StatusNotFound
	case ProjectNameAlreadyInUse, TaskNameAlreadyInUse, UserAlreadyAssigned:
		return http.StatusConflict
	case IncorrectTaskStatus, ReplacedTaskNotFailed, LoopDependencyGraph:
		return http.StatusPreconditionFailed
	case PermissionDenied:
		return http.StatusForbidden
	case IncorrectUser, IncorrectRole:
		return http.StatusForbidden
	case InvalidArgument, InvalidTimeValue, IllegalTaskRoles:
		return http.StatusBadRequest
	case NewTimeBeforeSystemTime, EndTimeBeforeStartTime, EndTimeAfterSystemTime,
		StartTimeBeforeAvailable, DueBeforeSystemTime, DueBeforeCreationTime:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
