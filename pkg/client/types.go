package client

// APIError is the embedded error object most WinCC Unified results carry.
// Code "0" means success.
type APIError struct {
	Code        *string `json:"code,omitempty"`
	Description *string `json:"description,omitempty"`
}

func (e APIError) Error() string {
	code := "Unknown"
	desc := "No description"
	if e.Code != nil {
		code = *e.Code
	}
	if e.Description != nil {
		desc = *e.Description
	}
	return code + ": " + desc
}

// failed reports whether the embedded error denotes a failure.
func (e *APIError) failed() bool {
	return e != nil && e.Code != nil && *e.Code != "0"
}

type User struct {
	ID            *string  `json:"id,omitempty"`
	Name          *string  `json:"name,omitempty"`
	Groups        []*Group `json:"groups,omitempty"`
	FullName      *string  `json:"fullName,omitempty"`
	Language      *string  `json:"language,omitempty"`
	AutoLogoffSec *int     `json:"autoLogoffSec,omitempty"`
}

type Group struct {
	ID   *string `json:"id,omitempty"`
	Name *string `json:"name,omitempty"`
}

// Session is the login/session result carrying the bearer token.
type Session struct {
	Token   *string   `json:"token,omitempty"`
	User    *User     `json:"user,omitempty"`
	Expires *string   `json:"expires,omitempty"`
	Error   *APIError `json:"error,omitempty"`
}

// Quality is the full tag quality record.
type Quality struct {
	Quality           *string `json:"quality,omitempty"`
	SubStatus         *string `json:"subStatus,omitempty"`
	Limit             *string `json:"limit,omitempty"`
	ExtendedSubStatus *string `json:"extendedSubStatus,omitempty"`
	SourceQuality     *bool   `json:"sourceQuality,omitempty"`
	SourceTime        *bool   `json:"sourceTime,omitempty"`
	TimeCorrected     *bool   `json:"timeCorrected,omitempty"`
}

// TagValueData is the value part of a tag: value, timestamp, quality.
type TagValueData struct {
	Value     any      `json:"value,omitempty"`
	Timestamp *string  `json:"timestamp,omitempty"`
	Quality   *Quality `json:"quality,omitempty"`
}

type TagValue struct {
	Name  *string       `json:"name,omitempty"`
	Value *TagValueData `json:"value,omitempty"`
	Error *APIError     `json:"error,omitempty"`
}

// TagValueInput is one tag write.
type TagValueInput struct {
	Name      string  `json:"name"`
	Value     any     `json:"value"`
	Timestamp *string `json:"timestamp,omitempty"`
	Quality   *string `json:"quality,omitempty"`
}

type WriteTagResult struct {
	Name  *string   `json:"name,omitempty"`
	Error *APIError `json:"error,omitempty"`
}

// BrowseEntry is one object of the tag namespace.
type BrowseEntry struct {
	Name        *string `json:"name,omitempty"`
	DisplayName *string `json:"displayName,omitempty"`
	ObjectType  *string `json:"objectType,omitempty"`
	DataType    *string `json:"dataType,omitempty"`
}

// BrowseFilter narrows a browse request. Zero value browses everything in
// en-US.
type BrowseFilter struct {
	NameFilters       []string
	ObjectTypeFilters []string
	BaseTypeFilters   []string
	Language          string
}

type Alarm struct {
	Name      *string  `json:"name,omitempty"`
	Priority  *int     `json:"priority,omitempty"`
	State     *string  `json:"state,omitempty"`
	EventText []string `json:"eventText,omitempty"`
}

// AlarmIdentifier addresses one alarm instance for acknowledge operations.
type AlarmIdentifier struct {
	Name       string `json:"name"`
	InstanceID *int   `json:"instanceId,omitempty"`
}

type AlarmOperationResult struct {
	AlarmName       *string   `json:"alarmName,omitempty"`
	AlarmInstanceID *int      `json:"alarmInstanceID,omitempty"`
	Error           *APIError `json:"error,omitempty"`
}

type LoggedTagValue struct {
	LoggingTagName *string          `json:"loggingTagName,omitempty"`
	Values         []*LoggedValue   `json:"values,omitempty"`
	Error          *APIError        `json:"error,omitempty"`
}

type LoggedValue struct {
	Value *TagValueData `json:"value,omitempty"`
}

// LoggedTagValuesFilter bounds a logged-values request.
type LoggedTagValuesFilter struct {
	Names              []string
	StartTime          string
	EndTime            string
	MaxNumberOfValues  int
	SortingMode        string
	BoundingValuesMode string
}

// NotificationReason distinguishes the initial snapshot from updates on
// subscription events.
type NotificationReason string

const (
	NotificationInitial NotificationReason = "Initial"
	NotificationUpdate  NotificationReason = "Update"
)

// TagValueNotification is one tag subscription event.
type TagValueNotification struct {
	Name               *string            `json:"name,omitempty"`
	NotificationReason NotificationReason `json:"notificationReason,omitempty"`
	Value              *TagValueData      `json:"value,omitempty"`
	Error              *APIError          `json:"error,omitempty"`
}

// AlarmNotification is one alarm subscription event.
type AlarmNotification struct {
	Name               *string            `json:"name,omitempty"`
	NotificationReason NotificationReason `json:"notificationReason,omitempty"`
	Priority           *int               `json:"priority,omitempty"`
	State              *string            `json:"state,omitempty"`
	EventText          []string           `json:"eventText,omitempty"`
}

// ReduStateNotification is one redundancy state subscription event.
type ReduStateNotification struct {
	NotificationReason NotificationReason `json:"notificationReason,omitempty"`
	Value              *TagValueData      `json:"value,omitempty"`
}
