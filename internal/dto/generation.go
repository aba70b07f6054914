package dto

import (
	"time"

	"github.com/noah-isme/timetable-api/internal/engine"
)

// TeacherPayload is one roster teacher supplied inline with a generation request.
type TeacherPayload struct {
	ID              string           `json:"id" validate:"required"`
	Name            string           `json:"name"`
	Subject         string           `json:"subject"`
	Department      string           `json:"department"`
	CourseType      string           `json:"courseType" validate:"omitempty,oneof=required general elective"`
	RequiredLessons int              `json:"requiredLessons" validate:"min=0,max=60"`
	LessonDuration  int              `json:"lessonDuration" validate:"min=0,max=12"`
	RequiresLab     bool             `json:"requiresLab"`
	CourseNeedsLab  bool             `json:"courseNeedsLab"`
	Availability    map[string][]int `json:"availability" validate:"omitempty,dive,dive,min=0,max=23"`
}

// RoomPayload is one bookable room supplied inline.
type RoomPayload struct {
	ID         string `json:"id" validate:"required"`
	Name       string `json:"name"`
	Type       string `json:"type"`
	Capacity   int    `json:"capacity" validate:"min=0"`
	Department string `json:"department"`
}

// GenerateRequest configures one generation run.
type GenerateRequest struct {
	Teachers        []TeacherPayload `json:"teachers" validate:"omitempty,dive"`
	Rooms           []RoomPayload    `json:"rooms" validate:"omitempty,dive"`
	UseStoredRoster bool             `json:"useStoredRoster"`
	Days            []string         `json:"days" validate:"omitempty,dive,required"`
	StartHour       *int             `json:"startHour" validate:"omitempty,min=0,max=23"`
	EndHour         *int             `json:"endHour" validate:"omitempty,min=1,max=24"`
	DepartmentID    string           `json:"departmentId"`

	BalanceLoad    bool `json:"balanceLoad"`
	Optimize       bool `json:"optimize"`
	MinimizeGaps   bool `json:"minimizeGaps"`
	PrioritizeLabs bool `json:"prioritizeLabs"`

	PrioritizeRequiredCourses      bool  `json:"prioritizeRequiredCourses"`
	ExclusivePriorityRooms         *bool `json:"exclusivePriorityRooms"`
	PenalizeConflicts              bool  `json:"penalizeConflicts"`
	ResortQueue                    bool  `json:"resortQueue"`
	ExemptFirstLessonFromGapFilter bool  `json:"exemptFirstLessonFromGapFilter"`

	Algorithm      string `json:"algorithm" validate:"omitempty,oneof=fast optimized thorough"`
	MaxTimeSeconds int    `json:"maxTimeSeconds" validate:"min=0,max=600"`
	MaxAttempts    int    `json:"maxAttempts" validate:"min=0,max=5000"`
	Seed           int64  `json:"seed"`
}

// ReadinessRequest shares the roster portion of GenerateRequest.
type ReadinessRequest = GenerateRequest

// RunAccepted is returned when a run has been queued.
type RunAccepted struct {
	RunID  string `json:"runId"`
	Status string `json:"status"`
}

// RunWindow is the week grid a run was scheduled into.
type RunWindow struct {
	Days      []string `json:"days"`
	StartHour int      `json:"startHour"`
	EndHour   int      `json:"endHour"`
}

// RunResponse describes a run and its best result so far.
type RunResponse struct {
	RunID       string           `json:"runId"`
	Status      string           `json:"status"`
	Algorithm   string           `json:"algorithm"`
	Department  string           `json:"department,omitempty"`
	Window      RunWindow        `json:"window"`
	Progress    *engine.Progress `json:"progress,omitempty"`
	Result      *engine.Result   `json:"result,omitempty"`
	Analysis    *engine.Analysis `json:"analysis,omitempty"`
	Error       string           `json:"error,omitempty"`
	Persisted   bool             `json:"persisted"`
	CreatedBy   string           `json:"createdBy,omitempty"`
	CreatedAt   time.Time        `json:"createdAt"`
	StartedAt   *time.Time       `json:"startedAt,omitempty"`
	CompletedAt *time.Time       `json:"completedAt,omitempty"`
}

// ExportRequest selects the format of a stored export.
type ExportRequest struct {
	Format string `json:"format" validate:"required,oneof=csv pdf xlsx"`
	Title  string `json:"title" validate:"omitempty,max=120"`
}

// ExportResponse points to a stored export.
type ExportResponse struct {
	RunID     string    `json:"runId"`
	Format    string    `json:"format"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}
