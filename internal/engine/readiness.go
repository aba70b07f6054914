package engine

import "fmt"

// CheckStatus grades a readiness item.
type CheckStatus string

const (
	CheckOK      CheckStatus = "ok"
	CheckWarning CheckStatus = "warning"
	CheckError   CheckStatus = "error"
)

// Check is one line of the readiness report.
type Check struct {
	Name    string      `json:"name"`
	Status  CheckStatus `json:"status"`
	Message string      `json:"message"`
}

// Readiness summarises whether a roster can be scheduled.
type Readiness struct {
	Ready  bool    `json:"ready"`
	Checks []Check `json:"checks"`
}

// CheckReadiness inspects the roster after the department filter. Only the
// teacher, room and availability checks gate generation.
func CheckReadiness(in Input) Readiness {
	scoped := in.filtered()
	teachers, rooms := scoped.Teachers, scoped.Rooms

	checks := make([]Check, 0, 4)
	checks = append(checks, presence("teachers", len(teachers), "teachers found", "no teachers registered"))
	checks = append(checks, presence("rooms", len(rooms), "rooms found", "no rooms registered"))

	available := 0
	needsLab := 0
	for _, t := range teachers {
		if t.HasAvailability() {
			available++
		}
		if t.RequiresLab {
			needsLab++
		}
	}
	availability := Check{Name: "availability", Status: CheckOK, Message: fmt.Sprintf("%d/%d teachers have availability", available, len(teachers))}
	switch {
	case available == 0:
		availability.Status = CheckError
		availability.Message = "no teacher has available hours"
	case available < len(teachers):
		availability.Status = CheckWarning
	}
	checks = append(checks, availability)

	labRooms := 0
	for _, r := range rooms {
		if r.IsLab() {
			labRooms++
		}
	}
	labs := Check{Name: "labs", Status: CheckOK, Message: fmt.Sprintf("%d labs available", labRooms)}
	switch {
	case needsLab == 0:
		labs.Message = "no lessons require a lab"
	case labRooms == 0:
		labs.Status = CheckError
		labs.Message = fmt.Sprintf("%d teachers require a lab but no labs are registered", needsLab)
	case labRooms < needsLab:
		labs.Status = CheckWarning
	}
	checks = append(checks, labs)

	ready := true
	for _, c := range checks[:3] {
		if c.Status == CheckError {
			ready = false
		}
	}
	return Readiness{Ready: ready, Checks: checks}
}

func presence(name string, count int, found, missing string) Check {
	if count == 0 {
		return Check{Name: name, Status: CheckError, Message: missing}
	}
	return Check{Name: name, Status: CheckOK, Message: fmt.Sprintf("%d %s", count, found)}
}
