package model

import "time"

// Core domain types for tournée planning.

type CourseKind string

const (
	CourseReg CourseKind = "reg" // recurring prestation
	CourseSup CourseKind = "sup" // ad hoc supplementary request
)

type AssignmentStatus string

const (
	Unassigned AssignmentStatus = "unassigned"
	Partial    AssignmentStatus = "partial"
	Assigned   AssignmentStatus = "assigned"
)

// Course is a single planned pickup-to-delivery movement. Identity and timing
// windows are fixed at creation; only the resource assignment is mutable.
type Course struct {
	ID             string     `json:"id"`
	Client         string     `json:"client"`
	Kind           CourseKind `json:"kind"`
	Date           string     `json:"date"` // YYYY-MM-DD
	StartAt        time.Time  `json:"startAt"`
	EndAt          time.Time  `json:"endAt"`
	FromLocation   string     `json:"fromLocation,omitempty"`
	ToLocation     string     `json:"toLocation,omitempty"`
	VehicleType    string     `json:"vehicleType,omitempty"`
	DriverType     string     `json:"driverType,omitempty"`
	RequiredSkills []string   `json:"requiredSkills,omitempty"`
	Sensitive      bool       `json:"sensitive,omitempty"`
	DriverID       string     `json:"driverId,omitempty"`
	VehicleID      string     `json:"vehicleId,omitempty"`
	TourneeCode    string     `json:"tourneeCode,omitempty"`
	ContractEnd    string     `json:"contractEnd,omitempty"` // last contracted date of a recurring prestation
}

// Status derives the assignment state from the resource fields.
func (c Course) Status() AssignmentStatus {
	switch {
	case c.DriverID != "" && c.VehicleID != "":
		return Assigned
	case c.DriverID != "" || c.VehicleID != "":
		return Partial
	default:
		return Unassigned
	}
}

// Overlaps reports whether two course time windows intersect.
func (c Course) Overlaps(o Course) bool {
	return c.StartAt.Before(o.EndAt) && o.StartAt.Before(c.EndAt)
}

// Tournee is an ordered grouping of courses sharing a route under one
// driver/vehicle pair (or two drivers for dual-driver long-haul tours).
type Tournee struct {
	Code                string   `json:"code"`
	Courses             []Course `json:"courses"`
	DriverID            string   `json:"driverId,omitempty"`
	DriverName          string   `json:"driverName,omitempty"`
	DriverType          string   `json:"driverType,omitempty"`
	SecondDriverID      string   `json:"secondDriverId,omitempty"`
	SecondDriverName    string   `json:"secondDriverName,omitempty"`
	VehicleID           string   `json:"vehicleId,omitempty"`
	VehicleRegistration string   `json:"vehicleRegistration,omitempty"`
	VehicleType         string   `json:"vehicleType,omitempty"`
	Version             int      `json:"version"`
}

// Span returns the earliest start and latest end across the tournée's
// courses. Zero times when the tournée has no courses.
func (t Tournee) Span() (time.Time, time.Time) {
	var start, end time.Time
	for _, c := range t.Courses {
		if start.IsZero() || c.StartAt.Before(start) {
			start = c.StartAt
		}
		if end.IsZero() || c.EndAt.After(end) {
			end = c.EndAt
		}
	}
	return start, end
}

// Driver is a resource entity owned by the directory. Available is toggled
// externally (absence); the planning core only reads it.
type Driver struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Type      string   `json:"type"` // e.g. CM, SPL, VL
	Skills    []string `json:"skills,omitempty"`
	Zone      string   `json:"zone,omitempty"`
	Site      string   `json:"site,omitempty"`
	Available bool     `json:"available"`
}

type Vehicle struct {
	ID           string `json:"id"`
	Registration string `json:"registration"`
	Type         string `json:"type"` // e.g. Frigo, Tautliner, VL
	Zone         string `json:"zone,omitempty"`
	Site         string `json:"site,omitempty"`
	Available    bool   `json:"available"`
}

// LeaveStatus values for vacation-campaign requests.
type LeaveStatus string

const (
	LeavePending   LeaveStatus = "pending"
	LeaveAccepted  LeaveStatus = "accepted"
	LeaveRejected  LeaveStatus = "rejected"
	LeaveNegotiate LeaveStatus = "negotiate"
)

// Impact classifies remaining capacity headroom for a leave request.
type Impact string

const (
	ImpactOK    Impact = "OK"
	ImpactTight Impact = "Tight"
	ImpactKO    Impact = "KO"
)

// LeaveRequest is one driver's vacation-campaign request. Impact, Delta and
// PriorityScore are populated by the capacity simulation for pending requests
// only; settled requests keep them nil.
type LeaveRequest struct {
	ID             string      `json:"id"`
	DriverID       string      `json:"driverId"`
	Zone           string      `json:"zone"`
	Skill          string      `json:"skill"`
	StartDate      time.Time   `json:"startDate"`
	EndDate        time.Time   `json:"endDate"`
	Status         LeaveStatus `json:"status"`
	SeniorityYears float64     `json:"seniorityYears,omitempty"`
	SubmittedAt    time.Time   `json:"submittedAt,omitempty"`
	Impact         *Impact     `json:"impact,omitempty"`
	Delta          *int        `json:"delta,omitempty"`
	PriorityScore  *float64    `json:"priorityScore,omitempty"`
}

// Settled reports whether the request is frozen for simulation purposes.
func (r LeaveRequest) Settled() bool {
	return r.Status == LeaveAccepted || r.Status == LeaveRejected
}

// CapacityNeed is static reference data: the maximum number of simultaneous
// absences a (week, zone, skill) combination can tolerate.
type CapacityNeed struct {
	Week     int    `json:"week"` // ISO-8601 week number
	Zone     string `json:"zone"`
	Skill    string `json:"skill"`
	Capacity int    `json:"capacity"`
}

type ChangeKind string

const (
	ChangeCancellation ChangeKind = "cancellation"
	ChangeUpdate       ChangeKind = "update"
)

// PlanChange records a modification applied to a regular prestation since the
// last published plan.
type PlanChange struct {
	ID       string     `json:"id,omitempty"`
	CourseID string     `json:"courseId"`
	Kind     ChangeKind `json:"kind"`
	At       time.Time  `json:"at,omitempty"`
}

// CoherenceReport is the Coherence Checker verdict for one tournée.
type CoherenceReport struct {
	IsCoherent bool     `json:"isCoherent"`
	Issues     []string `json:"issues"`
}

// SplitAdvice recommends (but never performs) a tournée split.
type SplitAdvice struct {
	ShouldSplit bool   `json:"shouldSplit"`
	Reason      string `json:"reason,omitempty"`
}

// ReassignmentResult reports a driver or vehicle reassignment across a
// tournée. Conflicts are first-class values, never errors: callers must check
// Success before trusting AffectedCourses.
type ReassignmentResult struct {
	Success         bool     `json:"success"`
	Message         string   `json:"message"`
	AffectedCourses []Course `json:"affectedCourses"`
	UpdatedTournee  *Tournee `json:"updatedTournee,omitempty"`
}

// Health tile aggregates.

type AbsencesByType struct {
	DriverType      string `json:"driverType"`
	Count           int    `json:"count"`
	ImpactedCourses int    `json:"impactedCourses"`
}

type ResourceOutage struct {
	Count           int `json:"count"`
	ImpactedCourses int `json:"impactedCourses"`
}

type ModificationCounts struct {
	Cancellations int `json:"cancellations"`
	Other         int `json:"other"`
}

type AlertCounts struct {
	Critical int `json:"critical"`
	Warning  int `json:"warning"`
	Info     int `json:"info"`
}

type AmplitudeCounts struct {
	AboveMax int `json:"aboveMax"`
	BelowMin int `json:"belowMin"`
}

// PlanningHealthMetrics is the dispatch health-tile record. It is a pure
// function of the input snapshot: identical snapshots yield identical values.
type PlanningHealthMetrics struct {
	CoursesTotal              int                `json:"coursesTotal"`
	CoursesPlaced             int                `json:"coursesPlaced"`
	PlacementPct              float64            `json:"placementPct"`
	AbsentDrivers             []AbsencesByType   `json:"absentDrivers"`
	UnavailableVehicles       ResourceOutage     `json:"unavailableVehicles"`
	Modifications             ModificationCounts `json:"modifications"`
	AlertsByLevel             AlertCounts        `json:"alertsByLevel"`
	DriversOutOfAmplitude     AmplitudeCounts    `json:"driversOutOfAmplitude"`
	PrestationsExpiring4Weeks int                `json:"prestationsExpiring4Weeks"`
	SensitivesToPlace         int                `json:"sensitivesToPlace"`
	CoursesSupToPlace         int                `json:"coursesSupToPlace"`
	CoursesRegToPlace         int                `json:"coursesRegToPlace"`
}

// Webhook subscriptions for planning alert events.

type SubscriptionRequest struct {
	URL    string   `json:"url"`
	Events []string `json:"events"`
	Secret string   `json:"secret"`
}

type Subscription struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Events    []string  `json:"events"`
	Secret    string    `json:"secret,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
