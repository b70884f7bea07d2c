package api

import (
	"fmt"
	"strings"
	"time"

	"tourplan/internal/model"
)

func parseDay(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}

func validateTournee(t *model.Tournee) error {
	if strings.TrimSpace(t.Code) == "" {
		return fmt.Errorf("code is required")
	}
	for i, c := range t.Courses {
		if c.ID == "" {
			return fmt.Errorf("course %d: id is required", i)
		}
		if c.TourneeCode != "" && c.TourneeCode != t.Code {
			return fmt.Errorf("course %s belongs to tournee %s", c.ID, c.TourneeCode)
		}
		if _, err := parseDay(c.Date); err != nil {
			return fmt.Errorf("course %s: bad date %q", c.ID, c.Date)
		}
		if !c.EndAt.After(c.StartAt) {
			return fmt.Errorf("course %s: endAt must be after startAt", c.ID)
		}
	}
	return nil
}

func validateReassign(req *reassignRequest, driver bool) error {
	if driver {
		if req.DriverID == "" {
			return fmt.Errorf("driverId is required")
		}
	} else {
		if req.VehicleID == "" {
			return fmt.Errorf("vehicleId is required")
		}
	}
	if req.Version < 0 {
		return fmt.Errorf("version must be >= 0")
	}
	return nil
}

func validateLeaveRequest(r *model.LeaveRequest) error {
	if r.DriverID == "" {
		return fmt.Errorf("driverId is required")
	}
	if r.Zone == "" || r.Skill == "" {
		return fmt.Errorf("zone and skill are required")
	}
	if r.StartDate.IsZero() || r.EndDate.IsZero() {
		return fmt.Errorf("startDate and endDate are required")
	}
	if r.EndDate.Before(r.StartDate) {
		return fmt.Errorf("endDate must not precede startDate")
	}
	return nil
}

func validLeaveStatus(s model.LeaveStatus) bool {
	switch s {
	case model.LeavePending, model.LeaveAccepted, model.LeaveRejected, model.LeaveNegotiate:
		return true
	}
	return false
}

func validateSubscription(req *model.SubscriptionRequest) error {
	if !strings.HasPrefix(req.URL, "http://") && !strings.HasPrefix(req.URL, "https://") {
		return fmt.Errorf("url must be http(s)")
	}
	if len(req.Events) == 0 {
		return fmt.Errorf("at least one event type is required")
	}
	return nil
}
