package config

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"tourplan/internal/model"
)

// LoadCapacityCSV parses week/zone/skill/capacity rows. A header row is
// detected and skipped. Blank lines are tolerated; malformed rows are not.
func LoadCapacityCSV(path string) ([]model.CapacityNeed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseCapacityCSV(f)
}

func ParseCapacityCSV(r io.Reader) ([]model.CapacityNeed, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 4
	cr.TrimLeadingSpace = true
	out := []model.CapacityNeed{}
	line := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		line++
		if line == 1 && strings.EqualFold(strings.TrimSpace(rec[0]), "week") {
			continue
		}
		week, err := strconv.Atoi(strings.TrimSpace(rec[0]))
		if err != nil {
			return nil, fmt.Errorf("capacity row %d: bad week %q", line, rec[0])
		}
		capacity, err := strconv.Atoi(strings.TrimSpace(rec[3]))
		if err != nil {
			return nil, fmt.Errorf("capacity row %d: bad capacity %q", line, rec[3])
		}
		out = append(out, model.CapacityNeed{
			Week:     week,
			Zone:     strings.TrimSpace(rec[1]),
			Skill:    strings.TrimSpace(rec[2]),
			Capacity: capacity,
		})
	}
	return out, nil
}
