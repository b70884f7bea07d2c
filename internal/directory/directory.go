package directory

import (
	"sort"

	"tourplan/internal/model"
)

// Directory is a read-only lookup over a driver/vehicle snapshot. Build one
// per request from a consistent read; it never reaches back to storage.
type Directory struct {
	drivers  map[string]model.Driver
	vehicles map[string]model.Vehicle
}

func New(drivers []model.Driver, vehicles []model.Vehicle) *Directory {
	d := &Directory{
		drivers:  make(map[string]model.Driver, len(drivers)),
		vehicles: make(map[string]model.Vehicle, len(vehicles)),
	}
	for _, dr := range drivers {
		d.drivers[dr.ID] = dr
	}
	for _, v := range vehicles {
		d.vehicles[v.ID] = v
	}
	return d
}

func (d *Directory) Driver(id string) (model.Driver, bool) {
	dr, ok := d.drivers[id]
	return dr, ok
}

func (d *Directory) Vehicle(id string) (model.Vehicle, bool) {
	v, ok := d.vehicles[id]
	return v, ok
}

// AvailableDrivers returns the available drivers sorted by id.
func (d *Directory) AvailableDrivers() []model.Driver {
	out := make([]model.Driver, 0, len(d.drivers))
	for _, dr := range d.drivers {
		if dr.Available {
			out = append(out, dr)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// AvailableVehicles returns the available vehicles sorted by id.
func (d *Directory) AvailableVehicles() []model.Vehicle {
	out := make([]model.Vehicle, 0, len(d.vehicles))
	for _, v := range d.vehicles {
		if v.Available {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
