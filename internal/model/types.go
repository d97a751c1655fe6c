package model

// Core dispatch entities. All of them live in the state cache as JSON blobs and
// are persisted to the durable store as-is.

type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type Vehicle struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	CapacityKg    float64  `json:"capacity_kg"`
	StartLocation Location `json:"start_location"`
	Deleted       bool     `json:"deleted,omitempty"`
}

type Order struct {
	ID             string   `json:"id"`
	WeightKg       float64  `json:"weight_kg"`
	Location       Location `json:"location"`
	ServiceTimeMin int      `json:"service_time_min"`
	Deleted        bool     `json:"deleted,omitempty"`
}

// Assignment is one vehicle's route: the ordered ids of the orders it serves.
type Assignment struct {
	VehicleID string   `json:"vehicle_id"`
	Route     []string `json:"route"`
}

// Solution is the full set of assignments at a point in time. An order id
// appears in at most one route.
type Solution struct {
	Assignments []Assignment `json:"assignments"`
}

// AssignmentIndex returns the index of the assignment for vehicleID, or -1.
func (s *Solution) AssignmentIndex(vehicleID string) int {
	for i := range s.Assignments {
		if s.Assignments[i].VehicleID == vehicleID {
			return i
		}
	}
	return -1
}

// RemoveOrder deletes orderID from every route it appears in.
func (s *Solution) RemoveOrder(orderID string) {
	for i := range s.Assignments {
		s.Assignments[i].Route = removeID(s.Assignments[i].Route, orderID)
	}
}

// RemoveOrderExcept deletes orderID from every route except vehicleID's.
func (s *Solution) RemoveOrderExcept(orderID, vehicleID string) {
	for i := range s.Assignments {
		if s.Assignments[i].VehicleID == vehicleID {
			continue
		}
		s.Assignments[i].Route = removeID(s.Assignments[i].Route, orderID)
	}
}

// RemoveVehicle drops vehicleID's assignment entirely.
func (s *Solution) RemoveVehicle(vehicleID string) {
	out := s.Assignments[:0]
	for _, a := range s.Assignments {
		if a.VehicleID != vehicleID {
			out = append(out, a)
		}
	}
	s.Assignments = out
}

func removeID(route []string, id string) []string {
	out := route[:0]
	for _, r := range route {
		if r != id {
			out = append(out, r)
		}
	}
	return out
}
