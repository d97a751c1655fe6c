package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSolutionRemoveOrderExcept(t *testing.T) {
	s := Solution{Assignments: []Assignment{
		{VehicleID: "v1", Route: []string{"o1", "o2"}},
		{VehicleID: "v2", Route: []string{"o2", "o3"}},
	}}
	s.RemoveOrderExcept("o2", "v1")
	assert.Equal(t, []string{"o1", "o2"}, s.Assignments[0].Route)
	assert.Equal(t, []string{"o3"}, s.Assignments[1].Route)
}

func TestSolutionRemoveVehicle(t *testing.T) {
	s := Solution{Assignments: []Assignment{
		{VehicleID: "v1", Route: []string{"o1"}},
		{VehicleID: "v2", Route: []string{"o2"}},
	}}
	s.RemoveVehicle("v1")
	assert.Len(t, s.Assignments, 1)
	assert.Equal(t, "v2", s.Assignments[0].VehicleID)
	assert.Equal(t, -1, s.AssignmentIndex("v1"))
}
