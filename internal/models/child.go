package models

import (
	"fmt"
	"strings"
)

// Child represents an active enrollment of a child in a kindergarten
type Child struct {
	ChildID          int64  `json:"child_id"`
	KindergartenID   int64  `json:"kindergarten_id"`
	KindergartenName string `json:"kindergarten_name"`
	Avatar           string `json:"avatar"`
	FirstName        string `json:"first_name"`
	LastName         string `json:"last_name"`
	BirthDate        string `json:"birth_date"`
	Gender           string `json:"gender"`
}

// Key identifies the child+kindergarten pair
func (c *Child) Key() string {
	return ChildKey(c.ChildID, c.KindergartenID)
}

// FullName returns the child's full name
func (c *Child) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// ChildKey builds the key used for stores, sensors and API paths
func ChildKey(childID, kindergartenID int64) string {
	return fmt.Sprintf("%d_%d", childID, kindergartenID)
}
