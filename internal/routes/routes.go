// Package routes is the navigation collaborator: the fixed set of named route
// paths and the function type the bill core calls to navigate. The core never
// looks at what a Navigator does with the path.
package routes

const (
	Bills   = "#employee/bills"
	NewBill = "#employee/bill/new"
)

// Navigator is invoked with one of the route paths above. No return value is
// consumed.
type Navigator func(path string)

// Discard is the Navigator used when no navigation surface is attached.
func Discard(string) {}
