package records

// Entry is a corpus record together with the storage handle it was read
// from. The engine treats Handle as opaque.
type Entry struct {
	Handle string
	Record Record
}
