package flatten

// Diagnostics receives non-fatal events raised while flattening.
type Diagnostics interface {
	// UnknownAggregation reports an entry that was omitted because its kind
	// is not interpreted.
	UnknownAggregation(name, kind string)
}
