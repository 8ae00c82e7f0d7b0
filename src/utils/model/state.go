package model

type State struct {
	// Id always equals one
	Id int

	// Last chain slot fully processed by the reconciliation sweep.
	// Bounds reconciliation scans, the deployments table stays authoritative.
	LastProcessedSlot uint64
}

func (State) TableName() string {
	return "ignitor_state"
}
