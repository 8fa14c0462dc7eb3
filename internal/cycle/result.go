package cycle

// SkipReason explains why one person's step was skipped during a run.
type SkipReason string

const (
	SkipManagerUnresolved SkipReason = "manager-unresolved"
	SkipManagerCycle      SkipReason = "manager-cycle"
	SkipManagerIneligible SkipReason = "manager-ineligible"
	SkipRaterIneligible   SkipReason = "rater-ineligible"
)

type Skip struct {
	PersonID int64      `json:"personId"`
	Step     string     `json:"step"`
	Reason   SkipReason `json:"reason"`
	Detail   string     `json:"detail,omitempty"`
}

// Result summarizes one committed generation run.
type Result struct {
	RunID              string `json:"runId"`
	Year               int    `json:"year"`
	DeletedEvaluations int64  `json:"deletedEvaluations"`
	DeletedRequests    int64  `json:"deletedRequests"`
	SelfCreated        int    `json:"selfCreated"`
	UpwardCreated      int    `json:"upwardCreated"`
	DownwardCreated    int    `json:"downwardCreated"`
	LonelyManagers     int    `json:"lonelyManagers"`
	Skipped            []Skip `json:"skipped"`
}
