package model

// Job status
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCanceled  JobStatus = "canceled"
)

// Generation phases, in order. The poller maps raw backend progress onto
// these and never lets a session regress to an earlier phase.
type Phase string

const (
	PhasePerception Phase = "perception"
	PhaseFiltering  Phase = "filtering"
	PhaseDecision   Phase = "decision"
)

// PhaseRank orders phases for the monotonicity guard. Unknown phases rank
// lowest so a malformed response can never advance the session.
func PhaseRank(p Phase) int {
	switch p {
	case PhasePerception:
		return 1
	case PhaseFiltering:
		return 2
	case PhaseDecision:
		return 3
	}
	return 0
}

// Selection status of a displayed dish
type SelectionStatus string

const (
	StatusPending  SelectionStatus = "pending"
	StatusSelected SelectionStatus = "selected"
)

// Dining styles
type DiningStyle string

const (
	DiningStyleCasual   DiningStyle = "casual"
	DiningStyleFamily   DiningStyle = "family_style"
	DiningStyleSharing  DiningStyle = "sharing"
	DiningStyleTasting  DiningStyle = "tasting"
	DiningStyleBusiness DiningStyle = "business"
)

var ValidDiningStyles = []DiningStyle{
	DiningStyleCasual, DiningStyleFamily, DiningStyleSharing,
	DiningStyleTasting, DiningStyleBusiness,
}

// Cuisine types
type CuisineType string

const (
	CuisineChinese  CuisineType = "chinese"
	CuisineThai     CuisineType = "thai"
	CuisineJapanese CuisineType = "japanese"
	CuisineItalian  CuisineType = "italian"
	CuisineIndian   CuisineType = "indian"
	CuisineKorean   CuisineType = "korean"
	CuisineWestern  CuisineType = "western"
)
