package domain

// Company is a freee tenant (事業所).
type Company struct {
	ID   int64
	Name string
}

// User is the freee account the session is authorised as.
type User struct {
	ID          int64
	Email       string
	DisplayName string
}

// FreeeProject is a freee 工数管理 project with its workload tag tree.
type FreeeProject struct {
	ID        int64
	Name      string
	Code      string
	TagGroups []WorkloadTagGroup
}

// WorkloadTagGroup groups the tags selectable on a project's workloads.
type WorkloadTagGroup struct {
	ID       int64
	Name     string
	Required bool
	Tags     []WorkloadTag
}

type WorkloadTag struct {
	ID   int64
	Name string
}

// WorkEntry is the payload of one workload submission.
type WorkEntry struct {
	CompanyID int64          `json:"company_id"`
	ProjectID int64          `json:"project_id"`
	Date      string         `json:"date"` // yyyy-MM-dd
	Minutes   int            `json:"minutes"`
	Memo      string         `json:"memo,omitempty"`
	Tags      []WorkEntryTag `json:"workload_tags,omitempty"`
}

type WorkEntryTag struct {
	TagGroupID int64 `json:"tag_group_id"`
	TagID      int64 `json:"tag_id"`
}

// Workload is a workload as stored by freee.
type Workload struct {
	ID        int64
	ProjectID int64
	Date      string
	Minutes   int
	Memo      string
}
