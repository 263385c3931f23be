package resume

// JobDetails 描述求职信针对的目标职位。
type JobDetails struct {
	Position       string `json:"position" binding:"required"`
	Company        string `json:"company" binding:"required"`
	ContactPerson  string `json:"contactPerson,omitempty"`
	JobDescription string `json:"jobDescription,omitempty"`
}
