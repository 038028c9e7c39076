package model

// Employee 员工，上游响应内嵌部门与职位
type Employee struct {
	ID             int    `json:"id"`
	Name           string `json:"name"`
	Slug           string `json:"slug"`
	EmployeeNumber string `json:"employee_number"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	Status         string `json:"status"`
	Division       Ref    `json:"division"`
	Position       Ref    `json:"position"`
	Timestamps
}

func (e *Employee) RecordID() int { return e.ID }
func (e *Employee) Label() string { return e.Name }
